package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

var (
	titleColor   = color.RGBA{R: 10, G: 10, B: 200, A: 255}
	bgColor      = color.RGBA{R: 100, G: 180, B: 255, A: 255}
	goalColor    = color.RGBA{R: 250, G: 210, B: 0, A: 255}
	penaltyColor = color.RGBA{R: 0, G: 140, B: 40, A: 255}
	agentColor   = color.RGBA{R: 220, G: 20, B: 20, A: 255}
)

func writeSprite(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeDefaultSprites(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	names := engine.DefaultAssetNames
	writeSprite(t, filepath.Join(dir, names.Title), titleColor)
	writeSprite(t, filepath.Join(dir, names.Background), bgColor)
	writeSprite(t, filepath.Join(dir, names.Goal), goalColor)
	writeSprite(t, filepath.Join(dir, names.Penalty), penaltyColor)
	writeSprite(t, filepath.Join(dir, names.Agent), agentColor)
	return dir
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	assets, err := LoadAssets(writeDefaultSprites(t), engine.AssetNames{})
	require.NoError(t, err)
	r, err := NewRenderer(10, assets)
	require.NoError(t, err)
	return r
}

func testSnapshot() *engine.Snapshot {
	return &engine.Snapshot{
		GridSize:  3,
		Goal:      engine.Position{Row: 0, Col: 2},
		Penalties: []engine.Position{{Row: 1, Col: 1}},
		Agent:     engine.Position{Row: 2, Col: 0},
	}
}

func assertColorNear(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()
	r, g, b, _ := got.RGBA()
	near := func(a uint8, b uint32) bool {
		d := int(a) - int(b>>8)
		return d >= -2 && d <= 2
	}
	assert.True(t, near(want.R, r) && near(want.G, g) && near(want.B, b),
		"expected %v, got %v", want, got)
}

// cellCenter returns the pixel at the middle of a 10px cell
func cellCenter(img image.Image, row, col int) color.Color {
	return img.At(col*10+5, row*10+5)
}

func TestLoadAssets(t *testing.T) {
	dir := writeDefaultSprites(t)

	assets, err := LoadAssets(dir, engine.AssetNames{})
	require.NoError(t, err)
	assert.NotNil(t, assets.Title)
	assert.NotNil(t, assets.Agent)
	assert.Equal(t, 16, assets.Background.Bounds().Dx())
}

func TestLoadAssets_MissingSprite(t *testing.T) {
	dir := writeDefaultSprites(t)
	require.NoError(t, os.Remove(filepath.Join(dir, engine.DefaultAssetNames.Penalty)))

	_, err := LoadAssets(dir, engine.AssetNames{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssetLoad)
	assert.Contains(t, err.Error(), engine.DefaultAssetNames.Penalty)
}

func TestLoadAssets_CustomNames(t *testing.T) {
	dir := writeDefaultSprites(t)
	writeSprite(t, filepath.Join(dir, "robot.png"), color.RGBA{A: 255})

	assets, err := LoadAssets(dir, engine.AssetNames{Agent: "robot.png"})
	require.NoError(t, err)
	r, _, _, _ := assets.Agent.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r)
}

func TestNewRenderer(t *testing.T) {
	_, err := NewRenderer(10, nil)
	assert.Error(t, err)

	assets, err := LoadAssets(writeDefaultSprites(t), engine.AssetNames{})
	require.NoError(t, err)

	_, err = NewRenderer(-1, assets)
	assert.Error(t, err)

	r, err := NewRenderer(0, assets)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultCellSize, r.CellSize())
	assert.Equal(t, 600, r.WindowSize(6))
}

func TestRenderer_TitleFrame(t *testing.T) {
	r := newTestRenderer(t)

	img := r.TitleFrame(3)
	assert.Equal(t, image.Rect(0, 0, 30, 30), img.Bounds())
	assertColorNear(t, titleColor, img.At(15, 15))
	assertColorNear(t, titleColor, img.At(1, 28))
}

func TestRenderer_Frame(t *testing.T) {
	r := newTestRenderer(t)
	img := r.Frame(testSnapshot())

	assert.Equal(t, image.Rect(0, 0, 30, 30), img.Bounds())
	assertColorNear(t, goalColor, cellCenter(img, 0, 2))
	assertColorNear(t, penaltyColor, cellCenter(img, 1, 1))
	assertColorNear(t, agentColor, cellCenter(img, 2, 0))
	assertColorNear(t, bgColor, cellCenter(img, 0, 0))
	assertColorNear(t, bgColor, cellCenter(img, 2, 2))
}

func TestRenderer_AgentDrawnOverGoal(t *testing.T) {
	r := newTestRenderer(t)
	s := testSnapshot()
	s.Agent = s.Goal

	img := r.Frame(s)
	assertColorNear(t, agentColor, cellCenter(img, 0, 2))
}

func TestRenderer_EncodePNG(t *testing.T) {
	r := newTestRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.EncodePNG(&buf, testSnapshot()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
	assertColorNear(t, agentColor, cellCenter(img, 2, 0))
}

func TestRecorder(t *testing.T) {
	r := newTestRenderer(t)
	dir := filepath.Join(t.TempDir(), "frames")

	rec, err := NewRecorder(r, dir)
	require.NoError(t, err)

	first, err := rec.Title(3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "frame_0000.png"), first)

	s := testSnapshot()
	for i := 0; i < 2; i++ {
		_, err := rec.Record(s)
		require.NoError(t, err)
		s.Agent.Row--
	}
	assert.Equal(t, 3, rec.Frames())

	f, err := os.Open(filepath.Join(dir, "frame_0002.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assertColorNear(t, agentColor, cellCenter(img, 1, 0))
}
