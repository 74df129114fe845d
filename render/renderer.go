package render

import (
	"errors"
	"image"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

// Renderer draws environment snapshots as 2D sprite frames. It only reads
// snapshots and never touches an environment.
type Renderer struct {
	cellSize int
	assets   *Assets

	mu     sync.Mutex
	scaled map[scaleKey]image.Image
}

type scaleKey struct {
	src  image.Image
	w, h int
}

// NewRenderer creates a renderer drawing cellSize x cellSize pixel cells.
// A cellSize of 0 uses engine.DefaultCellSize.
func NewRenderer(cellSize int, assets *Assets) (*Renderer, error) {
	if assets == nil {
		return nil, errors.New("renderer needs loaded assets")
	}
	if cellSize < 0 {
		return nil, errors.New("cell size must not be negative")
	}
	if cellSize == 0 {
		cellSize = engine.DefaultCellSize
	}
	return &Renderer{
		cellSize: cellSize,
		assets:   assets,
		scaled:   make(map[scaleKey]image.Image),
	}, nil
}

// CellSize returns the pixel size of one cell
func (r *Renderer) CellSize() int {
	return r.cellSize
}

// WindowSize returns the pixel size of a square window for gridSize cells per side
func (r *Renderer) WindowSize(gridSize int) int {
	return r.cellSize * gridSize
}

// TitleFrame draws the welcome screen scaled to the full window
func (r *Renderer) TitleFrame(gridSize int) image.Image {
	size := r.WindowSize(gridSize)
	dc := gg.NewContext(size, size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.DrawImage(r.scale(r.assets.Title, size, size), 0, 0)
	return dc.Image()
}

// Frame draws the background, goal, penalty cells and agent of a snapshot
func (r *Renderer) Frame(s *engine.Snapshot) image.Image {
	return r.frameContext(s).Image()
}

// EncodePNG draws a snapshot and writes it to w as PNG
func (r *Renderer) EncodePNG(w io.Writer, s *engine.Snapshot) error {
	return r.frameContext(s).EncodePNG(w)
}

func (r *Renderer) frameContext(s *engine.Snapshot) *gg.Context {
	size := r.WindowSize(s.GridSize)
	cell := r.cellSize

	dc := gg.NewContext(size, size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(r.scale(r.assets.Background, size, size), 0, 0)

	dc.DrawImage(r.scale(r.assets.Goal, cell, cell), s.Goal.Col*cell, s.Goal.Row*cell)

	penalty := r.scale(r.assets.Penalty, cell, cell)
	for _, p := range s.Penalties {
		dc.DrawImage(penalty, p.Col*cell, p.Row*cell)
	}

	dc.DrawImage(r.scale(r.assets.Agent, cell, cell), s.Agent.Col*cell, s.Agent.Row*cell)
	return dc
}

// scale resizes src to w x h with Catmull-Rom filtering, caching the result
func (r *Renderer) scale(src image.Image, w, h int) image.Image {
	key := scaleKey{src: src, w: w, h: h}

	r.mu.Lock()
	defer r.mu.Unlock()

	if img, ok := r.scaled[key]; ok {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	r.scaled[key] = dst
	return dst
}
