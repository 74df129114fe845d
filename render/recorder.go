package render

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

// Recorder writes numbered PNG frames to a directory, one per snapshot it
// is fed.
type Recorder struct {
	renderer *Renderer
	dir      string
	frames   int
}

// NewRecorder creates dir if needed and returns a recorder writing into it
func NewRecorder(r *Renderer, dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	return &Recorder{renderer: r, dir: dir}, nil
}

// Title writes the welcome screen as the next frame
func (rec *Recorder) Title(gridSize int) (string, error) {
	return rec.save(rec.renderer.TitleFrame(gridSize))
}

// Record writes a snapshot as the next frame and returns its path
func (rec *Recorder) Record(s *engine.Snapshot) (string, error) {
	return rec.save(rec.renderer.Frame(s))
}

// Frames returns the number of frames written so far
func (rec *Recorder) Frames() int {
	return rec.frames
}

func (rec *Recorder) save(img image.Image) (string, error) {
	path := filepath.Join(rec.dir, fmt.Sprintf("frame_%04d.png", rec.frames))
	if err := gg.SavePNG(path, img); err != nil {
		return "", fmt.Errorf("failed to write frame: %w", err)
	}
	rec.frames++
	return path, nil
}
