package render

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

// ErrAssetLoad wraps every sprite loading failure
var ErrAssetLoad = errors.New("failed to load sprite")

// Assets holds the decoded sprites of one environment
type Assets struct {
	Title      image.Image
	Background image.Image
	Goal       image.Image
	Penalty    image.Image
	Agent      image.Image
}

// LoadAssets decodes the sprites named by names from dir. Empty names fall
// back to engine.DefaultAssetNames. A missing or unreadable file is an error.
func LoadAssets(dir string, names engine.AssetNames) (*Assets, error) {
	names = names.WithDefaults()

	a := &Assets{}
	files := []struct {
		name string
		dst  *image.Image
	}{
		{names.Title, &a.Title},
		{names.Background, &a.Background},
		{names.Goal, &a.Goal},
		{names.Penalty, &a.Penalty},
		{names.Agent, &a.Agent},
	}

	for _, f := range files {
		img, err := gg.LoadImage(filepath.Join(dir, f.name))
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrAssetLoad, f.name, err)
		}
		*f.dst = img
	}
	return a, nil
}
