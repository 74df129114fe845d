// Package assets resolves the sprite files the desktop window draws. A
// missing or unreadable sprite is an error; the window does not start
// without its full sprite set.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrAssetMissing is returned when a sprite file cannot be used
var ErrAssetMissing = errors.New("rendering asset missing")

// Names lists the sprite files relative to the asset directory
type Names struct {
	Title      string
	Background string
	Goal       string
	Penalty    string
	Agent      string
}

// Default are the sprite files the server renderer also uses
var Default = Names{
	Title:      "title_pic.JPG",
	Background: "mario_background.jpg",
	Goal:       "Mario_goal_pic.JPG",
	Penalty:    "cactus2a.png",
	Agent:      "Mario_pic.png",
}

// Paths holds the resolved sprite file paths
type Paths Names

// Resolve joins every name with dir and checks that each is a readable
// regular file. All failures are reported together.
func Resolve(dir string, names Names) (*Paths, error) {
	p := &Paths{
		Title:      filepath.Join(dir, names.Title),
		Background: filepath.Join(dir, names.Background),
		Goal:       filepath.Join(dir, names.Goal),
		Penalty:    filepath.Join(dir, names.Penalty),
		Agent:      filepath.Join(dir, names.Agent),
	}

	var errs []error
	for _, path := range []string{p.Title, p.Background, p.Goal, p.Penalty, p.Agent} {
		if err := checkFile(path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAssetMissing, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrAssetMissing, path)
	}
	return nil
}
