package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, e := range result.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		wantValid bool
		wantMsg   string
	}{
		{
			name: "valid json",
			file: "classic.json",
			content: `{
				"name": "classic",
				"grid_size": 6,
				"goal": {"row": 0, "col": 4},
				"penalties": [{"row": 2, "col": 2}, {"row": 3, "col": 4}, {"row": 4, "col": 1}]
			}`,
			wantValid: true,
			wantMsg:   "✓ Connectivity: goal reachable in 9 steps (best return 99.60)",
		},
		{
			name: "valid yaml",
			file: "small.yaml",
			content: `name: small
grid_size: 3
goal: {row: 0, col: 2}
`,
			wantValid: true,
			wantMsg:   "✓ Grid: 3x3",
		},
		{
			name:      "invalid json",
			file:      "broken.json",
			content:   `{"name": "test", invalid json}`,
			wantValid: false,
			wantMsg:   "failed to parse json config",
		},
		{
			name:      "missing name",
			file:      "noname.json",
			content:   `{"grid_size": 4, "goal": {"row": 0, "col": 0}}`,
			wantValid: false,
			wantMsg:   "name is required",
		},
		{
			name:      "grid too small",
			file:      "tiny.json",
			content:   `{"name": "tiny", "grid_size": 1, "goal": {"row": 0, "col": 0}}`,
			wantValid: false,
			wantMsg:   "grid_size must be between 2 and 50",
		},
		{
			name:      "penalty on start",
			file:      "start.json",
			content:   `{"name": "start", "grid_size": 4, "goal": {"row": 0, "col": 3}, "penalties": [{"row": 3, "col": 0}]}`,
			wantValid: false,
			wantMsg:   "overlaps the start cell",
		},
		{
			name:      "goal off grid",
			file:      "off.json",
			content:   `{"name": "off", "grid_size": 4, "goal": {"row": 4, "col": 0}}`,
			wantValid: false,
			wantMsg:   "outside the 4x4 grid",
		},
		{
			name: "unreachable goal",
			file: "walled.json",
			content: `{"name": "walled", "grid_size": 3, "goal": {"row": 0, "col": 2},
				"penalties": [{"row": 1, "col": 0}, {"row": 1, "col": 1}, {"row": 1, "col": 2}]}`,
			wantValid: false,
			wantMsg:   "Connectivity failure",
		},
		{
			name: "inverted rewards",
			file: "rewards.json",
			content: `{"name": "rewards", "grid_size": 3, "goal": {"row": 0, "col": 2},
				"rewards": {"goal": -1, "penalty": 5, "step": 0}}`,
			wantValid: false,
			wantMsg:   "rewards.goal",
		},
		{
			name: "duplicate penalty warns",
			file: "dup.json",
			content: `{"name": "dup", "grid_size": 4, "goal": {"row": 0, "col": 3},
				"penalties": [{"row": 1, "col": 1}, {"row": 1, "col": 1}]}`,
			wantValid: true,
			wantMsg:   "duplicate penalty cell (1,1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateConfig(writeConfig(t, tt.file, tt.content))

			if result.Valid != tt.wantValid {
				t.Errorf("Expected valid=%v, got %v: %v", tt.wantValid, result.Valid, result.Errors)
			}
			if result.File != tt.file {
				t.Errorf("Expected file name %s, got %s", tt.file, result.File)
			}
			if !hasMessage(result, tt.wantMsg) {
				t.Errorf("Expected message containing %q, got %v", tt.wantMsg, result.Errors)
			}
		})
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "nope.json"))
	if result.Valid {
		t.Error("Expected missing file to be invalid")
	}
}

func TestValidateConnectivity(t *testing.T) {
	grid := engine.DefaultGameConfig().Grid()
	if result := validateConnectivity(grid); !result.Valid {
		t.Errorf("Expected classic grid to be connected: %v", result.Errors)
	}

	grid.Penalties = append(grid.Penalties,
		engine.Position{Row: 4, Col: 0},
		engine.Position{Row: 5, Col: 1},
	)
	if result := validateConnectivity(grid); result.Valid {
		t.Error("Expected boxed-in start to be disconnected")
	}
}

func TestConfigFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yml", "a.yaml", "c.json", "README.md"} {
		os.WriteFile(filepath.Join(dir, name), []byte(""), 0644)
	}

	files, err := configFiles(dir)
	if err != nil {
		t.Fatalf("configFiles failed: %v", err)
	}
	want := []string{"a.yaml", "b.yml", "c.json"}
	if len(files) != len(want) {
		t.Fatalf("Expected %v, got %v", want, files)
	}
	for i, f := range files {
		if filepath.Base(f) != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], filepath.Base(f))
		}
	}
}

func TestShippedConfigsAreValid(t *testing.T) {
	files, err := configFiles("../configs")
	if err != nil {
		t.Fatalf("configFiles failed: %v", err)
	}
	if len(files) == 0 {
		t.Skip("no configs directory")
	}
	for _, file := range files {
		if result := validateConfig(file); !result.Valid {
			t.Errorf("%s is invalid: %v", result.File, result.Errors)
		}
	}
}
