package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

func TestAnalyze_Classic(t *testing.T) {
	a := analyze(engine.DefaultGameConfig())

	if a.Start != (engine.Position{Row: 5, Col: 0}) {
		t.Errorf("Expected start (5,0), got %s", a.Start)
	}
	if a.Manhattan != 9 {
		t.Errorf("Expected manhattan distance 9, got %d", a.Manhattan)
	}
	if !a.Reachable {
		t.Fatal("Expected goal to be reachable")
	}
	if len(a.Path) != 9 {
		t.Errorf("Expected 9-step path, got %d", len(a.Path))
	}
	if a.PenaltyDetour != 0 {
		t.Errorf("Expected no detour, got %d", a.PenaltyDetour)
	}
	if diff := a.BestReturn - 99.6; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected best return 99.6, got %v", a.BestReturn)
	}
	if a.TrappedStart {
		t.Error("Start should not be trapped")
	}
}

func TestAnalyze_Unreachable(t *testing.T) {
	cfg := &engine.GameConfig{
		Name:     "walled",
		GridSize: 3,
		Goal:     engine.Position{Row: 0, Col: 2},
		Penalties: []engine.Position{
			{Row: 1, Col: 0},
			{Row: 2, Col: 1},
		},
	}

	a := analyze(cfg)
	if a.Reachable {
		t.Error("Expected goal to be unreachable")
	}
	if !a.TrappedStart {
		t.Error("Expected start to be trapped")
	}

	var buf bytes.Buffer
	printAnalysis(&buf, a)
	out := buf.String()
	if !strings.Contains(out, "CRITICAL") || !strings.Contains(out, "WARNING") {
		t.Errorf("Expected warnings in output, got:\n%s", out)
	}
}

func TestAnalyze_Detour(t *testing.T) {
	// 3x3, start (2,0), goal (0,0), penalty (1,0) forces a detour through column 1
	cfg := &engine.GameConfig{
		Name:      "detour",
		GridSize:  3,
		Goal:      engine.Position{Row: 0, Col: 0},
		Penalties: []engine.Position{{Row: 1, Col: 0}},
	}

	a := analyze(cfg)
	if !a.Reachable {
		t.Fatal("Expected goal to be reachable")
	}
	if len(a.Path) != 4 || a.PenaltyDetour != 2 {
		t.Errorf("Expected 4 steps with detour 2, got %d steps detour %d", len(a.Path), a.PenaltyDetour)
	}

	var buf bytes.Buffer
	printAnalysis(&buf, a)
	if !strings.Contains(buf.String(), "detour of 2 steps") {
		t.Errorf("Expected detour line, got:\n%s", buf.String())
	}
}

func TestConfigFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.json", "c.yml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := configFiles(dir)
	if err != nil {
		t.Fatalf("configFiles failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Expected 3 files, got %v", files)
	}
	if filepath.Base(files[0]) != "a.json" {
		t.Errorf("Expected sorted files, got %v", files)
	}
}
