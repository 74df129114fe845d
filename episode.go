package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/gridworld/game/config"
	"github.com/wricardo/mcp-training/gridworld/game/engine"
	"github.com/wricardo/mcp-training/gridworld/render"
)

// loadGameConfig resolves --config: a path to a config file, a config ID in
// configDir, or the directory's default when name is empty. Without a config
// directory the built-in default is used.
func loadGameConfig(configDir, name string) (*engine.GameConfig, error) {
	if name != "" && filepath.Ext(name) != "" {
		if _, err := os.Stat(name); err == nil {
			return engine.LoadGameConfig(name)
		}
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		if name == "" {
			return engine.DefaultGameConfig(), nil
		}
		return nil, err
	}
	if name == "" {
		return manager.GetDefault(), nil
	}
	return manager.LoadConfig(name)
}

// parseActions converts "up,up,2" style lists into action indexes. Numbers
// outside 0-3 are kept; the environment treats them as invalid actions.
func parseActions(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	actions := make([]int, 0, len(fields))
	for _, f := range fields {
		a, ok := engine.ParseAction(f)
		if !ok {
			return nil, fmt.Errorf("unknown action %q: use 0-3 or up/down/right/left", f)
		}
		actions = append(actions, int(a))
	}
	return actions, nil
}

// episodeActions picks the action list for play/render
func episodeActions(cmd *cli.Command, cfg *engine.GameConfig) ([]int, error) {
	if cmd.Bool("shortest") {
		path, ok := engine.ShortestPath(cfg.Grid())
		if !ok {
			return nil, fmt.Errorf("config %s: goal is unreachable without entering a penalty cell", cfg.Name)
		}
		actions := make([]int, len(path))
		for i, a := range path {
			actions[i] = int(a)
		}
		return actions, nil
	}

	actions, err := parseActions(cmd.String("actions"))
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, errors.New("no actions given: use --actions or --shortest")
	}
	return actions, nil
}

// playEpisode runs actions from a fresh episode, writing one line per
// transition. observe, when set, sees the snapshot after reset and after every
// step. Actions left over once the episode terminates are not applied.
func playEpisode(w io.Writer, cfg *engine.GameConfig, actions []int, observe func(*engine.Snapshot) error) (*engine.Snapshot, error) {
	env, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	obs, info := env.Reset()
	fmt.Fprintf(w, "config=%s grid=%dx%d start=%s goal=%s distance=%.2f\n",
		cfg.Name, cfg.GridSize, cfg.GridSize, obs, cfg.Goal, info.DistanceToGoal)
	if observe != nil {
		if err := observe(env.Snapshot()); err != nil {
			return nil, err
		}
	}

	for i, a := range actions {
		if env.IsTerminated() {
			fmt.Fprintf(w, "episode over after %d steps, %d actions not applied\n", i, len(actions)-i)
			break
		}
		r := env.StepDetailed(a)
		fmt.Fprintf(w, "step %d: %s %s -> %s outcome=%s reward=%.2f return=%.2f distance=%.2f\n",
			i+1, r.Action, r.From, r.To, r.Outcome, r.Reward, r.Return, r.Info.DistanceToGoal)
		if observe != nil {
			if err := observe(env.Snapshot()); err != nil {
				return nil, err
			}
		}
	}

	snap := env.Snapshot()
	reason := string(snap.Reason)
	if reason == "" {
		reason = "none"
	}
	fmt.Fprintf(w, "\n%s\nstatus=%s reason=%s steps=%d return=%.2f\n",
		engine.RenderASCII(snap), snap.Status, reason, snap.Steps, snap.Return)
	return snap, nil
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadGameConfig(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return err
	}
	actions, err := episodeActions(cmd, cfg)
	if err != nil {
		return err
	}

	_, err = playEpisode(cmd.Root().Writer, cfg, actions, nil)
	return err
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	assetDir := cmd.String("asset-dir")
	if assetDir == "" {
		return errors.New("render needs --asset-dir with the sprite images")
	}

	cfg, err := loadGameConfig(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return err
	}
	actions, err := episodeActions(cmd, cfg)
	if err != nil {
		return err
	}

	assets, err := render.LoadAssets(assetDir, cfg.Assets)
	if err != nil {
		return err
	}
	renderer, err := render.NewRenderer(cfg.EffectiveCellSize(), assets)
	if err != nil {
		return err
	}
	recorder, err := render.NewRecorder(renderer, cmd.String("out"))
	if err != nil {
		return err
	}

	if _, err := recorder.Title(cfg.GridSize); err != nil {
		return err
	}
	observe := func(s *engine.Snapshot) error {
		_, err := recorder.Record(s)
		return err
	}

	w := cmd.Root().Writer
	if _, err := playEpisode(w, cfg, actions, observe); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d frames to %s\n", recorder.Frames(), cmd.String("out"))
	return nil
}
