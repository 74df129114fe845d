package engine

import (
	"bytes"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
)

func createTestConfig() *GameConfig {
	return &GameConfig{
		Name:        "engine-test",
		Description: "Configuration for engine integration tests",
		GridSize:    6,
		Goal:        Position{Row: 0, Col: 4},
		Penalties:   []Position{{Row: 2, Col: 2}, {Row: 3, Col: 4}, {Row: 4, Col: 1}},
		Messages: Messages{
			Welcome:     "Welcome to engine test!",
			GoalReached: "Goal! Return %.1f",
		},
	}
}

func quietLogger() Option {
	return WithLogger(log.New(io.Discard, "", 0))
}

func TestNewEnvironment(t *testing.T) {
	env, err := NewEnvironment(6, Position{Row: 0, Col: 4}, quietLogger())
	if err != nil {
		t.Fatalf("NewEnvironment failed: %v", err)
	}

	if env.AgentPosition() != (Position{Row: 5, Col: 0}) {
		t.Errorf("expected agent at start (5,0), got %s", env.AgentPosition())
	}
	if env.Return() != 0 {
		t.Errorf("expected zero return, got %v", env.Return())
	}
	if env.IsTerminated() {
		t.Error("fresh environment should be running")
	}
	if env.EpisodeID() == "" {
		t.Error("expected an episode ID")
	}
}

func TestNewEnvironment_InvalidArguments(t *testing.T) {
	if _, err := NewEnvironment(1, Position{}, quietLogger()); err == nil {
		t.Error("expected error for grid size 1")
	}
	if _, err := NewEnvironment(4, Position{Row: 4, Col: 0}, quietLogger()); err == nil {
		t.Error("expected error for goal outside the grid")
	}
}

func TestNewEngine(t *testing.T) {
	env, err := NewEngine(createTestConfig(), quietLogger())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if len(env.Grid().Penalties) != 3 {
		t.Errorf("expected 3 penalty cells, got %d", len(env.Grid().Penalties))
	}
	if env.Config().Name != "engine-test" {
		t.Errorf("expected config name 'engine-test', got %q", env.Config().Name)
	}
	if env.Snapshot().Episode != 1 {
		t.Errorf("expected episode 1 after construction, got %d", env.Snapshot().Episode)
	}
	if env.Snapshot().Message != "Welcome to engine test!" {
		t.Errorf("unexpected welcome message %q", env.Snapshot().Message)
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.Penalties = append(config.Penalties, config.Goal)

	_, err := NewEngine(config, quietLogger())
	if !errors.Is(err, ErrInvalidPenalty) {
		t.Errorf("expected ErrInvalidPenalty, got %v", err)
	}
}

func TestNewEngineWithDefaults(t *testing.T) {
	env := NewEngineWithDefaults()
	if env.Config().Name != "classic" {
		t.Errorf("expected classic config, got %q", env.Config().Name)
	}
	if env.Grid().Size != 6 {
		t.Errorf("expected 6x6 grid, got %d", env.Grid().Size)
	}
}

func TestEnvironment_Scenario(t *testing.T) {
	env, err := NewEnvironment(6, Position{Row: 0, Col: 4}, quietLogger())
	if err != nil {
		t.Fatalf("NewEnvironment failed: %v", err)
	}

	obs, info := env.Reset()
	if obs != (Position{Row: 5, Col: 0}) {
		t.Fatalf("expected reset observation (5,0), got %s", obs)
	}
	if info.DistanceToGoal <= 0 {
		t.Errorf("expected positive distance at start, got %v", info.DistanceToGoal)
	}

	var (
		ret  float64
		done bool
	)
	for i := 0; i < 5; i++ {
		obs, ret, done, _ = env.Step(int(ActionUp))
		if done {
			t.Fatalf("episode ended early at step %d", i+1)
		}
	}
	if obs != (Position{Row: 0, Col: 0}) {
		t.Fatalf("expected (0,0) after five ups, got %s", obs)
	}

	for i := 0; i < 4; i++ {
		obs, ret, done, info = env.Step(int(ActionRight))
	}

	if obs != (Position{Row: 0, Col: 4}) {
		t.Errorf("expected goal (0,4), got %s", obs)
	}
	if !done {
		t.Error("expected episode to be terminated")
	}
	if !almostEqual(ret, 99.6) {
		t.Errorf("expected return 99.6, got %v", ret)
	}
	if info.DistanceToGoal != 0 {
		t.Errorf("expected zero distance on the goal, got %v", info.DistanceToGoal)
	}
}

func TestEnvironment_ScenarioWithDefaultPenalties(t *testing.T) {
	env := NewEngineWithDefaults()
	env.logger = log.New(io.Discard, "", 0)

	actions := []int{0, 0, 0, 0, 0, 2, 2, 2, 2}
	results := env.BulkStep(actions)
	if len(results) != len(actions) {
		t.Fatalf("expected %d results, got %d", len(actions), len(results))
	}
	last := results[len(results)-1]
	if last.Reason != ReasonGoal || !almostEqual(last.Return, 99.6) {
		t.Errorf("expected goal with return 99.6, got reason=%q return=%v", last.Reason, last.Return)
	}
	if !strings.Contains(env.Snapshot().Message, "99.60") {
		t.Errorf("expected goal message with the return, got %q", env.Snapshot().Message)
	}
}

func TestEnvironment_AddPenaltyCell(t *testing.T) {
	env, _ := NewEnvironment(6, Position{Row: 0, Col: 4}, quietLogger())

	tests := []struct {
		name    string
		cell    Position
		wantErr bool
	}{
		{"valid cell", Position{Row: 2, Col: 2}, false},
		{"duplicate cell", Position{Row: 2, Col: 2}, false},
		{"outside grid", Position{Row: 6, Col: 0}, true},
		{"negative", Position{Row: -1, Col: 3}, true},
		{"on goal", Position{Row: 0, Col: 4}, true},
		{"on start", Position{Row: 5, Col: 0}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := env.AddPenaltyCell(test.cell)
			if test.wantErr && !errors.Is(err, ErrInvalidPenalty) {
				t.Errorf("expected ErrInvalidPenalty, got %v", err)
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	if len(env.Grid().Penalties) != 1 {
		t.Errorf("expected 1 penalty cell, got %d", len(env.Grid().Penalties))
	}
}

func TestEnvironment_AddPenaltyCellAfterStep(t *testing.T) {
	env, _ := NewEnvironment(6, Position{Row: 0, Col: 4}, quietLogger())
	env.Step(int(ActionUp))

	if err := env.AddPenaltyCell(Position{Row: 2, Col: 2}); !errors.Is(err, ErrSetupClosed) {
		t.Errorf("expected ErrSetupClosed, got %v", err)
	}

	env.Reset()
	if err := env.AddPenaltyCell(Position{Row: 2, Col: 2}); !errors.Is(err, ErrSetupClosed) {
		t.Errorf("expected setup to stay closed after reset, got %v", err)
	}
}

func TestEnvironment_PenaltyTerminates(t *testing.T) {
	env, _ := NewEnvironment(6, Position{Row: 0, Col: 4}, quietLogger())
	if err := env.AddPenaltyCell(Position{Row: 4, Col: 0}); err != nil {
		t.Fatalf("AddPenaltyCell failed: %v", err)
	}

	obs, ret, done, _ := env.Step(int(ActionUp))
	if obs != (Position{Row: 4, Col: 0}) || !done || !almostEqual(ret, -2) {
		t.Errorf("expected penalty termination at (4,0) with -2, got %s done=%v return=%v", obs, done, ret)
	}
}

func TestEnvironment_StepAfterTermination(t *testing.T) {
	var buf bytes.Buffer
	env, _ := NewEnvironment(2, Position{Row: 0, Col: 0}, WithLogger(log.New(&buf, "", 0)))

	_, ret, done, _ := env.Step(int(ActionUp))
	if !done || !almostEqual(ret, 100) {
		t.Fatalf("expected goal on first step, got done=%v return=%v", done, ret)
	}

	obs, ret2, done2, _ := env.Step(int(ActionDown))
	if obs != (Position{Row: 0, Col: 0}) || !done2 || ret2 != ret {
		t.Errorf("terminal state changed: obs=%s done=%v return=%v", obs, done2, ret2)
	}
	if !strings.Contains(buf.String(), "already terminated") {
		t.Errorf("expected diagnostic in log, got %q", buf.String())
	}
	if env.Snapshot().Steps != 1 {
		t.Errorf("expected steps to stay 1, got %d", env.Snapshot().Steps)
	}
}

func TestEnvironment_InvalidActionIsLogged(t *testing.T) {
	var buf bytes.Buffer
	env, _ := NewEnvironment(4, Position{Row: 0, Col: 3}, WithLogger(log.New(&buf, "", 0)))

	obs, ret, done, _ := env.Step(42)
	if obs != (Position{Row: 3, Col: 0}) || done {
		t.Errorf("invalid action should be a no-op, got obs=%s done=%v", obs, done)
	}
	if !almostEqual(ret, -0.05) {
		t.Errorf("expected step cost for invalid action, got %v", ret)
	}
	if !strings.Contains(buf.String(), "invalid action 42") {
		t.Errorf("expected diagnostic in log, got %q", buf.String())
	}
}

func TestEnvironment_Reset(t *testing.T) {
	env, _ := NewEnvironment(6, Position{Row: 0, Col: 4}, quietLogger())
	firstID := env.EpisodeID()

	// resetting an untouched episode keeps it
	env.Reset()
	if env.EpisodeID() != firstID {
		t.Error("reset before any step should keep the episode ID")
	}

	env.Step(int(ActionUp))
	env.Step(int(ActionRight))
	obs, info := env.Reset()

	if obs != (Position{Row: 5, Col: 0}) {
		t.Errorf("expected start after reset, got %s", obs)
	}
	if env.Return() != 0 || env.IsTerminated() {
		t.Errorf("expected clean episode, got return=%v terminated=%v", env.Return(), env.IsTerminated())
	}
	if env.EpisodeID() == firstID {
		t.Error("expected a new episode ID")
	}
	if !almostEqual(info.DistanceToGoal, env.Info().DistanceToGoal) {
		t.Error("reset info should match Info()")
	}

	snap := env.Snapshot()
	if snap.Episode != 2 {
		t.Errorf("expected episode 2, got %d", snap.Episode)
	}
	if snap.CurrentMovesCount != 0 || snap.TotalMoves != 2 {
		t.Errorf("expected 0 current and 2 total moves, got %d and %d", snap.CurrentMovesCount, snap.TotalMoves)
	}
}

func TestEnvironment_ResetAfterTermination(t *testing.T) {
	tests := []struct {
		name       string
		actions    []int
		wantReason TerminationReason
	}{
		{"after goal", []int{0, 0, 0, 0, 0, 2, 2, 2, 2}, ReasonGoal},
		{"after penalty", []int{0, 2}, ReasonPenalty},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env, err := NewEngine(createTestConfig(), quietLogger())
			if err != nil {
				t.Fatalf("NewEngine failed: %v", err)
			}
			env.BulkStep(test.actions)
			if !env.IsTerminated() || env.State().Reason != test.wantReason {
				t.Fatalf("expected termination by %s, got %+v", test.wantReason, env.State())
			}

			obs, info := env.Reset()
			if obs != (Position{Row: 5, Col: 0}) || env.AgentPosition() != obs {
				t.Errorf("expected start (5,0) after reset, got %s", obs)
			}
			if env.Return() != 0 {
				t.Errorf("expected return 0 after reset, got %v", env.Return())
			}
			if env.IsTerminated() || env.State().Status() != StatusRunning || env.State().Reason != ReasonNone {
				t.Errorf("expected running episode after reset, got %+v", env.State())
			}
			if !almostEqual(info.DistanceToGoal, EuclideanDistance(obs, Position{Row: 0, Col: 4})) {
				t.Errorf("unexpected distance after reset: %v", info.DistanceToGoal)
			}

			r := env.StepDetailed(int(ActionUp))
			if r.Outcome != OutcomeMoved || !almostEqual(r.Return, -0.05) {
				t.Errorf("expected a fresh step after reset, got %+v", r)
			}
		})
	}
}

func TestEnvironment_GoalMessageWithLiteralPercent(t *testing.T) {
	config := createTestConfig()
	config.Messages.GoalReached = "100% done"
	env, err := NewEngine(config, quietLogger())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	env.BulkStep([]int{0, 0, 0, 0, 0, 2, 2, 2, 2})
	if got := env.Snapshot().Message; got != "100% done" {
		t.Errorf("expected literal message, got %q", got)
	}
}

func TestEnvironment_BulkStepStopsAtTermination(t *testing.T) {
	env, _ := NewEnvironment(3, Position{Row: 1, Col: 0}, quietLogger())

	results := env.BulkStep([]int{0, 0, 2, 2})
	if len(results) != 1 {
		t.Fatalf("expected bulk step to stop after the goal, got %d results", len(results))
	}
	if !results[0].Terminated {
		t.Error("expected the single result to be terminal")
	}
}

func TestEnvironment_MoveHistory(t *testing.T) {
	env, _ := NewEnvironment(6, Position{Row: 0, Col: 4}, quietLogger())

	if env.GetLastMove() != nil {
		t.Error("expected no last move before stepping")
	}

	env.Step(int(ActionUp))
	env.Step(int(ActionDown))
	env.Step(int(ActionDown))

	history := env.GetMoveHistory()
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	if history[2].Outcome != OutcomeBlocked {
		t.Errorf("expected last move to be blocked, got %q", history[2].Outcome)
	}
	for i, entry := range history {
		if entry.MoveNumber != i+1 {
			t.Errorf("entry %d: expected move number %d, got %d", i, i+1, entry.MoveNumber)
		}
	}

	last := env.GetLastMove()
	if last == nil || last.MoveNumber != 3 {
		t.Errorf("unexpected last move %+v", last)
	}
}

func TestEnvironment_SnapshotIsACopy(t *testing.T) {
	env, _ := NewEngine(createTestConfig(), quietLogger())
	env.Step(int(ActionUp))

	snap := env.Snapshot()
	snap.Penalties[0] = Position{Row: 9, Col: 9}
	snap.MoveHistory[0].Reward = 1000

	fresh := env.Snapshot()
	if fresh.Penalties[0] == (Position{Row: 9, Col: 9}) {
		t.Error("mutating a snapshot changed the environment penalties")
	}
	if fresh.MoveHistory[0].Reward == 1000 {
		t.Error("mutating a snapshot changed the environment history")
	}
	if fresh.Status != StatusRunning {
		t.Errorf("expected running status, got %q", fresh.Status)
	}
	if len(fresh.LocalView3x3) != 3 {
		t.Errorf("expected a 3x3 local view, got %v", fresh.LocalView3x3)
	}
}

func TestNewEnvironment_WithPenalties(t *testing.T) {
	env, err := NewEnvironment(5, Position{Row: 0, Col: 4}, quietLogger(),
		WithPenalties(Position{Row: 1, Col: 1}, Position{Row: 1, Col: 1}, Position{Row: 2, Col: 3}))
	if err != nil {
		t.Fatalf("NewEnvironment failed: %v", err)
	}
	if len(env.Grid().Penalties) != 2 {
		t.Errorf("expected duplicates to collapse to 2 cells, got %d", len(env.Grid().Penalties))
	}

	_, err = NewEnvironment(5, Position{Row: 0, Col: 4}, quietLogger(), WithPenalties(Position{Row: 4, Col: 0}))
	if !errors.Is(err, ErrInvalidPenalty) {
		t.Errorf("expected ErrInvalidPenalty for a penalty on the start cell, got %v", err)
	}
}
