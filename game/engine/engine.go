package engine

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidPenalty = errors.New("invalid penalty cell")
	ErrSetupClosed    = errors.New("penalty cells can only be added before the first step")
)

// Engine provides the main interface for environment operations
type Engine interface {
	// Episode interface
	Reset() (Position, Info)
	Step(action int) (Position, float64, bool, Info)
	StepDetailed(action int) StepResult

	// Setup
	AddPenaltyCell(p Position) error

	// State
	State() State
	Grid() Grid
	Snapshot() *Snapshot
	IsTerminated() bool
	Return() float64
	AgentPosition() Position

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// Option configures an Environment
type Option func(*Environment)

// WithRewards overrides the reward table
func WithRewards(r Rewards) Option {
	return func(e *Environment) {
		e.grid.Rewards = r
	}
}

// WithLogger sets the logger diagnostics are written to
func WithLogger(l *log.Logger) Option {
	return func(e *Environment) {
		e.logger = l
	}
}

// WithPenalties registers penalty cells at construction
func WithPenalties(cells ...Position) Option {
	return func(e *Environment) {
		e.pending = append(e.pending, cells...)
	}
}

// WithConfig attaches the config the environment was built from
func WithConfig(c *GameConfig) Option {
	return func(e *Environment) {
		e.config = c
	}
}

// Environment is a grid world with the standard reset/step interface. It wraps
// the functional Grid.Transition and keeps the episode state between calls.
// An Environment is not safe for concurrent use.
type Environment struct {
	grid   Grid
	config *GameConfig
	logger *log.Logger

	pending []Position

	state State
	info  Info

	episodeID string
	episode   int
	stepped   bool
	message   string

	moveHistory  []MoveHistoryEntry
	currentMoves []MoveHistoryEntry
}

// NewEnvironment creates an environment on a gridSize x gridSize grid with
// the given goal. Penalty cells are registered afterwards with AddPenaltyCell.
func NewEnvironment(gridSize int, goal Position, opts ...Option) (*Environment, error) {
	if gridSize < MinGridSize || gridSize > MaxGridSize {
		return nil, fmt.Errorf("grid size must be between %d and %d, got %d", MinGridSize, MaxGridSize, gridSize)
	}

	e := &Environment{
		grid: Grid{
			Size:    gridSize,
			Goal:    goal,
			Rewards: DefaultRewards,
		},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.grid.InBounds(goal) {
		return nil, fmt.Errorf("goal %s is outside the %dx%d grid", goal, gridSize, gridSize)
	}
	for _, p := range e.pending {
		if err := e.AddPenaltyCell(p); err != nil {
			return nil, err
		}
	}
	e.pending = nil

	e.Reset()
	return e, nil
}

// NewEngine creates an environment from a validated configuration
func NewEngine(config *GameConfig, opts ...Option) (*Environment, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	grid := config.Grid()
	opts = append([]Option{
		WithRewards(grid.Rewards),
		WithConfig(config),
		WithPenalties(grid.Penalties...),
	}, opts...)
	return NewEnvironment(grid.Size, grid.Goal, opts...)
}

// NewEngineWithDefaults creates an environment from DefaultGameConfig
func NewEngineWithDefaults() *Environment {
	e, err := NewEngine(DefaultGameConfig())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return e
}

// AddPenaltyCell registers a penalty cell. Adding a cell twice is a no-op.
func (e *Environment) AddPenaltyCell(p Position) error {
	if e.stepped {
		return ErrSetupClosed
	}
	if err := validatePenalty(e.grid, p); err != nil {
		return err
	}
	if e.grid.IsPenalty(p) {
		return nil
	}
	e.grid.Penalties = append(e.grid.Penalties, p)
	return nil
}

// Reset begins a new episode and returns the start observation and info.
// Resetting an episode that has not taken a step keeps its episode ID.
func (e *Environment) Reset() (Position, Info) {
	fresh := e.episodeID != "" && e.state.Steps == 0
	e.state, e.info = e.grid.Reset()
	if !fresh {
		e.episodeID = uuid.NewString()
		e.episode++
	}
	e.currentMoves = []MoveHistoryEntry{}
	e.message = e.messages().Welcome
	return e.state.Agent, e.info
}

// Step applies action and returns the observation, the cumulative episode
// return, whether the episode terminated and the info.
func (e *Environment) Step(action int) (Position, float64, bool, Info) {
	r := e.StepDetailed(action)
	return r.To, r.Return, r.Terminated, r.Info
}

// StepDetailed applies action and returns the full transition record
func (e *Environment) StepDetailed(action int) StepResult {
	e.stepped = true

	next, result := e.grid.Transition(e.state, Action(action))
	if result.Diagnostic != "" {
		e.logger.Printf("[ENV] episode=%d step=%d: %s", e.episode, e.state.Steps, result.Diagnostic)
	}

	e.state = next
	e.info = result.Info
	e.message = e.describe(result)
	e.addMoveToHistory(result)
	return result
}

// BulkStep applies actions in order until they run out or the episode ends
func (e *Environment) BulkStep(actions []int) []StepResult {
	results := make([]StepResult, 0, len(actions))
	for _, a := range actions {
		if e.state.Terminated {
			break
		}
		results = append(results, e.StepDetailed(a))
	}
	return results
}

// State returns a copy of the current episode state
func (e *Environment) State() State {
	return e.state
}

// Grid returns a copy of the static world
func (e *Environment) Grid() Grid {
	g := e.grid
	g.Penalties = append([]Position(nil), e.grid.Penalties...)
	return g
}

// Config returns the config the environment was built from, if any
func (e *Environment) Config() *GameConfig {
	return e.config
}

// Info returns the info computed by the last reset or step
func (e *Environment) Info() Info {
	return e.info
}

// IsTerminated returns whether the current episode has ended
func (e *Environment) IsTerminated() bool {
	return e.state.Terminated
}

// Return returns the cumulative reward of the current episode
func (e *Environment) Return() float64 {
	return e.state.Return
}

// AgentPosition returns the current agent cell
func (e *Environment) AgentPosition() Position {
	return e.state.Agent
}

// EpisodeID returns the identifier of the current episode
func (e *Environment) EpisodeID() string {
	return e.episodeID
}

// GetMoveHistory returns the complete step history across episodes
func (e *Environment) GetMoveHistory() []MoveHistoryEntry {
	return e.moveHistory
}

// GetLastMove returns the last step taken, or nil if none
func (e *Environment) GetLastMove() *MoveHistoryEntry {
	if len(e.moveHistory) == 0 {
		return nil
	}
	return &e.moveHistory[len(e.moveHistory)-1]
}

// Snapshot returns a deep copy of the environment for observers
func (e *Environment) Snapshot() *Snapshot {
	configName := ""
	cellSize := DefaultCellSize
	if e.config != nil {
		configName = e.config.Name
		cellSize = e.config.EffectiveCellSize()
	}

	return &Snapshot{
		ConfigName:        configName,
		GridSize:          e.grid.Size,
		CellSize:          cellSize,
		Start:             e.grid.Start(),
		Goal:              e.grid.Goal,
		Penalties:         append([]Position{}, e.grid.Penalties...),
		Agent:             e.state.Agent,
		Return:            e.state.Return,
		Terminated:        e.state.Terminated,
		Reason:            e.state.Reason,
		Status:            e.state.Status(),
		Info:              e.info,
		EpisodeID:         e.episodeID,
		Episode:           e.episode,
		Steps:             e.state.Steps,
		Message:           e.message,
		MoveHistory:       append([]MoveHistoryEntry{}, e.moveHistory...),
		TotalMoves:        len(e.moveHistory),
		CurrentMoves:      append([]MoveHistoryEntry{}, e.currentMoves...),
		CurrentMovesCount: len(e.currentMoves),
		LocalView3x3:      e.grid.localView3x3(e.state.Agent),
	}
}

func (e *Environment) messages() Messages {
	if e.config != nil {
		return e.config.EffectiveMessages()
	}
	return DefaultMessages
}

// describe builds the snapshot message for a transition
func (e *Environment) describe(r StepResult) string {
	m := e.messages()
	switch {
	case r.Outcome == OutcomeAlreadyTerminated:
		return m.AlreadyTerminated
	case r.Reason == ReasonGoal:
		return withReturn(m.GoalReached, r.Return)
	case r.Reason == ReasonPenalty:
		return withReturn(m.PenaltyHit, r.Return)
	case r.Outcome == OutcomeInvalidAction:
		return m.InvalidAction
	case r.Outcome == OutcomeBlocked:
		return m.Blocked
	default:
		return fmt.Sprintf("Moved %s to %s, distance to goal %.2f", r.Action, r.To, r.Info.DistanceToGoal)
	}
}

// withReturn formats msg with the episode return when it carries a verb.
// Any other percent sign is shown as written.
func withReturn(msg string, ret float64) string {
	format, verbs, _ := returnFormat(msg)
	if verbs == 0 {
		return strings.ReplaceAll(format, "%%", "%")
	}
	return fmt.Sprintf(format, ret)
}

// addMoveToHistory appends a step to the cumulative and current-episode histories
func (e *Environment) addMoveToHistory(r StepResult) {
	entry := MoveHistoryEntry{
		Action:     r.Action,
		From:       r.From,
		To:         r.To,
		Outcome:    r.Outcome,
		Reward:     r.Reward,
		Return:     r.Return,
		Terminated: r.Terminated,
		Episode:    e.episode,
		Timestamp:  time.Now().Unix(),
		MoveNumber: len(e.moveHistory) + 1,
	}
	e.moveHistory = append(e.moveHistory, entry)
	e.currentMoves = append(e.currentMoves, entry)
}

var _ Engine = (*Environment)(nil)
