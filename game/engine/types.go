package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is one of the four discrete moves an agent can take.
type Action int

const (
	ActionUp    Action = 0
	ActionDown  Action = 1
	ActionRight Action = 2
	ActionLeft  Action = 3

	// Validation constants
	MinGridSize     = 2
	MaxGridSize     = 50
	DefaultCellSize = 100
	MaxBulkSteps    = 100
	NumActions      = 4
)

// String returns the direction name of the action
func (a Action) String() string {
	switch a {
	case ActionUp:
		return "up"
	case ActionDown:
		return "down"
	case ActionRight:
		return "right"
	case ActionLeft:
		return "left"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Valid reports whether the action is in the discrete action space
func (a Action) Valid() bool {
	return a >= ActionUp && a <= ActionLeft
}

// ParseAction converts a direction name or digit into an Action.
// The bool is false when the input names no known action.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return ActionUp, true
	case "down", "d":
		return ActionDown, true
	case "right", "r":
		return ActionRight, true
	case "left", "l":
		return ActionLeft, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return Action(n), true
}

// Position is a (row, column) coordinate on the grid
type Position struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Rewards holds the reward applied for each kind of transition
type Rewards struct {
	Goal    float64 `json:"goal" yaml:"goal"`
	Penalty float64 `json:"penalty" yaml:"penalty"`
	Step    float64 `json:"step" yaml:"step"`
}

// DefaultRewards is the reward table used when a config does not override it.
var DefaultRewards = Rewards{
	Goal:    100,
	Penalty: -2,
	Step:    -0.05,
}

// Outcome tags what happened to the agent's position during a transition.
type Outcome string

const (
	OutcomeMoved             Outcome = "moved"
	OutcomeBlocked           Outcome = "blocked"
	OutcomeInvalidAction     Outcome = "invalid_action"
	OutcomeAlreadyTerminated Outcome = "already_terminated"
)

// TerminationReason explains why an episode ended
type TerminationReason string

const (
	ReasonNone    TerminationReason = ""
	ReasonGoal    TerminationReason = "goal"
	ReasonPenalty TerminationReason = "penalty"
)

// Status is the episode state machine: running until a terminal cell is entered.
type Status string

const (
	StatusRunning    Status = "running"
	StatusTerminated Status = "terminated"
)

// State is the per-episode state threaded through Transition.
type State struct {
	Agent      Position          `json:"agent"`
	Return     float64           `json:"return"`
	Terminated bool              `json:"terminated"`
	Reason     TerminationReason `json:"reason,omitempty"`
	Steps      int               `json:"steps"`
}

// Status returns the state machine status of the episode
func (s State) Status() Status {
	if s.Terminated {
		return StatusTerminated
	}
	return StatusRunning
}

// Info carries auxiliary data recomputed after every transition
type Info struct {
	DistanceToGoal float64 `json:"distance_to_goal"`
}

// Map returns the info in the dictionary shape RL tooling expects
func (i Info) Map() map[string]float64 {
	return map[string]float64{"distance_to_goal": i.DistanceToGoal}
}

// StepResult describes a single transition
type StepResult struct {
	Action     Action            `json:"action"`
	From       Position          `json:"from"`
	To         Position          `json:"to"`
	Outcome    Outcome           `json:"outcome"`
	Reward     float64           `json:"reward"`
	Return     float64           `json:"return"`
	Terminated bool              `json:"terminated"`
	Reason     TerminationReason `json:"reason,omitempty"`
	Info       Info              `json:"info"`
	Diagnostic string            `json:"diagnostic,omitempty"`
}

// ActionSpace describes the discrete action space
type ActionSpace struct {
	N int `json:"n"`
}

// ObservationSpace describes the bounded integer observation space
type ObservationSpace struct {
	Low   int    `json:"low"`
	High  int    `json:"high"`
	Shape [1]int `json:"shape"`
}

// MoveHistoryEntry represents a single step in the environment history
type MoveHistoryEntry struct {
	Action     Action   `json:"action"`
	From       Position `json:"from"`
	To         Position `json:"to"`
	Outcome    Outcome  `json:"outcome"`
	Reward     float64  `json:"reward"`
	Return     float64  `json:"return"`
	Terminated bool     `json:"terminated"`
	Episode    int      `json:"episode"`
	Timestamp  int64    `json:"timestamp"`
	MoveNumber int      `json:"move_number"`
}

// Snapshot is a read-only copy of an environment handed to observers
type Snapshot struct {
	ConfigName string            `json:"config_name"`
	GridSize   int               `json:"grid_size"`
	CellSize   int               `json:"cell_size"`
	Start      Position          `json:"start"`
	Goal       Position          `json:"goal"`
	Penalties  []Position        `json:"penalties"`
	Agent      Position          `json:"agent"`
	Return     float64           `json:"return"`
	Terminated bool              `json:"terminated"`
	Reason     TerminationReason `json:"reason,omitempty"`
	Status     Status            `json:"status"`
	Info       Info              `json:"info"`
	EpisodeID  string            `json:"episode_id"`
	Episode    int               `json:"episode"`
	Steps      int               `json:"steps"`
	Message    string            `json:"message"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves mirrors MoveHistory for the running episode only; reset clears it.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`

	LocalView3x3 []string `json:"local_view_3x3,omitempty"`
}
