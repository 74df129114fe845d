package service

import (
	"time"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

// SessionInfo provides information about an environment session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Snapshot       *engine.Snapshot   `json:"snapshot"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// StepResponse contains the result of a single step
type StepResponse struct {
	Result   engine.StepResult `json:"result"`
	Snapshot *engine.Snapshot  `json:"snapshot"`
	Message  string            `json:"message"`
	Events   []GameEvent       `json:"events,omitempty"`
}

// BulkStepResult contains the result of a sequence of steps
type BulkStepResult struct {
	StepsExecuted  int  `json:"steps_executed"`
	RequestedSteps int  `json:"requested_steps"`
	Truncated      bool `json:"truncated,omitempty"`
	Limit          int  `json:"limit,omitempty"`

	StartPos    engine.Position `json:"start_pos"`
	EndPos      engine.Position `json:"end_pos"`
	StartReturn float64         `json:"start_return"`
	EndReturn   float64         `json:"end_return"`
	ReturnDelta float64         `json:"return_delta"`

	// Per-step trace for this call only
	Steps []engine.StepResult `json:"steps"`

	StoppedReason  string `json:"stopped_reason,omitempty"`
	StopReasonCode string `json:"stop_reason_code,omitempty"` // goal|penalty|already_terminated
	StoppedOnStep  int    `json:"stopped_on_step,omitempty"`  // 1-based index of the step that ended the episode

	Terminated bool             `json:"terminated"`
	Snapshot   *engine.Snapshot `json:"snapshot"`
	Message    string           `json:"message,omitempty"`
	Events     []GameEvent      `json:"events"`
}

// GameEvent represents something that happened during an episode
type GameEvent struct {
	Type      string          `json:"type"` // "move", "blocked", "invalid_action", "goal", "penalty", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about an environment configuration
type ConfigInfo struct {
	Filename     string          `json:"filename"`
	ConfigID     string          `json:"config_id"` // The identifier to use for session creation
	Name         string          `json:"name"`      // Display name
	Description  string          `json:"description"`
	GridSize     int             `json:"grid_size"`
	Goal         engine.Position `json:"goal"`
	PenaltyCount int             `json:"penalty_count"`
}
