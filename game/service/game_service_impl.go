package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

// ErrConfigUnavailable is returned when a session is requested for a config
// that cannot be loaded
var ErrConfigUnavailable = errors.New("configuration unavailable")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new environment session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			availableConfigs, listErr := s.configs.ListConfigs()
			if listErr == nil && len(availableConfigs) > 0 {
				configIDs := make([]string, 0, len(availableConfigs))
				for _, cfg := range availableConfigs {
					configIDs = append(configIDs, cfg.ConfigID)
				}
				return nil, fmt.Errorf("%w: config '%s' (%v). Available configs: %v", ErrConfigUnavailable, configName, err, configIDs)
			}
			return nil, fmt.Errorf("%w: config '%s' (%v). Use /api/configs to list available configurations", ErrConfigUnavailable, configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Snapshot:       session.Engine.Snapshot(),
		GameConfig:     session.Config,
	}, nil
}

// GetSession retrieves session information. Touching the access time is a
// write, so it takes the exclusive lock.
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configName := ""
	if sess.Config != nil {
		configName = sess.Config.Name
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(configName),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Snapshot:       sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Step applies a single action to a session's environment
func (s *gameServiceImpl) Step(ctx context.Context, sessionID string, action int, reset bool) (*StepResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}
	if reset {
		events = append(events, resetEvent(sess.Engine))
	}

	result := sess.Engine.StepDetailed(action)
	snapshot := sess.Engine.Snapshot()
	events = append(events, stepEvents(result)...)

	return &StepResponse{
		Result:   result,
		Snapshot: snapshot,
		Message:  snapshot.Message,
		Events:   events,
	}, nil
}

// BulkStep applies actions in order until they run out or the episode ends
func (s *gameServiceImpl) BulkStep(ctx context.Context, sessionID string, actions []int, reset bool) (*BulkStepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	result := &BulkStepResult{
		RequestedSteps: len(actions),
		Events:         make([]GameEvent, 0),
		Steps:          make([]engine.StepResult, 0, len(actions)),
	}

	if reset {
		result.Events = append(result.Events, resetEvent(sess.Engine))
	}

	// Limit steps to prevent abuse
	if len(actions) > engine.MaxBulkSteps {
		result.Truncated = true
		result.Limit = engine.MaxBulkSteps
		actions = actions[:engine.MaxBulkSteps]
	}

	env := sess.Engine
	result.StartPos = env.AgentPosition()
	result.StartReturn = env.Return()

	if env.IsTerminated() && len(actions) > 0 {
		result.StoppedReason = "episode already terminated; reset to start a new one"
		result.StopReasonCode = string(engine.OutcomeAlreadyTerminated)
		result.StoppedOnStep = 1
	}

	for i, a := range actions {
		if env.IsTerminated() {
			break
		}
		r := env.StepDetailed(a)
		result.Steps = append(result.Steps, r)
		result.StepsExecuted++
		result.Events = append(result.Events, stepEvents(r)...)

		if r.Terminated {
			result.StoppedReason = fmt.Sprintf("step %d ended the episode: %s", i+1, r.Reason)
			result.StopReasonCode = string(r.Reason)
			result.StoppedOnStep = i + 1
		}
	}

	snapshot := env.Snapshot()
	result.EndPos = snapshot.Agent
	result.EndReturn = snapshot.Return
	result.ReturnDelta = snapshot.Return - result.StartReturn
	result.Terminated = snapshot.Terminated
	result.Snapshot = snapshot
	result.Message = snapshot.Message

	return result, nil
}

// Reset starts a new episode for a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	sess.Engine.Reset()
	return sess.Engine.Snapshot(), nil
}

// GetSnapshot returns a read-only copy of a session's environment. Like
// GetSession it touches the access time under the exclusive lock.
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.Snapshot(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	return paginate(sess.Engine.GetMoveHistory(), opts), nil
}

// paginate slices history according to opts, applying defaults
func paginate(history []engine.MoveHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListConfigs returns available environment configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific environment configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves an environment configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func resetEvent(env *engine.Environment) GameEvent {
	obs, _ := env.Reset()
	return GameEvent{
		Type:      "reset",
		Message:   "Environment reset to the start cell",
		Timestamp: time.Now(),
		Position:  obs,
	}
}

// stepEvents generates events from a transition
func stepEvents(r engine.StepResult) []GameEvent {
	now := time.Now()
	var events []GameEvent

	switch r.Outcome {
	case engine.OutcomeMoved:
		events = append(events, GameEvent{
			Type:      "move",
			Message:   fmt.Sprintf("Moved %s to %s", r.Action, r.To),
			Timestamp: now,
			Position:  r.To,
		})
	case engine.OutcomeBlocked:
		events = append(events, GameEvent{
			Type:      "blocked",
			Message:   fmt.Sprintf("Move %s blocked at %s", r.Action, r.From),
			Timestamp: now,
			Position:  r.From,
		})
	case engine.OutcomeInvalidAction, engine.OutcomeAlreadyTerminated:
		events = append(events, GameEvent{
			Type:      string(r.Outcome),
			Message:   r.Diagnostic,
			Timestamp: now,
			Position:  r.From,
		})
	}

	switch r.Reason {
	case engine.ReasonGoal, engine.ReasonPenalty:
		if r.Outcome == engine.OutcomeAlreadyTerminated {
			break
		}
		events = append(events, GameEvent{
			Type:      string(r.Reason),
			Message:   fmt.Sprintf("Episode ended on the %s cell with return %.2f", r.Reason, r.Return),
			Timestamp: now,
			Position:  r.To,
		})
	}

	return events
}
