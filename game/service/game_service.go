package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

// GameService defines all environment operations exposed to transports
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Episode Operations
	Step(ctx context.Context, sessionID string, action int, reset bool) (*StepResponse, error)
	BulkStep(ctx context.Context, sessionID string, actions []int, reset bool) (*BulkStepResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Observation
	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles environment configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active environment session
type Session struct {
	ID             string
	Engine         *engine.Environment
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
