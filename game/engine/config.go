package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// AssetNames lists the sprite files a renderer loads, relative to an asset directory
type AssetNames struct {
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
	Goal       string `json:"goal,omitempty" yaml:"goal,omitempty"`
	Penalty    string `json:"penalty,omitempty" yaml:"penalty,omitempty"`
	Agent      string `json:"agent,omitempty" yaml:"agent,omitempty"`
}

// DefaultAssetNames are the sprite files used when a config names none.
var DefaultAssetNames = AssetNames{
	Title:      "title_pic.JPG",
	Background: "mario_background.jpg",
	Goal:       "Mario_goal_pic.JPG",
	Penalty:    "cactus2a.png",
	Agent:      "Mario_pic.png",
}

// WithDefaults fills every empty name from DefaultAssetNames
func (a AssetNames) WithDefaults() AssetNames {
	if a.Title == "" {
		a.Title = DefaultAssetNames.Title
	}
	if a.Background == "" {
		a.Background = DefaultAssetNames.Background
	}
	if a.Goal == "" {
		a.Goal = DefaultAssetNames.Goal
	}
	if a.Penalty == "" {
		a.Penalty = DefaultAssetNames.Penalty
	}
	if a.Agent == "" {
		a.Agent = DefaultAssetNames.Agent
	}
	return a
}

// Messages are the human-readable texts attached to snapshots
type Messages struct {
	Welcome           string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	GoalReached       string `json:"goal_reached,omitempty" yaml:"goal_reached,omitempty"`
	PenaltyHit        string `json:"penalty_hit,omitempty" yaml:"penalty_hit,omitempty"`
	Blocked           string `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	InvalidAction     string `json:"invalid_action,omitempty" yaml:"invalid_action,omitempty"`
	AlreadyTerminated string `json:"already_terminated,omitempty" yaml:"already_terminated,omitempty"`
}

// DefaultMessages are used for every message a config leaves empty.
var DefaultMessages = Messages{
	Welcome:           "New episode started. Reach the goal and avoid the penalty cells!",
	GoalReached:       "Goal reached! Episode return: %.2f",
	PenaltyHit:        "Penalty cell entered! Episode return: %.2f",
	Blocked:           "Blocked by the grid boundary",
	InvalidAction:     "Select a number from 0 to 3",
	AlreadyTerminated: "Episode is over; reset to start a new one",
}

// GameConfig represents an environment configuration loaded from JSON or YAML
type GameConfig struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	GridSize    int        `json:"grid_size" yaml:"grid_size"`
	Goal        Position   `json:"goal" yaml:"goal"`
	Penalties   []Position `json:"penalties,omitempty" yaml:"penalties,omitempty"`
	Rewards     *Rewards   `json:"rewards,omitempty" yaml:"rewards,omitempty"`
	CellSize    int        `json:"cell_size,omitempty" yaml:"cell_size,omitempty"`
	Assets      AssetNames `json:"assets,omitempty" yaml:"assets,omitempty"`
	Messages    Messages   `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Grid returns the static world described by the config
func (c *GameConfig) Grid() Grid {
	rewards := DefaultRewards
	if c.Rewards != nil {
		rewards = *c.Rewards
	}
	penalties := make([]Position, len(c.Penalties))
	copy(penalties, c.Penalties)
	return Grid{
		Size:      c.GridSize,
		Goal:      c.Goal,
		Penalties: penalties,
		Rewards:   rewards,
	}
}

// EffectiveCellSize returns the pixel size of one cell
func (c *GameConfig) EffectiveCellSize() int {
	if c.CellSize <= 0 {
		return DefaultCellSize
	}
	return c.CellSize
}

// EffectiveMessages returns the config messages with defaults filled in
func (c *GameConfig) EffectiveMessages() Messages {
	m := c.Messages
	if m.Welcome == "" {
		m.Welcome = DefaultMessages.Welcome
	}
	if m.GoalReached == "" {
		m.GoalReached = DefaultMessages.GoalReached
	}
	if m.PenaltyHit == "" {
		m.PenaltyHit = DefaultMessages.PenaltyHit
	}
	if m.Blocked == "" {
		m.Blocked = DefaultMessages.Blocked
	}
	if m.InvalidAction == "" {
		m.InvalidAction = DefaultMessages.InvalidAction
	}
	if m.AlreadyTerminated == "" {
		m.AlreadyTerminated = DefaultMessages.AlreadyTerminated
	}
	return m
}

// ValidateGameConfig validates a configuration for correctness
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridSize)
	}

	if config.CellSize < 0 {
		return fmt.Errorf("config validation: cell_size must not be negative, got %d", config.CellSize)
	}

	grid := config.Grid()
	if !grid.InBounds(config.Goal) {
		return fmt.Errorf("config validation: goal %s is outside the %dx%d grid", config.Goal, config.GridSize, config.GridSize)
	}

	for i, p := range config.Penalties {
		if err := validatePenalty(grid, p); err != nil {
			return fmt.Errorf("config validation: penalties[%d]: %w", i, err)
		}
	}

	if err := validateReturnMessage("goal_reached", config.Messages.GoalReached); err != nil {
		return err
	}
	if err := validateReturnMessage("penalty_hit", config.Messages.PenaltyHit); err != nil {
		return err
	}

	return nil
}

// validateReturnMessage checks a message that may show the episode return
func validateReturnMessage(field, msg string) error {
	_, verbs, bad := returnFormat(msg)
	if len(bad) > 0 {
		return fmt.Errorf("config validation: messages.%s: verb %s cannot format the return; use %%.2f", field, bad[0])
	}
	if verbs > 1 {
		return fmt.Errorf("config validation: messages.%s accepts at most one verb for the return", field)
	}
	return nil
}

// verbPattern matches a printf directive at the start of a string. A space
// flag is left out so text such as "100% done" reads as a literal percent.
var verbPattern = regexp.MustCompile(`^%[-+#0]*[0-9]*(?:\.[0-9]+)?[a-zA-Z%]`)

// returnFormat turns msg into a format string taking the episode return.
// Percent signs that start no directive are escaped. It counts the float
// verbs and collects directives that cannot format a float.
func returnFormat(msg string) (format string, verbs int, bad []string) {
	var b strings.Builder
	for i := 0; i < len(msg); {
		if msg[i] != '%' {
			b.WriteByte(msg[i])
			i++
			continue
		}

		tok := verbPattern.FindString(msg[i:])
		switch {
		case tok == "%%":
			b.WriteString("%%")
		case tok == "" || strings.HasSuffix(tok, "%"):
			b.WriteString("%%")
			tok = "%"
		case strings.ContainsRune("fFeEgGv", rune(tok[len(tok)-1])):
			b.WriteString(tok)
			verbs++
		default:
			bad = append(bad, tok)
			b.WriteString("%%" + tok[1:])
		}
		i += len(tok)
	}
	return b.String(), verbs, bad
}

// validatePenalty checks a penalty cell against the grid it is added to
func validatePenalty(g Grid, p Position) error {
	switch {
	case !g.InBounds(p):
		return fmt.Errorf("%w: %s is outside the %dx%d grid", ErrInvalidPenalty, p, g.Size, g.Size)
	case p == g.Goal:
		return fmt.Errorf("%w: %s overlaps the goal", ErrInvalidPenalty, p)
	case p == g.Start():
		return fmt.Errorf("%w: %s overlaps the start cell", ErrInvalidPenalty, p)
	}
	return nil
}

// ParseGameConfig decodes a configuration. format is "json" or "yaml".
func ParseGameConfig(data []byte, format string) (*GameConfig, error) {
	var config GameConfig
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadGameConfig loads a configuration file; the extension selects the format
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseGameConfig(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."))
}

// DefaultGameConfig returns the built-in 6x6 configuration
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "6x6 grid, goal in the top row, three penalty cells",
		GridSize:    6,
		Goal:        Position{Row: 0, Col: 4},
		Penalties: []Position{
			{Row: 2, Col: 2},
			{Row: 3, Col: 4},
			{Row: 4, Col: 1},
		},
		CellSize: DefaultCellSize,
	}
}
