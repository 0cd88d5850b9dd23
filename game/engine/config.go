package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RulesConfig is the optional rules block of a puzzle file. Unset fields keep DefaultRules values.
type RulesConfig struct {
	Rows     int        `json:"rows,omitempty"`
	Cols     int        `json:"cols,omitempty"`
	TargetID int        `json:"target_id,omitempty"`
	ExitSide *Direction `json:"exit_side,omitempty"`
	ExitLine *int       `json:"exit_line,omitempty"`
}

// Resolve merges the configured values over DefaultRules
func (rc *RulesConfig) Resolve() Rules {
	rules := DefaultRules()
	if rc == nil {
		return rules
	}
	if rc.Rows > 0 {
		rules.Rows = rc.Rows
	}
	if rc.Cols > 0 {
		rules.Cols = rc.Cols
	}
	if rc.TargetID > 0 {
		rules.TargetID = rc.TargetID
	}
	if rc.ExitSide != nil {
		rules.ExitSide = *rc.ExitSide
	}
	if rc.ExitLine != nil {
		rules.ExitLine = *rc.ExitLine
	}
	return rules
}

// PuzzleMessages are the texts shown during interactive play
type PuzzleMessages struct {
	Welcome string `json:"welcome,omitempty"`
	Solved  string `json:"solved,omitempty"`
	Moved   string `json:"moved,omitempty"`
	Blocked string `json:"blocked,omitempty"`
}

// PuzzleConfig is a puzzle definition as stored in the configs directory
type PuzzleConfig struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Difficulty  string         `json:"difficulty,omitempty"`
	Grid        [][]int        `json:"grid"`
	Rules       *RulesConfig   `json:"rules,omitempty"`
	Messages    PuzzleMessages `json:"messages,omitempty"`
}

// ResolvedRules returns the rules the puzzle is played under
func (c *PuzzleConfig) ResolvedRules() Rules {
	return c.Rules.Resolve()
}

// Board parses the puzzle's grid
func (c *PuzzleConfig) Board() (*Board, error) {
	return ParseBoard(c.Grid, c.ResolvedRules())
}

// ValidatePuzzleConfig validates a puzzle definition, including its board
func ValidatePuzzleConfig(config *PuzzleConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if len(config.Name) > MaxConfigNameLn {
		return fmt.Errorf("config validation: name must be at most %d characters", MaxConfigNameLn)
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}
	if len(config.Grid) == 0 {
		return fmt.Errorf("config validation: grid is required")
	}
	if config.Messages.Moved != "" && !strings.Contains(config.Messages.Moved, "%d") {
		return fmt.Errorf("config validation: messages.moved must contain %%d for the move count")
	}

	if _, err := config.Board(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// LoadPuzzleConfig loads a puzzle definition from a JSON file
func LoadPuzzleConfig(filename string) (*PuzzleConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config PuzzleConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidatePuzzleConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigByName loads a puzzle definition by name from the configs directory
func LoadConfigByName(configName string) (*PuzzleConfig, error) {
	if !strings.HasSuffix(configName, ".json") {
		configName = configName + ".json"
	}

	config, err := LoadPuzzleConfig(filepath.Join("configs", configName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file '%s' not found", configName)
		}
		return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
	}
	return config, nil
}

// DefaultPuzzleConfig is the built-in puzzle used when no configs are available
func DefaultPuzzleConfig() *PuzzleConfig {
	return &PuzzleConfig{
		Name:        "default",
		Description: "Two vertical blockers stand between the red car and the exit",
		Difficulty:  "beginner",
		Grid: [][]int{
			{0, 0, 0, 0, 0, 0},
			{0, 0, 2, 0, 0, 0},
			{1, 1, 2, 3, 0, 0},
			{0, 0, 0, 3, 0, 0},
			{0, 0, 0, 0, 0, 0},
			{0, 0, 0, 0, 0, 0},
		},
	}
}

// withDefaultMessages fills unset messages
func withDefaultMessages(m PuzzleMessages) PuzzleMessages {
	if m.Welcome == "" {
		m.Welcome = "Slide the vehicles to free car 1 through the exit."
	}
	if m.Solved == "" {
		m.Solved = "Solved! The target vehicle reached the exit."
	}
	if m.Moved == "" {
		m.Moved = "Moves so far: %d"
	}
	if m.Blocked == "" {
		m.Blocked = "That vehicle can't move there!"
	}
	return m
}
