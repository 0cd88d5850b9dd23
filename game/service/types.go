package service

import (
	"time"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
	"github.com/wricardo/mcp-training/rushhour/game/solver"
)

// SessionInfo provides information about a play session
type SessionInfo struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	GameState      *engine.GameState    `json:"game_state"`
	PuzzleConfig   *engine.PuzzleConfig `json:"puzzle_config"`
}

// Stop reason codes reported by MoveResult and BulkMoveResult
const (
	StopBlocked          = "blocked"
	StopOffBoard         = "off_board"
	StopWrongAxis        = "wrong_axis"
	StopUnknownVehicle   = "unknown_vehicle"
	StopInvalidDirection = "invalid_direction"
	StopSolved           = "solved"
)

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool              `json:"success"`
	Move      engine.Move       `json:"move"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
	Step      *StepInfo         `json:"step,omitempty"`
	// Set when the move was rejected
	ReasonCode string `json:"reason_code,omitempty"`
	BlockedBy  int    `json:"blocked_by,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // blocked|off_board|wrong_axis|unknown_vehicle|invalid_direction|solved
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	BlockedBy      int               `json:"blocked_by,omitempty"`
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Final status aids
	Solved        bool          `json:"solved"`
	Message       string        `json:"message,omitempty"`
	PossibleMoves []engine.Move `json:"possible_moves,omitempty"`
	ExitDistance  int           `json:"exit_distance"`
}

// StepInfo is a compact record for each executed move
type StepInfo struct {
	Idx     int             `json:"idx"`
	Move    engine.Move     `json:"move"`
	From    engine.Position `json:"from"`
	To      engine.Position `json:"to"`
	Success bool            `json:"success"`
	Solved  bool            `json:"solved,omitempty"`
}

// GameEvent represents something that happened during play
type GameEvent struct {
	Type      string       `json:"type"` // "move", "blocked", "solved", "reset"
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Move      *engine.Move `json:"move,omitempty"`
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

// ConfigInfo provides information about a puzzle definition
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Difficulty  string `json:"difficulty,omitempty"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Vehicles    int    `json:"vehicles"`
}

// SolveRequest asks for the shortest solution of a grid or a stored puzzle.
// Grid takes precedence over ConfigID.
type SolveRequest struct {
	Grid     [][]int             `json:"grid,omitempty"`
	Rules    *engine.RulesConfig `json:"rules,omitempty"`
	ConfigID string              `json:"config_id,omitempty"`
	Parallel *bool               `json:"parallel,omitempty"`
}

// SolveReport is the outcome of a stateless solve
type SolveReport struct {
	ID string `json:"id"`
	*solver.Result
	ConfigID  string       `json:"config_id,omitempty"`
	Rules     engine.Rules `json:"rules"`
	Picture   []string     `json:"picture"`
	ElapsedMS int64        `json:"elapsed_ms"`
}

// HintResult suggests the next move for a session
type HintResult struct {
	SessionID      string        `json:"session_id"`
	Status         solver.Status `json:"status"`
	Move           *engine.Move  `json:"move,omitempty"`
	RemainingMoves int           `json:"remaining_moves"`
	Solution       []engine.Move `json:"solution"`
	Message        string        `json:"message"`
}
