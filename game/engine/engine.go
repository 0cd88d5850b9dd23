package engine

import (
	"errors"
	"fmt"
	"time"
)

// Engine provides the interactive puzzle operations
type Engine interface {
	// State management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsSolved() bool
	GetBoard() *Board

	// Movement operations
	Move(m Move) bool
	CanMove(m Move) bool
	GetPossibleMoves() []Move

	// Configuration
	GetConfig() *PuzzleConfig
	SetConfig(config *PuzzleConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// PuzzleEngine implements Engine for one puzzle
type PuzzleEngine struct {
	config   *PuzzleConfig
	messages PuzzleMessages
	board    *Board
	state    *GameState
}

// NewEngine creates an engine positioned at the puzzle's starting board
func NewEngine(config *PuzzleConfig) (*PuzzleEngine, error) {
	if err := ValidatePuzzleConfig(config); err != nil {
		return nil, err
	}

	e := &PuzzleEngine{}
	if err := e.load(config); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithDefaults creates an engine for DefaultPuzzleConfig
func NewEngineWithDefaults() *PuzzleEngine {
	e, err := NewEngine(DefaultPuzzleConfig())
	if err != nil {
		// the built-in puzzle is valid
		panic(err)
	}
	return e
}

func (e *PuzzleEngine) load(config *PuzzleConfig) error {
	board, err := config.Board()
	if err != nil {
		return err
	}
	e.config = config
	e.messages = withDefaultMessages(config.Messages)
	e.board = board
	e.state = &GameState{
		Rules:             board.Rules(),
		Message:           e.messages.Welcome,
		ConfigName:        config.Name,
		MoveHistory:       []MoveHistoryEntry{},
		CurrentMoves:      []MoveHistoryEntry{},
		CurrentMovesCount: 0,
	}
	e.syncState()
	return nil
}

// syncState copies the board into the serializable state
func (e *PuzzleEngine) syncState() {
	e.state.Grid = e.board.Grid()
	e.state.Vehicles = e.board.Vehicles()
	e.state.Rules = e.board.Rules()
	e.state.Solved = e.board.IsSolved()
	e.state.PossibleMoves = LegalMoves(e.board)
	e.state.Picture = Picture(e.board)
}

// GetState returns the current state
func (e *PuzzleEngine) GetState() *GameState {
	return e.state
}

// SetState restores a state (used for persistence loading). The grid must be a valid board.
func (e *PuzzleEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	board, err := ParseBoard(state.Grid, state.Rules)
	if err != nil {
		return fmt.Errorf("restored state: %w", err)
	}
	if state.MoveHistory == nil {
		state.MoveHistory = []MoveHistoryEntry{}
	}
	if state.CurrentMoves == nil {
		state.CurrentMoves = []MoveHistoryEntry{}
	}
	e.board = board
	e.state = state
	e.syncState()
	return nil
}

// Reset returns to the starting board, keeping the cumulative history
func (e *PuzzleEngine) Reset() *GameState {
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves

	if err := e.load(e.config); err != nil {
		// config was validated when the engine was built
		panic(err)
	}

	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal
	return e.state
}

// IsSolved reports whether the target has reached the exit
func (e *PuzzleEngine) IsSolved() bool {
	return e.board.IsSolved()
}

// GetBoard returns the current board
func (e *PuzzleEngine) GetBoard() *Board {
	return e.board
}

// Move applies m to the current board. It returns false if the move is illegal or the puzzle is already solved.
func (e *PuzzleEngine) Move(m Move) bool {
	if e.board.IsSolved() {
		e.state.Message = e.messages.Solved
		e.AddMoveToHistory(m, false)
		return false
	}

	next, err := e.board.Apply(m)
	if err != nil {
		e.state.Message = fmt.Sprintf("%s [%s]", e.messages.Blocked, moveFailure(err))
		e.AddMoveToHistory(m, false)
		return false
	}

	e.board = next
	e.AddMoveToHistory(m, true)
	e.syncState()

	if e.state.Solved {
		e.state.Message = e.messages.Solved
	} else {
		e.state.Message = fmt.Sprintf(e.messages.Moved, e.state.CurrentMovesCount)
	}
	return true
}

func moveFailure(err error) string {
	switch {
	case errors.Is(err, ErrUnknownVehicle):
		return "no such vehicle"
	case errors.Is(err, ErrUnknownDirection):
		return "no such direction"
	default:
		return err.Error()
	}
}

// CanMove reports whether m is legal right now
func (e *PuzzleEngine) CanMove(m Move) bool {
	return !e.board.IsSolved() && e.board.CanMove(m)
}

// GetPossibleMoves returns all legal moves, or none once solved
func (e *PuzzleEngine) GetPossibleMoves() []Move {
	if e.board.IsSolved() {
		return []Move{}
	}
	return LegalMoves(e.board)
}

// GetConfig returns the puzzle definition
func (e *PuzzleEngine) GetConfig() *PuzzleConfig {
	return e.config
}

// SetConfig switches to another puzzle and starts over
func (e *PuzzleEngine) SetConfig(config *PuzzleConfig) error {
	if err := ValidatePuzzleConfig(config); err != nil {
		return err
	}
	return e.load(config)
}

// GetMoveHistory returns the cumulative history
func (e *PuzzleEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *PuzzleEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// BulkMove executes moves in sequence until the puzzle is solved
func (e *PuzzleEngine) BulkMove(moves []Move) []bool {
	results := make([]bool, 0, len(moves))
	for _, m := range moves {
		if e.IsSolved() {
			break
		}
		results = append(results, e.Move(m))
	}
	return results
}

// AddMoveToHistory records an attempted move
func (e *PuzzleEngine) AddMoveToHistory(m Move, success bool) {
	entry := MoveHistoryEntry{
		Move:       m,
		Timestamp:  time.Now().Unix(),
		Success:    success,
		Solved:     e.board.IsSolved(),
		MoveNumber: e.state.TotalMoves + 1,
	}
	e.state.MoveHistory = append(e.state.MoveHistory, entry)
	e.state.TotalMoves++

	e.state.CurrentMoves = append(e.state.CurrentMoves, entry)
	e.state.CurrentMovesCount++
}
