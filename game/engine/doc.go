// Package engine provides the board model and move rules for Rush Hour puzzles.
//
// The engine package implements:
//   - Parsing and validating raw grids into boards of vehicles
//   - Legal move generation and move application
//   - Canonical state keys for search
//   - Puzzle definitions loaded from JSON files
//   - Interactive play with move history
//
// Core Types:
//
// Board is an immutable snapshot of the grid; Vehicle is a read-only view of one
// occupant. Rules carry the board size and the target/exit conventions, which
// default to a 6x6 board where vehicle 1 leaves row 2 through the right edge.
// Move is a single-cell slide of one vehicle, encoded on the wire as
// {"carId": n, "direction": 0..3} with Up=0, Right=1, Down=2, Left=3.
//
// Usage:
//
//	board, err := engine.ParseBoard(grid, engine.DefaultRules())
//	if err != nil {
//		// errors.Is(err, engine.ErrTargetMissing) etc. identify the invariant
//		log.Fatal(err)
//	}
//
//	for _, m := range engine.LegalMoves(board) {
//		next, _ := board.Apply(m)
//		fmt.Println(m, next.IsSolved())
//	}
//
// Interactive Play:
//
// PuzzleEngine wraps a PuzzleConfig and tracks the current board, the
// cumulative move history and the moves made since the last reset. Illegal
// moves are recorded as failed attempts and leave the board unchanged.
package engine
