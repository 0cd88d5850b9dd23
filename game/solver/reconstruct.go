package solver

import (
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
)

// ErrBrokenPath means the parent table does not lead back to the start state
var ErrBrokenPath = errors.New("solver: broken parent chain")

// Parent records how a state was first reached
type Parent struct {
	Prev engine.State
	Move engine.Move
}

// Reconstruct walks the parent table from goal back to the start state (the
// one state without an entry) and returns the moves in forward order.
func Reconstruct(goal engine.State, parents map[engine.State]Parent) ([]engine.Move, error) {
	moves := []engine.Move{}
	cur := goal
	for {
		p, ok := parents[cur]
		if !ok {
			break
		}
		if len(moves) >= len(parents) {
			return nil, fmt.Errorf("%w: cycle after %d steps", ErrBrokenPath, len(moves))
		}
		moves = append(moves, p.Move)
		cur = p.Prev
	}

	for i, j := 0, len(moves)-1; i < j; i, j = i+1, j-1 {
		moves[i], moves[j] = moves[j], moves[i]
	}
	return moves, nil
}

// replay checks that moves lead from start to a solved board
func replay(start *engine.Board, moves []engine.Move) error {
	end, err := start.ApplyAll(moves)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrokenPath, err)
	}
	if !end.IsSolved() {
		return fmt.Errorf("%w: path of %d moves does not reach the exit", ErrBrokenPath, len(moves))
	}
	return nil
}
