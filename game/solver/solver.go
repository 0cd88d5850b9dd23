package solver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
)

// ErrNilBoard is returned when Solve is called without a board
var ErrNilBoard = errors.New("solver: nil board")

// Status is the outcome of a search
type Status int

const (
	StatusSolved Status = iota
	StatusAlreadySolved
	StatusUnsolvable
)

// frontiers smaller than this are expanded inline even in parallel mode
const minParallelFrontier = 64

func (s Status) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusAlreadySolved:
		return "already_solved"
	case StatusUnsolvable:
		return "unsolvable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalJSON encodes the status by name
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("status must be a string: %w", err)
	}
	switch name {
	case "solved":
		*s = StatusSolved
	case "already_solved":
		*s = StatusAlreadySolved
	case "unsolvable":
		*s = StatusUnsolvable
	default:
		return fmt.Errorf("unknown status %q", name)
	}
	return nil
}

// Result is the outcome of Solve
type Result struct {
	Status Status        `json:"status"`
	Moves  []engine.Move `json:"moves"`
	// StatesExplored counts states taken off the frontier, the goal included
	StatesExplored int `json:"states_explored"`
	// Depth is the solution length, or the deepest level reached when unsolvable
	Depth int `json:"depth"`
}

// Solvable reports whether the target can reach the exit
func (r *Result) Solvable() bool {
	return r.Status != StatusUnsolvable
}

// Options tune a search. The zero value runs a sequential search.
type Options struct {
	Parallel bool
	Workers  int  // defaults to GOMAXPROCS
	Debug    bool // log every BFS level
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// node is a frontier entry
type node struct {
	board *engine.Board
	state engine.State
}

type successor struct {
	node
	move engine.Move
}

// search holds the mutable state of one Solve call
type search struct {
	opts     Options
	start    *engine.Board
	visited  map[engine.State]struct{}
	parents  map[engine.State]Parent
	explored int
}

// SolveGrid parses grid under rules and solves it
func SolveGrid(ctx context.Context, grid [][]int, rules engine.Rules, opts Options) (*Result, error) {
	board, err := engine.ParseBoard(grid, rules)
	if err != nil {
		return nil, err
	}
	return Solve(ctx, board, opts)
}

// Solve finds a minimum-length move sequence that brings the target vehicle to the exit
func Solve(ctx context.Context, board *engine.Board, opts Options) (*Result, error) {
	if board == nil {
		return nil, ErrNilBoard
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if board.IsSolved() {
		return &Result{Status: StatusAlreadySolved, Moves: []engine.Move{}, StatesExplored: 1}, nil
	}

	s := &search{
		opts:    opts,
		start:   board,
		visited: make(map[engine.State]struct{}),
		parents: make(map[engine.State]Parent),
	}
	return s.run(ctx)
}

func (s *search) run(ctx context.Context) (*Result, error) {
	root := node{board: s.start, state: s.start.State()}
	s.visited[root.state] = struct{}{}
	frontier := []node{root}

	depth := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// goals are checked in frontier order before anything on this level is expanded
		for i, n := range frontier {
			if n.board.IsSolved() {
				s.explored += i + 1
				return s.solved(n.state, depth)
			}
		}
		s.explored += len(frontier)

		if s.opts.Debug {
			fmt.Printf("[BFS] depth=%d frontier=%d visited=%d\n", depth, len(frontier), len(s.visited))
		}

		expansions, err := s.expand(ctx, frontier)
		if err != nil {
			return nil, err
		}

		next := make([]node, 0, len(frontier))
		for i, succs := range expansions {
			for _, succ := range succs {
				if _, seen := s.visited[succ.state]; seen {
					continue
				}
				s.visited[succ.state] = struct{}{}
				s.parents[succ.state] = Parent{Prev: frontier[i].state, Move: succ.move}
				next = append(next, succ.node)
			}
		}

		if len(next) == 0 {
			return &Result{
				Status:         StatusUnsolvable,
				Moves:          []engine.Move{},
				StatesExplored: s.explored,
				Depth:          depth,
			}, nil
		}
		frontier = next
		depth++
	}
}

func (s *search) solved(goal engine.State, depth int) (*Result, error) {
	moves, err := Reconstruct(goal, s.parents)
	if err != nil {
		return nil, err
	}
	if len(moves) != depth {
		return nil, fmt.Errorf("%w: %d moves for a goal at depth %d", ErrBrokenPath, len(moves), depth)
	}
	if err := replay(s.start, moves); err != nil {
		return nil, err
	}
	return &Result{
		Status:         StatusSolved,
		Moves:          moves,
		StatesExplored: s.explored,
		Depth:          depth,
	}, nil
}

// expand returns the successors of every frontier node, indexed like the frontier
func (s *search) expand(ctx context.Context, frontier []node) ([][]successor, error) {
	out := make([][]successor, len(frontier))

	workers := s.opts.workers()
	if !s.opts.Parallel || workers < 2 || len(frontier) < minParallelFrontier {
		for i, n := range frontier {
			succs, err := successors(n)
			if err != nil {
				return nil, err
			}
			out[i] = succs
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (len(frontier) + workers - 1) / workers
	for start := 0; start < len(frontier); start += chunk {
		lo, hi := start, min(start+chunk, len(frontier))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				succs, err := successors(frontier[i])
				if err != nil {
					return err
				}
				out[i] = succs
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// successors applies every legal move of n in LegalMoves order
func successors(n node) ([]successor, error) {
	moves := engine.LegalMoves(n.board)
	out := make([]successor, 0, len(moves))
	for _, m := range moves {
		next, err := n.board.Apply(m)
		if err != nil {
			return nil, fmt.Errorf("solver: generated move %s: %w", m, err)
		}
		out = append(out, successor{node: node{board: next, state: next.State()}, move: m})
	}
	return out, nil
}
