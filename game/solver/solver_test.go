package solver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
)

var (
	up    = engine.Up
	right = engine.Right
	down  = engine.Down
	left  = engine.Left
)

func mv(id int, d engine.Direction) engine.Move {
	return engine.Move{CarID: id, Direction: d}
}

func scenarioA() [][]int {
	return [][]int{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 1, 1, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}
}

func scenarioB() [][]int {
	return [][]int{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{1, 1, 2, 2, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}
}

func scenarioC() [][]int {
	return [][]int{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 2, 0, 0, 0},
		{1, 1, 2, 3, 0, 0},
		{0, 0, 0, 3, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}
}

func scenarioD() [][]int {
	return [][]int{
		{2, 2, 2, 0, 0, 3},
		{0, 0, 4, 0, 0, 3},
		{1, 1, 4, 0, 0, 3},
		{5, 0, 4, 0, 6, 6},
		{5, 0, 0, 0, 7, 0},
		{8, 8, 8, 0, 7, 0},
	}
}

func parse(t *testing.T, grid [][]int, rules engine.Rules) *engine.Board {
	t.Helper()
	b, err := engine.ParseBoard(grid, rules)
	require.NoError(t, err)
	return b
}

// requireSolution checks that moves are legal one after another and end on a solved board
func requireSolution(t *testing.T, b *engine.Board, moves []engine.Move) {
	t.Helper()
	cur := b
	for i, m := range moves {
		next, err := cur.Apply(m)
		require.NoError(t, err, "move %d (%s)", i, m)
		cur = next
	}
	require.True(t, cur.IsSolved(), "solution does not reach the exit")
}

func TestSolve_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		grid     [][]int
		status   Status
		moves    []engine.Move
		length   int
		explored int
	}{
		{
			name:     "open road",
			grid:     scenarioA(),
			status:   StatusSolved,
			moves:    []engine.Move{mv(1, right), mv(1, right)},
			length:   2,
			explored: 4,
		},
		{
			name:     "same-row blocker",
			grid:     scenarioB(),
			status:   StatusUnsolvable,
			moves:    []engine.Move{},
			explored: 6,
		},
		{
			name:     "two vertical blockers",
			grid:     scenarioC(),
			status:   StatusSolved,
			moves:    []engine.Move{mv(2, up), mv(1, right), mv(3, down), mv(1, right), mv(1, right), mv(1, right)},
			length:   6,
			explored: 45,
		},
		{
			name:     "dense board",
			grid:     scenarioD(),
			status:   StatusSolved,
			length:   25,
			explored: 1375,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := parse(t, tt.grid, engine.DefaultRules())

			res, err := Solve(context.Background(), b, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.explored, res.StatesExplored)
			if tt.moves != nil {
				assert.Equal(t, tt.moves, res.Moves)
			}

			if tt.status == StatusSolved {
				assert.Len(t, res.Moves, tt.length)
				assert.Equal(t, tt.length, res.Depth)
				requireSolution(t, b, res.Moves)
			} else {
				assert.Empty(t, res.Moves)
				assert.False(t, res.Solvable())
			}
		})
	}
}

func TestSolve_UnsolvableReportsDeepestLevel(t *testing.T) {
	res, err := SolveGrid(context.Background(), scenarioB(), engine.DefaultRules(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusUnsolvable, res.Status)
	assert.Equal(t, 4, res.Depth)
}

// captureStdout returns what fn prints to standard output
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestSolve_DebugPrintsLevels(t *testing.T) {
	var res *Result
	out := captureStdout(t, func() {
		var err error
		res, err = SolveGrid(context.Background(), scenarioA(), engine.DefaultRules(), Options{Debug: true})
		require.NoError(t, err)
	})

	assert.Equal(t, StatusSolved, res.Status)
	assert.Contains(t, out, "[BFS] depth=0 frontier=1 visited=1\n")
	assert.Contains(t, out, "[BFS] depth=1 ")
	assert.NotContains(t, out, "depth=2", "the goal level is not expanded")

	quiet := captureStdout(t, func() {
		_, err := SolveGrid(context.Background(), scenarioA(), engine.DefaultRules(), Options{})
		require.NoError(t, err)
	})
	assert.Empty(t, quiet)
}

func TestSolve_AlreadySolved(t *testing.T) {
	grid := scenarioA()
	grid[2] = []int{0, 0, 0, 0, 1, 1}

	res, err := SolveGrid(context.Background(), grid, engine.DefaultRules(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadySolved, res.Status)
	assert.Empty(t, res.Moves)
	assert.NotNil(t, res.Moves)
	assert.True(t, res.Solvable())
	assert.Equal(t, 0, res.Depth)
}

func TestSolve_OtherExitSide(t *testing.T) {
	grid := [][]int{
		{0, 0, 0, 0},
		{0, 2, 1, 1},
		{0, 2, 0, 0},
		{0, 0, 0, 0},
	}
	rules := engine.Rules{Rows: 4, Cols: 4, TargetID: 1, ExitSide: engine.Left, ExitLine: 1}

	res, err := SolveGrid(context.Background(), grid, rules, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusSolved, res.Status)
	assert.Equal(t, []engine.Move{mv(2, down), mv(1, left), mv(1, left)}, res.Moves)
}

func TestSolve_CustomTargetID(t *testing.T) {
	grid := [][]int{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 9, 9, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}
	rules := engine.DefaultRules()
	rules.TargetID = 9

	res, err := SolveGrid(context.Background(), grid, rules, Options{})
	require.NoError(t, err)
	assert.Equal(t, []engine.Move{mv(9, right), mv(9, right)}, res.Moves)
}

func TestSolveGrid_ValidationErrorsPassThrough(t *testing.T) {
	grid := scenarioA()
	grid[2][2], grid[2][3] = 0, 0

	res, err := SolveGrid(context.Background(), grid, engine.DefaultRules(), Options{})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, engine.ErrTargetMissing))
	assert.True(t, engine.IsValidationError(err))
}

func TestSolve_NilBoard(t *testing.T) {
	_, err := Solve(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrNilBoard)
}

func TestSolve_Deterministic(t *testing.T) {
	b := parse(t, scenarioD(), engine.DefaultRules())

	first, err := Solve(context.Background(), b, Options{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := Solve(context.Background(), b, Options{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSolve_ParallelMatchesSequential(t *testing.T) {
	grids := [][][]int{scenarioA(), scenarioB(), scenarioC(), scenarioD()}

	for i, grid := range grids {
		b := parse(t, grid, engine.DefaultRules())

		seq, err := Solve(context.Background(), b, Options{})
		require.NoError(t, err)

		for _, workers := range []int{2, 3, 8} {
			par, err := Solve(context.Background(), b, Options{Parallel: true, Workers: workers})
			require.NoError(t, err)
			assert.Equal(t, seq, par, "grid %d with %d workers", i, workers)
		}
	}
}

func TestSolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := parse(t, scenarioD(), engine.DefaultRules())
	res, err := Solve(ctx, b, Options{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Solve(ctx, b, Options{Parallel: true, Workers: 4})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolve_InputUntouched(t *testing.T) {
	b := parse(t, scenarioC(), engine.DefaultRules())
	before := b.State()

	_, err := Solve(context.Background(), b, Options{})
	require.NoError(t, err)
	assert.Equal(t, before, b.State())
}

// bruteForceMinimum finds the shortest solution length by iterative deepening
// without any state memo, or -1 if none exists within limit.
func bruteForceMinimum(b *engine.Board, limit int) int {
	var dfs func(cur *engine.Board, budget int) bool
	dfs = func(cur *engine.Board, budget int) bool {
		if cur.IsSolved() {
			return true
		}
		if budget == 0 {
			return false
		}
		for _, m := range engine.LegalMoves(cur) {
			next, err := cur.Apply(m)
			if err != nil {
				continue
			}
			if dfs(next, budget-1) {
				return true
			}
		}
		return false
	}

	for depth := 0; depth <= limit; depth++ {
		if dfs(b, depth) {
			return depth
		}
	}
	return -1
}

func TestSolve_MinimalAgainstBruteForce(t *testing.T) {
	tests := []struct {
		name  string
		grid  [][]int
		rules engine.Rules
	}{
		{"open road", scenarioA(), engine.DefaultRules()},
		{"two vertical blockers", scenarioC(), engine.DefaultRules()},
		{"4x4", [][]int{
			{0, 2, 2, 2},
			{4, 4, 0, 0},
			{1, 1, 0, 3},
			{0, 0, 0, 3},
		}, engine.Rules{Rows: 4, Cols: 4, TargetID: 1, ExitSide: engine.Right, ExitLine: 2}},
		{"5x5", [][]int{
			{0, 0, 0, 0, 0},
			{0, 0, 0, 0, 0},
			{1, 1, 0, 0, 3},
			{0, 0, 0, 0, 3},
			{0, 0, 0, 2, 2},
		}, engine.Rules{Rows: 5, Cols: 5, TargetID: 1, ExitSide: engine.Right, ExitLine: 2}},
		{"5x4", [][]int{
			{0, 0, 4, 4},
			{0, 0, 2, 0},
			{1, 1, 2, 0},
			{0, 3, 3, 0},
			{0, 0, 0, 0},
		}, engine.Rules{Rows: 5, Cols: 4, TargetID: 1, ExitSide: engine.Right, ExitLine: 2}},
		{"4x5", [][]int{
			{0, 0, 0, 2, 2},
			{0, 0, 0, 0, 0},
			{1, 1, 3, 0, 0},
			{0, 0, 3, 0, 0},
		}, engine.Rules{Rows: 4, Cols: 5, TargetID: 1, ExitSide: engine.Right, ExitLine: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := parse(t, tt.grid, tt.rules)

			res, err := Solve(context.Background(), b, Options{})
			require.NoError(t, err)
			require.Equal(t, StatusSolved, res.Status)
			requireSolution(t, b, res.Moves)

			assert.Equal(t, bruteForceMinimum(b, len(res.Moves)), len(res.Moves))
		})
	}
}

func TestResultJSON(t *testing.T) {
	res := &Result{Status: StatusSolved, Moves: []engine.Move{mv(2, up), mv(1, right)}, StatesExplored: 7, Depth: 2}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"status":"solved","moves":[{"carId":2,"direction":0},{"carId":1,"direction":1}],"states_explored":7,"depth":2}`,
		string(data))

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *res, decoded)

	empty, err := json.Marshal(&Result{Status: StatusUnsolvable, Moves: []engine.Move{}})
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"moves":[]`)
	assert.Contains(t, string(empty), `"unsolvable"`)
}
