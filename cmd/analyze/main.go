// Command analyze prints quick, human-readable heuristics about the puzzle
// files in a configs directory. It summarizes board size, vehicle counts,
// which vehicles block the exit and how far the target still has to travel,
// then runs the solver to report the minimum number of moves.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
	"github.com/wricardo/mcp-training/rushhour/game/solver"
)

// Analysis is the summary of one puzzle file.
type Analysis struct {
	Name           string
	Rows, Cols     int
	Cars, Trucks   int
	Blockers       []int
	ExitDistance   int
	Status         solver.Status
	MinMoves       int
	StatesExplored int
	Rating         string
}

func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No puzzle files found in %s\n", configDir)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analysis, err := analyzeConfig(file)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, analysis)
	}
}

func analyzeConfig(path string) (*Analysis, error) {
	config, err := engine.LoadPuzzleConfig(path)
	if err != nil {
		return nil, err
	}
	board, err := config.Board()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res, err := solver.Solve(ctx, board, solver.Options{Parallel: true})
	if err != nil {
		return nil, err
	}

	rules := board.Rules()
	a := &Analysis{
		Name:           config.Name,
		Rows:           rules.Rows,
		Cols:           rules.Cols,
		Cars:           engine.CountVehicles(board, 2),
		Trucks:         engine.CountVehicles(board, 3),
		Blockers:       engine.BlockingVehicles(board),
		ExitDistance:   engine.ExitDistance(board),
		Status:         res.Status,
		MinMoves:       len(res.Moves),
		StatesExplored: res.StatesExplored,
	}
	a.Rating = rate(a)
	return a, nil
}

// rate buckets a puzzle by the length of its shortest solution
func rate(a *Analysis) string {
	switch {
	case a.Status == solver.StatusUnsolvable:
		return "impossible"
	case a.Status == solver.StatusAlreadySolved:
		return "trivial"
	case a.MinMoves <= 5:
		return "beginner"
	case a.MinMoves <= 15:
		return "intermediate"
	case a.MinMoves <= 30:
		return "advanced"
	default:
		return "expert"
	}
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Board: %d x %d\n", a.Rows, a.Cols)
	fmt.Fprintf(w, "Vehicles: %d cars, %d trucks\n", a.Cars, a.Trucks)
	fmt.Fprintf(w, "Exit distance: %d\n", a.ExitDistance)
	if len(a.Blockers) > 0 {
		fmt.Fprintf(w, "Blocking the exit: %v\n", a.Blockers)
	} else {
		fmt.Fprintf(w, "✅ Nothing stands between the target and the exit\n")
	}

	switch a.Status {
	case solver.StatusUnsolvable:
		fmt.Fprintf(w, "⚠️  UNSOLVABLE after %d positions\n", a.StatesExplored)
	case solver.StatusAlreadySolved:
		fmt.Fprintf(w, "⚠️  Target already at the exit\n")
	default:
		fmt.Fprintf(w, "Minimum moves: %d (%d positions explored)\n", a.MinMoves, a.StatesExplored)
	}
	fmt.Fprintf(w, "Rating: %s\n", a.Rating)
}
