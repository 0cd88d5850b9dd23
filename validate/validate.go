// Command validate checks the puzzle JSON files in a configs directory
// (../configs unless a directory is given). It checks:
//   - JSON structure and required fields (name, description, grid)
//   - Grid shape: rectangular, no negative cells, matching the rules' size
//   - Board invariants: straight contiguous vehicles of length 2 or 3, target on the exit line
//   - The moved message keeps its %d placeholder
//   - Solvability: a breadth-first search must reach the exit from the start,
//     unless the puzzle is marked "impossible"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
	"github.com/wricardo/mcp-training/rushhour/game/solver"
)

const (
	// solveLimit bounds the solvability check of a single file
	solveLimit = 30 * time.Second

	impossibleDifficulty = "impossible"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single puzzle file. The board is
// only parsed once the structural checks pass, and only searched once it parses.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.PuzzleConfig
	if err := json.Unmarshal(data, &config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if config.Name == "" {
		result.fail("name is required")
	}
	if config.Description == "" {
		result.fail("description is required")
	}
	if config.Messages.Moved != "" && !strings.Contains(config.Messages.Moved, "%d") {
		result.fail("messages.moved must contain %%d for the move count")
	}

	rules := config.ResolvedRules()
	checkGridShape(config.Grid, rules, &result)
	if !result.Valid {
		return result
	}

	board, err := engine.ParseBoard(config.Grid, rules)
	if err != nil {
		result.fail("Board rejected (%s): %v", engine.ValidationKind(err), err)
		return result
	}

	ctx, cancel := context.WithTimeout(context.Background(), solveLimit)
	defer cancel()

	solution, err := solver.Solve(ctx, board, solver.Options{Parallel: true})
	if err != nil {
		result.fail("Solvability check failed: %v", err)
		return result
	}

	// "impossible" puzzles exist to exercise the unsolvable outcome
	expectUnsolvable := strings.EqualFold(config.Difficulty, impossibleDifficulty)
	switch {
	case solution.Status == solver.StatusAlreadySolved:
		result.fail("Puzzle starts solved: the target is already at the exit")
	case solution.Status == solver.StatusUnsolvable && !expectUnsolvable:
		result.fail("Unsolvable: %d positions explored, none reaches the exit", solution.StatesExplored)
	case solution.Status == solver.StatusSolved && expectUnsolvable:
		result.fail("Marked %q but solvable in %d moves", impossibleDifficulty, len(solution.Moves))
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Board: %dx%d, exit %s of line %d", rules.Rows, rules.Cols, rules.ExitSide, rules.ExitLine))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Vehicles: %d (%d cars, %d trucks)",
			engine.CountVehicles(board, 0), engine.CountVehicles(board, 2), engine.CountVehicles(board, 3)))
		if expectUnsolvable {
			result.Errors = append(result.Errors, "✓ Unsolvable as marked")
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Minimum moves: %d", len(solution.Moves)))
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Positions explored: %d", solution.StatesExplored))
	}

	return result
}

// checkGridShape reports every row-level problem, not only the first
func checkGridShape(grid [][]int, rules engine.Rules, result *ValidationResult) {
	if len(grid) == 0 {
		result.fail("Grid is empty")
		return
	}
	if len(grid) != rules.Rows {
		result.fail("Grid has %d rows, rules expect %d", len(grid), rules.Rows)
	}

	for i, row := range grid {
		if len(row) != rules.Cols {
			result.fail("Row %d has %d cells, rules expect %d", i, len(row), rules.Cols)
		}
		for j, cell := range row {
			if cell < 0 {
				result.fail("Negative cell %d at [%d,%d]", cell, i, j)
			}
		}
	}
}

// main validates every *.json file of the configs directory, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No puzzle files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All puzzles are valid!")
	} else {
		fmt.Println("❌ Some puzzles have errors")
		os.Exit(1)
	}
}
