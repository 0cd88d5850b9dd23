// Command rushhour solves, validates and lists Rush Hour puzzles from the
// terminal, and can play a puzzle through a running server.
//
//	rushhour solve classic
//	rushhour solve --grid "0,0,0,0,0,0;0,0,0,0,0,0;0,1,1,0,0,0;..."
//	rushhour validate configs/*.json
//	rushhour list
//	rushhour play --server http://localhost:8080 --config blockers
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/rushhour/game/config"
	"github.com/wricardo/mcp-training/rushhour/game/engine"
	"github.com/wricardo/mcp-training/rushhour/game/solver"
)

var errNoPuzzle = errors.New("pass a puzzle file, a config id or --grid")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "rushhour",
		Usage: "Solve and inspect Rush Hour puzzles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Aliases: []string{"d"},
				Value:   "configs",
				Usage:   "directory of puzzle definitions",
				Sources: cli.EnvVars("RUSHHOUR_CONFIG_DIR", "CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:    "parallel",
				Aliases: []string{"p"},
				Usage:   "expand large search levels on all CPUs",
				Sources: cli.EnvVars("RUSHHOUR_PARALLEL"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "give up a search after this long (0 disables)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "solve",
				Usage:     "print the shortest solution of a puzzle",
				ArgsUsage: "[puzzle file or config id]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "grid", Usage: "inline grid, rows separated by ';' and cells by ','"},
					&cli.StringFlag{Name: "exit-side", Value: "right", Usage: "edge the target leaves through (up, right, down, left)"},
					&cli.IntFlag{Name: "exit-line", Value: 2, Usage: "row or column of the exit"},
					&cli.BoolFlag{Name: "json", Usage: "print the raw result as JSON"},
					&cli.BoolFlag{Name: "steps", Usage: "draw the board after every move"},
				},
				Action: solveAction,
			},
			{
				Name:      "validate",
				Usage:     "check puzzle files for structure and solvability",
				ArgsUsage: "[files...]",
				Action:    validateAction,
			},
			{
				Name:   "list",
				Usage:  "list the puzzles of the config directory",
				Action: listAction,
			},
			{
				Name:  "play",
				Usage: "solve a puzzle on a running server through its REST API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "server",
						Value:   "http://localhost:8080",
						Usage:   "base URL of the puzzle server",
						Sources: cli.EnvVars("RUSHHOUR_SERVER"),
					},
					&cli.StringFlag{Name: "config", Usage: "config id to play (server default when empty)"},
				},
				Action: playAction,
			},
		},
	}
}

func solverOptions(cmd *cli.Command) solver.Options {
	return solver.Options{Parallel: cmd.Bool("parallel")}
}

func searchContext(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc) {
	if d := cmd.Duration("timeout"); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// parseGrid reads "0,0,2;1,1,2;0,0,0". Rows may also be split by '/' or
// newlines, cells by spaces.
func parseGrid(s string) ([][]int, error) {
	rows := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '/' || r == '\n' })
	if len(rows) == 0 {
		return nil, fmt.Errorf("grid is empty")
	}

	grid := make([][]int, 0, len(rows))
	for i, row := range rows {
		cells := strings.FieldsFunc(row, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
		if len(cells) == 0 {
			return nil, fmt.Errorf("row %d is empty", i)
		}
		line := make([]int, 0, len(cells))
		for _, cell := range cells {
			v, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d: %q is not a number", i, cell)
			}
			line = append(line, v)
		}
		grid = append(grid, line)
	}
	return grid, nil
}

// loadPuzzle resolves the solve target: an inline grid, a JSON file, or a
// config id looked up in the config directory.
func loadPuzzle(cmd *cli.Command) (string, *engine.Board, error) {
	if raw := cmd.String("grid"); raw != "" {
		grid, err := parseGrid(raw)
		if err != nil {
			return "", nil, err
		}
		side, err := engine.ParseDirection(cmd.String("exit-side"))
		if err != nil {
			return "", nil, err
		}
		rules := engine.DefaultRules()
		rules.Rows, rules.Cols = len(grid), len(grid[0])
		rules.ExitSide = side
		rules.ExitLine = cmd.Int("exit-line")

		board, err := engine.ParseBoard(grid, rules)
		return "inline grid", board, err
	}

	arg := cmd.Args().First()
	if arg == "" {
		return "", nil, errNoPuzzle
	}

	var puzzle *engine.PuzzleConfig
	if _, err := os.Stat(arg); err == nil {
		if puzzle, err = engine.LoadPuzzleConfig(arg); err != nil {
			return "", nil, err
		}
	} else {
		manager, err := config.NewManager(cmd.String("config-dir"))
		if err != nil {
			return "", nil, err
		}
		if puzzle, err = manager.LoadConfig(arg); err != nil {
			return "", nil, err
		}
	}

	board, err := puzzle.Board()
	return puzzle.Name, board, err
}

func solveAction(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	name, board, err := loadPuzzle(cmd)
	if err != nil {
		if kind := engine.ValidationKind(err); kind != "" {
			return fmt.Errorf("invalid board (%s): %w", kind, err)
		}
		return err
	}

	ctx, cancel := searchContext(ctx, cmd)
	defer cancel()

	start := time.Now()
	res, err := solver.Solve(ctx, board, solverOptions(cmd))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	st := newStyles(out)
	fmt.Fprintln(out, st.title.Render(name))
	fmt.Fprintln(out, st.renderBoard(board))

	switch res.Status {
	case solver.StatusAlreadySolved:
		fmt.Fprintln(out, st.ok.Render("Already solved"))
	case solver.StatusUnsolvable:
		fmt.Fprintln(out, st.bad.Render(fmt.Sprintf("Unsolvable: explored %d positions to depth %d", res.StatesExplored, res.Depth)))
	default:
		fmt.Fprintln(out, st.ok.Render(fmt.Sprintf("Solved in %d moves", len(res.Moves))))
		for i, m := range res.Moves {
			fmt.Fprintf(out, "%3d. %s\n", i+1, m)
			if cmd.Bool("steps") {
				if board, err = board.Apply(m); err != nil {
					return err
				}
				fmt.Fprintln(out, st.renderBoard(board))
			}
		}
	}
	fmt.Fprintln(out, st.muted.Render(fmt.Sprintf("%d positions explored in %s", res.StatesExplored, time.Since(start).Round(time.Millisecond))))
	return nil
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	st := newStyles(out)

	files := cmd.Args().Slice()
	if len(files) == 0 {
		var err error
		if files, err = filepath.Glob(filepath.Join(cmd.String("config-dir"), "*.json")); err != nil {
			return err
		}
	}
	if len(files) == 0 {
		return cli.Exit("no puzzle files found", 1)
	}

	invalid := 0
	for _, file := range files {
		summary, err := checkPuzzle(ctx, cmd, file)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s %s: %v\n", st.bad.Render("✗"), filepath.Base(file), err)
			continue
		}
		fmt.Fprintf(out, "%s %s: %s\n", st.ok.Render("✓"), filepath.Base(file), summary)
	}

	if invalid > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d puzzles are invalid", invalid, len(files)), 1)
	}
	return nil
}

// checkPuzzle loads one file and confirms its solvability matches its difficulty
func checkPuzzle(ctx context.Context, cmd *cli.Command, file string) (string, error) {
	puzzle, err := engine.LoadPuzzleConfig(file)
	if err != nil {
		return "", err
	}
	board, err := puzzle.Board()
	if err != nil {
		return "", err
	}

	ctx, cancel := searchContext(ctx, cmd)
	defer cancel()
	res, err := solver.Solve(ctx, board, solverOptions(cmd))
	if err != nil {
		return "", err
	}

	impossible := strings.EqualFold(puzzle.Difficulty, "impossible")
	switch {
	case res.Status == solver.StatusAlreadySolved:
		return "", fmt.Errorf("starts solved")
	case res.Status == solver.StatusUnsolvable && !impossible:
		return "", fmt.Errorf("unsolvable after %d positions", res.StatesExplored)
	case res.Status == solver.StatusSolved && impossible:
		return "", fmt.Errorf("marked impossible but solvable in %d moves", len(res.Moves))
	case impossible:
		return "unsolvable as marked", nil
	}
	return fmt.Sprintf("%s, %d moves", puzzle.Name, len(res.Moves)), nil
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	st := newStyles(out)

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	configs, err := manager.ListConfigs()
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Fprintln(out, "No puzzles found")
		return nil
	}

	for _, c := range configs {
		difficulty := c.Difficulty
		if difficulty == "" {
			difficulty = "-"
		}
		fmt.Fprintf(out, "%-14s %s %s\n", c.ConfigID, st.title.Render(c.Name),
			st.muted.Render(fmt.Sprintf("(%s, %dx%d, %d vehicles)", difficulty, c.Rows, c.Cols, c.Vehicles)))
		if c.Description != "" {
			fmt.Fprintf(out, "%-14s %s\n", "", c.Description)
		}
	}
	return nil
}

func playAction(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	st := newStyles(out)

	report, err := play(ctx, newAPIClient(cmd.String("server")), cmd.String("config"), solverOptions(cmd), out)
	if err != nil {
		return err
	}

	switch {
	case report.Status == solver.StatusUnsolvable:
		fmt.Fprintln(out, st.bad.Render("Puzzle has no solution"))
	case report.Solved:
		fmt.Fprintln(out, st.ok.Render(fmt.Sprintf("Solved session %s in %d moves", report.SessionID, report.Executed)))
	default:
		return fmt.Errorf("session %s is not solved after %d moves", report.SessionID, report.Executed)
	}
	return nil
}
