// Package solver finds minimum-length solutions to Rush Hour boards.
//
// Solve runs a breadth-first search over canonical board states. States are
// expanded one BFS level at a time; within a level they are visited in the
// order they were discovered and successors follow engine.LegalMoves order, so
// the returned solution is the same on every run. With Options.Parallel the
// expansion of a level is spread over a bounded worker pool and merged back in
// frontier order, which yields exactly the sequential result.
//
// The outcome is one of three statuses:
//
//	StatusSolved         moves is the shortest solution
//	StatusAlreadySolved  the target was already at the exit, moves is empty
//	StatusUnsolvable     every reachable state was explored, moves is empty
//
// Usage:
//
//	res, err := solver.SolveGrid(ctx, grid, engine.DefaultRules(), solver.Options{})
//	if err != nil {
//		// validation errors from engine.ParseBoard, or ctx.Err()
//	}
//	json.NewEncoder(os.Stdout).Encode(res.Moves)
package solver
