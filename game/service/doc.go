// Package service provides the business logic layer for the Rush Hour server.
//
// The service package implements:
//   - Multi-session interactive play
//   - Move processing with per-move diagnostics
//   - Stateless solving of raw grids or stored puzzles
//   - Hints computed from a session's current board
//   - Move history pagination
//
// Core Interfaces:
//
// PuzzleService is the main service interface used by the transports.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages puzzle definition loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine and solver packages. Each session owns its own PuzzleEngine;
// solving never touches session state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	svc := service.NewPuzzleService(sessionMgr, configMgr, solver.Options{})
//
//	report, err := svc.Solve(ctx, &service.SolveRequest{Grid: grid})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(report.Status, report.Moves)
package service
