// Package mcp exposes the Rush Hour REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one or two HTTP
// requests against a running API server, and the JSON answer is turned into
// text an agent can read (board picture, legal moves, rejection reasons).
//
// MCP Tools:
//   - solve_puzzle: shortest solution for a grid or a stored puzzle
//   - create_session, get_session, list_sessions: session management
//   - game_state, move, bulk_move, reset_game, move_history: play
//   - hint: next move of a shortest solution from the current board
//   - describe_vehicle: orientation, cells and legal moves of one vehicle
//   - list_configs, puzzle_instructions
//
// Moves are written "<car>:<direction>" ("2:up"), "2 up" or "2U".
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
