// Package api provides the HTTP REST API for the Rush Hour solver.
//
// Endpoints:
//
// Solving:
//   - POST /api/solve - Shortest solution for a grid or a stored puzzle
//
// Session Management:
//   - POST /api/sessions - Create a play session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (sort=created|accessed, order, limit)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Play:
//   - GET /api/sessions/{id}/state - Current board and counters
//   - POST /api/sessions/{id}/move - Slide one vehicle one cell
//   - POST /api/sessions/{id}/bulk-move - Apply moves until one fails
//   - POST /api/sessions/{id}/reset - Back to the starting board
//   - GET /api/sessions/{id}/history - Paginated move history
//   - GET /api/sessions/{id}/hint - Next move of a shortest solution
//
// Puzzle Library:
//   - GET /api/configs - List stored puzzles
//   - GET /api/configs/{name} - Get one puzzle
//   - POST /api/configs - Store a puzzle ({"config_id": "...", "name": ..., "grid": ...})
//
// Live updates are served on /ws?session={id}.
//
// Moves are sent as {"carId": 2, "direction": "up"}; the direction may also be
// the number 0-3 (Up, Right, Down, Left). A rejected move is not an HTTP error:
// the response has success=false plus reason_code and blocked_by.
//
// Errors are returned as {"error": "..."}. A board that fails validation
// answers 422 with an extra "kind" field (grid_dimensions, vehicle_shape,
// target_missing, ...). Unknown sessions and puzzles answer 404; a search that
// outlives the solve timeout answers 504.
package api
