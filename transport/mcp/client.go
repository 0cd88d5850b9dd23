package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tidwall/gjson"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
	"github.com/wricardo/mcp-training/rushhour/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// solving the harder library puzzles takes a few seconds
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Rush Hour Solver",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Rush Hour - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Slide vehicles one cell at a time until the target car (id 1 unless the puzzle says otherwise) reaches the exit.

AVAILABLE TOOLS:
- solve_puzzle: Shortest solution for a grid or a stored puzzle (no session needed)
- create_session: Start playing a puzzle
- game_state: Board picture, legal moves and counters
- move: Slide one vehicle one cell - requires intent explanation
- bulk_move: Several moves at once - requires intent explanation
- hint: Next move of a shortest solution from the current board
- describe_vehicle: Orientation, cells and legal moves of one vehicle
- reset_game, move_history, get_session, list_sessions, list_configs
- puzzle_instructions: Rules and notation

NOTE: The 'intent' parameter on move/bulk_move tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func directionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"up", "right", "down", "left"},
		"description": "Direction to slide the vehicle",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Stateless solving
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_puzzle",
		Description: "Find the shortest solution of a Rush Hour board. Pass either a grid or the config_id of a stored puzzle.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"grid": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "integer"},
					},
					"description": "Rows of cells, 0 for empty and a vehicle id otherwise (6x6 unless rules say otherwise)",
				},
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Stored puzzle to solve instead of a grid",
				},
				"parallel": map[string]interface{}{
					"type":        "boolean",
					"description": "Expand large BFS levels on several workers",
				},
			},
		},
	}, c.handleSolvePuzzle)

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new play session, optionally for a stored puzzle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Stored puzzle to play (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active play sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Play
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Slide one vehicle one cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"car_id": map[string]interface{}{
					"type":        "integer",
					"description": "Vehicle id as shown on the board",
				},
				"direction": directionProperty(),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "car_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: "Execute several moves in order, stopping at the first one that fails",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":        "string",
						"description": "A move as <car>:<direction>, e.g. \"2:up\" or \"2U\"",
					},
					"description": "Moves to apply",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Put every vehicle back where the puzzle started",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Suggest the next move of a shortest solution from the current board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleHint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_vehicle",
		Description: "Describe one vehicle: orientation, length, the cells it covers and the moves it can make right now",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"car_id": map[string]interface{}{
					"type":        "integer",
					"description": "Vehicle id as shown on the board",
				},
			},
			Required: []string{"session_id", "car_id"},
		},
	}, c.handleDescribeVehicle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List stored puzzles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_instructions",
		Description: "Get the rules of Rush Hour and the move notation",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handlePuzzleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

// apiRaw performs the request and returns the body of a successful response
func (c *Client) apiRaw(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(data, "error")
		if !msg.Exists() {
			return nil, fmt.Errorf("API error: %d", resp.StatusCode)
		}
		if kind := gjson.GetBytes(data, "kind"); kind.Exists() {
			return nil, fmt.Errorf("%s (%s)", msg.String(), kind.String())
		}
		return nil, fmt.Errorf("%s", msg.String())
	}
	return data, nil
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	data, err := c.apiRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(data, result)
	}
	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleSolvePuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	body := map[string]interface{}{}
	if grid, ok := args["grid"]; ok && grid != nil {
		body["grid"] = grid
	}
	if configID, _ := args["config_id"].(string); configID != "" {
		body["config_id"] = configID
	}
	if parallel, ok := args["parallel"].(bool); ok {
		body["parallel"] = parallel
	}
	if body["grid"] == nil && body["config_id"] == nil {
		return mcp.NewToolResultError("pass a grid or a config_id"), nil
	}

	data, err := c.apiRaw(ctx, "POST", "/api/solve", body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSolveReport(data)), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID := request.GetString("config_id", "")

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nPuzzle: %s\n\n%s", session.ID, session.ConfigName, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "playing"
		if s.GameState != nil && s.GameState.Solved {
			status = "solved"
		}
		fmt.Fprintf(&b, "- %s (Puzzle: %s, %s, Created: %s)\n",
			s.ID, s.ConfigName, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	carID := request.GetInt("car_id", 0)
	direction := request.GetString("direction", "")
	reset := request.GetBool("reset", false)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = request.GetString("intent", "")

	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"carId":     carID,
		"direction": dir,
		"reset":     reset,
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := request.GetString("session_id", "")
	reset := request.GetBool("reset", false)
	movesRaw, _ := args["moves"].([]interface{})

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = request.GetString("intent", "")

	moves, err := parseMoveArgs(movesRaw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": reset,
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

// parseMoveArgs accepts "2:up" strings as well as {"car_id", "direction"} objects
func parseMoveArgs(raw []interface{}) ([]engine.Move, error) {
	moves := make([]engine.Move, 0, len(raw))
	for i, item := range raw {
		switch v := item.(type) {
		case string:
			m, err := engine.ParseMove(v)
			if err != nil {
				return nil, fmt.Errorf("move %d: %w", i+1, err)
			}
			moves = append(moves, m)
		case map[string]interface{}:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("move %d: %w", i+1, err)
			}
			carID := gjson.GetBytes(data, "car_id")
			if !carID.Exists() {
				carID = gjson.GetBytes(data, "carId")
			}
			dir, err := engine.ParseDirection(gjson.GetBytes(data, "direction").String())
			if err != nil {
				return nil, fmt.Errorf("move %d: %w", i+1, err)
			}
			moves = append(moves, engine.Move{CarID: int(carID.Int()), Direction: dir})
		default:
			return nil, fmt.Errorf("move %d: unsupported value %v", i+1, item)
		}
	}
	if len(moves) == 0 {
		return nil, fmt.Errorf("no moves given")
	}
	return moves, nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	data, err := c.apiRaw(ctx, "GET", sessionPath(sessionID, "/hint"), nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHint(data)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	params := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatHistory(&history)

	// Also fetch current segment from live state
	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err == nil {
		result += "\n" + formatCurrentSegment(&state)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDescribeVehicle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	carID := request.GetInt("car_id", 0)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	for _, v := range state.Vehicles {
		if v.ID == carID {
			return mcp.NewToolResultText(describeVehicle(v, &state)), nil
		}
	}

	ids := make([]string, 0, len(state.Vehicles))
	for _, v := range state.Vehicles {
		ids = append(ids, fmt.Sprint(v.ID))
	}
	return mcp.NewToolResultError(fmt.Sprintf("No vehicle %d on the board. Vehicles: %s", carID, strings.Join(ids, ", "))), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Stored Puzzles:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Board: %dx%d, Vehicles: %d",
			config.Name, config.ConfigID, config.Description, config.Rows, config.Cols, config.Vehicles)
		if config.Difficulty != "" {
			fmt.Fprintf(&b, ", Difficulty: %s", config.Difficulty)
		}
		b.WriteString("\n\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handlePuzzleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Rush Hour - Instructions

OBJECTIVE:
Get the target car (id 1 on the classic board) out through the exit. The exit is marked on the
board picture with '>' (right edge), '<' (left edge), '^' (top) or 'v' (bottom).

THE BOARD:
• The classic board is 6x6 and the exit is on the right of row 2 (rows count from 0)
• '.' is an empty cell
• Each other character is one vehicle: 1-9, then A, B, C ... for ids 10 and up
• Vehicles are 2 (cars) or 3 (trucks) cells long and lie in one row or one column

MOVES:
• A move slides one vehicle exactly one cell
• Horizontal vehicles move left/right, vertical vehicles move up/down
• The cell the vehicle slides into must be on the board and empty
• Directions are numbered Up=0, Right=1, Down=2, Left=3

NOTATION:
• "2:up", "2 up" and "2U" all mean: vehicle 2 slides up one cell
• bulk_move takes a list of such strings and stops at the first move that fails

SOLVING:
• solve_puzzle returns the shortest sequence of single-cell moves
• "already_solved" means no move is needed; "unsolvable" means no sequence reaches the exit
• hint gives the first move of a shortest solution from where a session is now

STRATEGY:
• Look at the row between the target car and the exit: every vehicle there must leave it
• Use describe_vehicle to see which way a blocker can go
• When a blocker cannot move, find what blocks it and work backwards
• Rejected moves report blocked_by with the id of the vehicle in the way`

	return mcp.NewToolResultText(instructions), nil
}

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nPuzzle: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	fmt.Fprintf(&result, "Board: %dx%d | Target: %d | Exit: %s of line %d | Moves: %d (total %d)\n\n",
		state.Rules.Rows, state.Rules.Cols, state.Rules.TargetID,
		state.Rules.ExitSide, state.Rules.ExitLine,
		state.CurrentMovesCount, state.TotalMoves)

	for _, line := range state.Picture {
		result.WriteString(line)
		result.WriteString("\n")
	}

	if len(state.PossibleMoves) > 0 {
		result.WriteString("\nPossible moves: ")
		result.WriteString(formatMoves(state.PossibleMoves))
		result.WriteString("\n")
	}

	if state.Solved {
		result.WriteString("\n🎉 SOLVED!")
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

func formatMoves(moves []engine.Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Move failed\n")
	}

	if result.Step != nil {
		s := result.Step
		fmt.Fprintf(&b, "Step: %s (%d,%d)→(%d,%d)\n", s.Move, s.From.Row, s.From.Col, s.To.Row, s.To.Col)
	}

	if result.ReasonCode != "" {
		fmt.Fprintf(&b, "Rejected: %s", result.ReasonCode)
		if result.BlockedBy != 0 {
			fmt.Fprintf(&b, " by vehicle %d", result.BlockedBy)
		}
		b.WriteString("\n")
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
	}
	fmt.Fprintf(&b, "Session: %s • Puzzle: %s\n", sessionID, configName)

	fmt.Fprintf(&b, "Executed %d/%d moves\n", result.MovesExecuted, result.RequestedMoves)
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s", result.StoppedOnMove, result.StoppedReason)
		if result.BlockedBy != 0 {
			fmt.Fprintf(&b, " (blocked by vehicle %d)", result.BlockedBy)
		}
		b.WriteString("\n")
	}
	if result.Truncated {
		fmt.Fprintf(&b, "Only the first %d moves were considered\n", result.Limit)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			mark := "✓"
			if !s.Success {
				mark = "✗"
			}
			fmt.Fprintf(&b, "%d. %s (%d,%d)→(%d,%d) %s\n", s.Idx, s.Move, s.From.Row, s.From.Col, s.To.Row, s.To.Col, mark)
		}
	}

	if !result.Solved {
		fmt.Fprintf(&b, "\nTarget is %d cells from the exit\n", result.ExitDistance)
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

// formatSolveReport renders the raw /api/solve response
func formatSolveReport(data []byte) string {
	report := gjson.ParseBytes(data)
	var b strings.Builder

	status := report.Get("status").String()
	moves := report.Get("moves").Array()
	switch status {
	case "solved":
		fmt.Fprintf(&b, "Solved in %d moves\n", len(moves))
	case "already_solved":
		b.WriteString("Already solved, no moves needed\n")
	case "unsolvable":
		fmt.Fprintf(&b, "Unsolvable: every reachable position was explored (depth %d)\n", report.Get("depth").Int())
	default:
		fmt.Fprintf(&b, "Status: %s\n", status)
	}
	fmt.Fprintf(&b, "States explored: %d | Time: %dms\n", report.Get("states_explored").Int(), report.Get("elapsed_ms").Int())

	if pic := report.Get("picture").Array(); len(pic) > 0 {
		b.WriteString("\n")
		for _, line := range pic {
			b.WriteString(line.String())
			b.WriteString("\n")
		}
	}

	if len(moves) > 0 {
		b.WriteString("\nMoves:\n")
		for i, m := range moves {
			move := engine.Move{CarID: int(m.Get("carId").Int()), Direction: engine.Direction(m.Get("direction").Int())}
			fmt.Fprintf(&b, "%d. %s\n", i+1, move)
		}
	}
	return b.String()
}

func formatHint(data []byte) string {
	hint := gjson.ParseBytes(data)

	switch hint.Get("status").String() {
	case "already_solved":
		return "The puzzle is already solved."
	case "unsolvable":
		return "No sequence of moves reaches the exit from this position. Try reset_game."
	}

	move := hint.Get("move")
	next := engine.Move{CarID: int(move.Get("carId").Int()), Direction: engine.Direction(move.Get("direction").Int())}
	result := fmt.Sprintf("Next move: %s\nMoves left with perfect play: %d", next, hint.Get("remaining_moves").Int())
	if msg := hint.Get("message").String(); msg != "" {
		result += "\n" + msg
	}
	return result
}

func describeVehicle(v engine.Vehicle, state *engine.GameState) string {
	var b strings.Builder

	kind := "car"
	if v.Length >= 3 {
		kind = "truck"
	}
	role := ""
	if v.ID == state.Rules.TargetID {
		role = " (target)"
	}
	fmt.Fprintf(&b, "Vehicle %d%s: %s %s, length %d\n", v.ID, role, v.Orientation, kind, v.Length)

	cells := v.Cells()
	parts := make([]string, len(cells))
	for i, p := range cells {
		parts[i] = fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	fmt.Fprintf(&b, "Cells (row,col): %s\n", strings.Join(parts, " "))

	var legal []engine.Move
	for _, m := range state.PossibleMoves {
		if m.CarID == v.ID {
			legal = append(legal, m)
		}
	}
	if len(legal) == 0 {
		b.WriteString("Can move: nowhere right now\n")
	} else {
		fmt.Fprintf(&b, "Can move: %s\n", formatMoves(legal))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (page %d/%d, %d moves total):\n", history.Page, history.TotalPages, history.TotalMoves)
	for _, entry := range history.Moves {
		mark := "✓"
		if !entry.Success {
			mark = "✗"
		}
		fmt.Fprintf(&b, "#%d %s %s", entry.MoveNumber, entry.Move, mark)
		if entry.Solved {
			b.WriteString(" solved")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatCurrentSegment(state *engine.GameState) string {
	if state == nil || len(state.CurrentMoves) == 0 {
		return "Since last reset: no moves"
	}
	moves := make([]engine.Move, len(state.CurrentMoves))
	for i, entry := range state.CurrentMoves {
		moves[i] = entry.Move
	}
	return fmt.Sprintf("Since last reset (%d): %s", state.CurrentMovesCount, formatMoves(moves))
}
