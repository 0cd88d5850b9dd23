package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/rushhour/game/config"
	"github.com/wricardo/mcp-training/rushhour/game/engine"
	"github.com/wricardo/mcp-training/rushhour/game/service"
	"github.com/wricardo/mcp-training/rushhour/game/session"
	"github.com/wricardo/mcp-training/rushhour/game/solver"
	"github.com/wricardo/mcp-training/rushhour/transport/websocket"
)

// MockPuzzleService implements service.PuzzleService for testing
type MockPuzzleService struct {
	CreateSessionFunc  func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc     func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc   func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc  func(ctx context.Context, sessionID string) error
	MoveFunc           func(ctx context.Context, sessionID string, move engine.Move, reset bool) (*service.MoveResult, error)
	BulkMoveFunc       func(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*service.BulkMoveResult, error)
	ResetFunc          func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	SolveFunc          func(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error)
	HintFunc           func(ctx context.Context, sessionID string) (*service.HintResult, error)
	ListConfigsFunc    func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc     func(ctx context.Context, configName string) (*engine.PuzzleConfig, error)
	SaveConfigFunc     func(ctx context.Context, configName string, config *engine.PuzzleConfig) error
}

func (m *MockPuzzleService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockPuzzleService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockPuzzleService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockPuzzleService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockPuzzleService) Move(ctx context.Context, sessionID string, move engine.Move, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, move, reset)
	}
	return &service.MoveResult{Success: true, Move: move, GameState: &engine.GameState{}}, nil
}

func (m *MockPuzzleService) BulkMove(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*service.BulkMoveResult, error) {
	if m.BulkMoveFunc != nil {
		return m.BulkMoveFunc(ctx, sessionID, moves, reset)
	}
	return &service.BulkMoveResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockPuzzleService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockPuzzleService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockPuzzleService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Moves:      []engine.MoveHistoryEntry{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

func (m *MockPuzzleService) Solve(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error) {
	if m.SolveFunc != nil {
		return m.SolveFunc(ctx, req)
	}
	return &service.SolveReport{ID: "solve-1", Result: &solver.Result{Status: solver.StatusAlreadySolved}}, nil
}

func (m *MockPuzzleService) Hint(ctx context.Context, sessionID string) (*service.HintResult, error) {
	if m.HintFunc != nil {
		return m.HintFunc(ctx, sessionID)
	}
	return &service.HintResult{SessionID: sessionID, Status: solver.StatusAlreadySolved}, nil
}

func (m *MockPuzzleService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockPuzzleService) LoadConfig(ctx context.Context, configName string) (*engine.PuzzleConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.PuzzleConfig{Name: configName, Description: "Test puzzle"}, nil
}

func (m *MockPuzzleService) SaveConfig(ctx context.Context, configName string, config *engine.PuzzleConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockPuzzleService) *Server {
	t.Helper()
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return NewServer(mockService, hub, WithStaticDir(""))
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	switch b := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(b)
	default:
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (body %s)", err, w.Body.String())
	}
}

func notFound(ctx context.Context, sessionID string) error {
	return fmt.Errorf("session %s: %w", sessionID, service.ErrSessionNotFound)
}

func TestHealth(t *testing.T) {
	server := setupTestServer(t, &MockPuzzleService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", resp)
	}
}

func TestSolve(t *testing.T) {
	grid := [][]int{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 1, 1, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}

	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockPuzzleService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Solve a grid",
			body: map[string]interface{}{"grid": grid},
			setupMock: func(m *MockPuzzleService) {
				m.SolveFunc = func(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error) {
					if len(req.Grid) != 6 || req.Grid[2][2] != 1 {
						t.Errorf("grid not passed through: %v", req.Grid)
					}
					return &service.SolveReport{
						ID: "r1",
						Result: &solver.Result{
							Status:         solver.StatusSolved,
							Moves:          []engine.Move{{CarID: 1, Direction: engine.Right}, {CarID: 1, Direction: engine.Right}},
							StatesExplored: 4,
							Depth:          2,
						},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]interface{}
				parseResponse(t, w, &resp)
				if resp["status"] != "solved" {
					t.Errorf("Expected status solved, got %v", resp["status"])
				}
				moves := resp["moves"].([]interface{})
				first := moves[0].(map[string]interface{})
				if len(moves) != 2 || first["carId"] != float64(1) || first["direction"] != float64(1) {
					t.Errorf("Unexpected moves %v", moves)
				}
				if resp["states_explored"] == nil {
					t.Error("Expected states_explored in the report")
				}
			},
		},
		{
			name: "Solve by config id with a parallel override",
			body: `{"config_id":"classic","parallel":true}`,
			setupMock: func(m *MockPuzzleService) {
				m.SolveFunc = func(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error) {
					if req.ConfigID != "classic" || req.Parallel == nil || !*req.Parallel {
						t.Errorf("unexpected request %+v", req)
					}
					return &service.SolveReport{ConfigID: "classic", Result: &solver.Result{Status: solver.StatusUnsolvable}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]interface{}
				parseResponse(t, w, &resp)
				if resp["status"] != "unsolvable" || resp["config_id"] != "classic" {
					t.Errorf("Unexpected response %v", resp)
				}
			},
		},
		{
			name: "Invalid board",
			body: map[string]interface{}{"grid": [][]int{{1}}},
			setupMock: func(m *MockPuzzleService) {
				m.SolveFunc = func(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error) {
					return nil, &engine.ValidationError{Err: engine.ErrGridDimensions, Detail: "1 rows, want 6"}
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["kind"] != "grid_dimensions" {
					t.Errorf("Expected kind grid_dimensions, got %v", resp)
				}
			},
		},
		{
			name: "Empty request",
			body: `{}`,
			setupMock: func(m *MockPuzzleService) {
				m.SolveFunc = func(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error) {
					return nil, service.ErrEmptyRequest
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Unknown config",
			body: `{"config_id":"nope"}`,
			setupMock: func(m *MockPuzzleService) {
				m.SolveFunc = func(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error) {
					return nil, fmt.Errorf("config 'nope': %w", service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Malformed JSON",
			body:           `{"grid": [[`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Search timed out",
			body: `{"config_id":"classic"}`,
			setupMock: func(m *MockPuzzleService) {
				m.SolveFunc = func(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error) {
					return nil, fmt.Errorf("solve: %w", context.DeadlineExceeded)
				}
			},
			expectedStatus: http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockPuzzleService{}
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}
			server := setupTestServer(t, mock)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/solve", tt.body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestSolveTimeoutOption(t *testing.T) {
	mock := &MockPuzzleService{
		SolveFunc: func(ctx context.Context, req *service.SolveRequest) (*service.SolveReport, error) {
			deadline, ok := ctx.Deadline()
			if !ok || time.Until(deadline) > time.Second {
				t.Errorf("expected a deadline within a second, got %v (set=%t)", deadline, ok)
			}
			return &service.SolveReport{Result: &solver.Result{Status: solver.StatusAlreadySolved}}, nil
		},
	}
	server := NewServer(mock, nil, WithSolveTimeout(500*time.Millisecond), WithStaticDir(""))

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/solve", `{"config_id":"classic"}`))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockPuzzleService)
		expectedStatus int
		expectedConfig string
	}{
		{
			name:           "Default puzzle",
			requestBody:    nil,
			expectedStatus: http.StatusCreated,
			expectedConfig: "",
		},
		{
			name:           "Puzzle by config_id",
			requestBody:    map[string]string{"config_id": "blockers"},
			expectedStatus: http.StatusCreated,
			expectedConfig: "blockers",
		},
		{
			name:           "Deprecated config_name",
			requestBody:    map[string]string{"config_name": "stuck"},
			expectedStatus: http.StatusCreated,
			expectedConfig: "stuck",
		},
		{
			name:        "Unknown puzzle",
			requestBody: map[string]string{"config_id": "missing"},
			setupMock: func(m *MockPuzzleService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config '%s': %w", configName, service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockPuzzleService{}
			var gotConfig string
			mock.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
				gotConfig = configName
				return &service.SessionInfo{ID: "ab12", ConfigName: configName}, nil
			}
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}
			server := setupTestServer(t, mock)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusCreated {
				if gotConfig != tt.expectedConfig {
					t.Errorf("Expected config %q, got %q", tt.expectedConfig, gotConfig)
				}
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ab12, got %s", resp.ID)
				}
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mock := &MockPuzzleService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
				{ID: "mid", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Hour)},
				{ID: "new", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-2 * time.Hour)},
			}, nil
		},
	}
	server := setupTestServer(t, mock)

	tests := []struct {
		query    string
		expected []string
		total    float64
	}{
		{"", []string{"old", "mid", "new"}, 3},
		{"?sort=created", []string{"new", "mid", "old"}, 3},
		{"?sort=created&order=asc", []string{"old", "mid", "new"}, 3},
		{"?sort=created&limit=1", []string{"new"}, 3},
		{"?limit=abc", []string{"old", "mid", "new"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    float64                `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Count != len(tt.expected) || resp.Total != tt.total {
				t.Errorf("count/total = %d/%v, want %d/%v", resp.Count, resp.Total, len(tt.expected), tt.total)
			}
			for i, id := range tt.expected {
				if i >= len(resp.Sessions) || resp.Sessions[i].ID != id {
					t.Errorf("position %d: expected %s", i, id)
				}
			}
		})
	}
}

func TestSessionNotFound(t *testing.T) {
	mock := &MockPuzzleService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, notFound(ctx, sessionID)
		},
		DeleteSessionFunc: notFound,
		GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return nil, notFound(ctx, sessionID)
		},
		MoveFunc: func(ctx context.Context, sessionID string, move engine.Move, reset bool) (*service.MoveResult, error) {
			return nil, notFound(ctx, sessionID)
		},
		BulkMoveFunc: func(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*service.BulkMoveResult, error) {
			return nil, notFound(ctx, sessionID)
		},
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return nil, notFound(ctx, sessionID)
		},
		GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			return nil, notFound(ctx, sessionID)
		},
		HintFunc: func(ctx context.Context, sessionID string) (*service.HintResult, error) {
			return nil, notFound(ctx, sessionID)
		},
	}
	server := setupTestServer(t, mock)

	requests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{"GET", "/api/sessions/zz99", nil},
		{"DELETE", "/api/sessions/zz99", nil},
		{"GET", "/api/sessions/zz99/state", nil},
		{"POST", "/api/sessions/zz99/move", `{"carId":1,"direction":"right"}`},
		{"POST", "/api/sessions/zz99/bulk-move", `{"moves":[{"carId":1,"direction":1}]}`},
		{"POST", "/api/sessions/zz99/reset", nil},
		{"GET", "/api/sessions/zz99/history", nil},
		{"GET", "/api/sessions/zz99/hint", nil},
	}

	for _, rq := range requests {
		t.Run(rq.method+" "+rq.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(rq.method, rq.path, rq.body))
			if w.Code != http.StatusNotFound {
				t.Errorf("Expected 404, got %d (%s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedMove   engine.Move
		expectedReset  bool
		expectedStatus int
	}{
		{"Direction by name", `{"carId":2,"direction":"up"}`, engine.Move{CarID: 2, Direction: engine.Up}, false, http.StatusOK},
		{"Direction by number", `{"carId":1,"direction":1,"reset":true}`, engine.Move{CarID: 1, Direction: engine.Right}, true, http.StatusOK},
		{"Unknown direction name", `{"carId":1,"direction":"sideways"}`, engine.Move{}, false, http.StatusBadRequest},
		{"Invalid body", `not json`, engine.Move{}, false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMove engine.Move
			var gotReset bool
			mock := &MockPuzzleService{
				MoveFunc: func(ctx context.Context, sessionID string, move engine.Move, reset bool) (*service.MoveResult, error) {
					gotMove, gotReset = move, reset
					return &service.MoveResult{
						Success:   true,
						Move:      move,
						GameState: &engine.GameState{},
						Step:      &service.StepInfo{Idx: 1, Move: move, Success: true},
					}, nil
				},
			}
			server := setupTestServer(t, mock)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/move", tt.body))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK && (gotMove != tt.expectedMove || gotReset != tt.expectedReset) {
				t.Errorf("service got %v reset=%t, want %v reset=%t", gotMove, gotReset, tt.expectedMove, tt.expectedReset)
			}
		})
	}
}

func TestMoveRejected(t *testing.T) {
	mock := &MockPuzzleService{
		MoveFunc: func(ctx context.Context, sessionID string, move engine.Move, reset bool) (*service.MoveResult, error) {
			return &service.MoveResult{
				Success:    false,
				Move:       move,
				GameState:  &engine.GameState{},
				ReasonCode: service.StopBlocked,
				BlockedBy:  2,
			}, nil
		},
	}
	server := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/move", `{"carId":1,"direction":"right"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("Rejected moves are not HTTP errors, got %d", w.Code)
	}
	var resp service.MoveResult
	parseResponse(t, w, &resp)
	if resp.Success || resp.ReasonCode != "blocked" || resp.BlockedBy != 2 {
		t.Errorf("Unexpected result %+v", resp)
	}
}

func TestBulkMove(t *testing.T) {
	var got []engine.Move
	mock := &MockPuzzleService{
		BulkMoveFunc: func(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*service.BulkMoveResult, error) {
			got = moves
			return &service.BulkMoveResult{
				MovesExecuted:  len(moves),
				RequestedMoves: len(moves),
				Success:        true,
				Solved:         true,
				GameState:      &engine.GameState{Solved: true},
			}, nil
		},
	}
	server := setupTestServer(t, mock)

	body := `{"moves":[{"carId":2,"direction":"up"},{"carId":1,"direction":1}],"reset":true}`
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/bulk-move", body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	want := []engine.Move{{CarID: 2, Direction: engine.Up}, {CarID: 1, Direction: engine.Right}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("service got %v, want %v", got, want)
	}

	var resp service.BulkMoveResult
	parseResponse(t, w, &resp)
	if !resp.Solved || resp.MovesExecuted != 2 {
		t.Errorf("Unexpected result %+v", resp)
	}
}

func TestReset(t *testing.T) {
	mock := &MockPuzzleService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return &engine.GameState{Message: "Welcome back"}, nil
		},
	}
	server := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/reset", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State == nil || resp.State.Message != "Welcome back" {
		t.Errorf("Unexpected reset response %+v", resp)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		query    string
		expected service.HistoryOptions
	}{
		{"", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"?page=3&limit=5&order=asc", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{"?page=-1&limit=x&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got service.HistoryOptions
			mock := &MockPuzzleService{
				GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Page: opts.Page}, nil
				},
			}
			server := setupTestServer(t, mock)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			if got != tt.expected {
				t.Errorf("options = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestHint(t *testing.T) {
	next := engine.Move{CarID: 2, Direction: engine.Up}
	mock := &MockPuzzleService{
		HintFunc: func(ctx context.Context, sessionID string) (*service.HintResult, error) {
			return &service.HintResult{
				SessionID:      sessionID,
				Status:         solver.StatusSolved,
				Move:           &next,
				RemainingMoves: 6,
			}, nil
		},
	}
	server := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/hint", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp service.HintResult
	parseResponse(t, w, &resp)
	if resp.Move == nil || *resp.Move != next || resp.RemainingMoves != 6 || resp.Status != solver.StatusSolved {
		t.Errorf("Unexpected hint %+v", resp)
	}
}

func TestConfigs(t *testing.T) {
	mock := &MockPuzzleService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Name: "Rush Hour Classic", Vehicles: 8}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.PuzzleConfig, error) {
			if configName != "classic" {
				return nil, service.ErrConfigNotFound
			}
			return &engine.PuzzleConfig{Name: "Rush Hour Classic"}, nil
		},
	}
	server := setupTestServer(t, mock)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
		var resp []*service.ConfigInfo
		parseResponse(t, w, &resp)
		if len(resp) != 1 || resp[0].Vehicles != 8 {
			t.Errorf("Unexpected configs %v", resp)
		}
	})

	t.Run("get with extension", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/classic.json", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/nope", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestCreateConfig(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		saveErr        error
		expectedStatus int
	}{
		{"saved", `{"config_id":"mine","name":"Mine","description":"d","grid":[[0]]}`, nil, http.StatusCreated},
		{"missing id", `{"name":"Mine","description":"d","grid":[[0]]}`, nil, http.StatusBadRequest},
		{"bad board", `{"config_id":"mine","name":"Mine","description":"d","grid":[[0]]}`,
			fmt.Errorf("invalid configuration: %w", &engine.ValidationError{Err: engine.ErrTargetMissing, VehicleID: 1}),
			http.StatusUnprocessableEntity},
		{"bad metadata", `{"config_id":"mine","description":"d","grid":[[0]]}`,
			fmt.Errorf("invalid configuration: name is required"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved *engine.PuzzleConfig
			mock := &MockPuzzleService{
				SaveConfigFunc: func(ctx context.Context, configName string, config *engine.PuzzleConfig) error {
					saved = config
					return tt.saveErr
				},
			}
			server := setupTestServer(t, mock)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/configs", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusCreated && (saved == nil || saved.Name != "Mine") {
				t.Errorf("puzzle not passed to the service: %+v", saved)
			}
		})
	}
}

func TestWebSocket(t *testing.T) {
	mock := &MockPuzzleService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, notFound(ctx, sessionID)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		MoveFunc: func(ctx context.Context, sessionID string, move engine.Move, reset bool) (*service.MoveResult, error) {
			return &service.MoveResult{
				Success:   true,
				Move:      move,
				GameState: &engine.GameState{CurrentMovesCount: 1},
				Step:      &service.StepInfo{Idx: 1, Move: move, Success: true},
			}, nil
		},
	}
	server := setupTestServer(t, mock)
	ts := httptest.NewServer(server)
	defer ts.Close()

	t.Run("missing session parameter", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/ws")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/ws?session=zz99")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("receives state after a move", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=ab12"
		conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer conn.Close()

		deadline := time.Now().Add(time.Second)
		for server.hub.ClientCount("ab12") == 0 {
			if time.Now().After(deadline) {
				t.Fatal("client never registered")
			}
			time.Sleep(5 * time.Millisecond)
		}

		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/move", `{"carId":2,"direction":"up"}`))

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read: %v", err)
		}
		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Bad frame: %v", err)
		}
		if msg.Event != websocket.EventStateUpdate || msg.GameState == nil || msg.GameState.CurrentMovesCount != 1 {
			t.Errorf("Unexpected frame %s", data)
		}
	})
}

// newRealServer wires the real service stack over the bundled puzzles
func newRealServer(t *testing.T) *Server {
	t.Helper()
	configs, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("config manager: %v", err)
	}
	svc := service.NewPuzzleService(session.NewManager(), configs, solver.Options{})
	return NewServer(svc, nil, WithStaticDir(""))
}

func TestEndToEnd_SolveScenarios(t *testing.T) {
	server := newRealServer(t)

	tests := []struct {
		name     string
		body     string
		status   string
		numMoves int
	}{
		{"open road", `{"config_id":"open-road"}`, "solved", 2},
		{"stuck", `{"config_id":"stuck"}`, "unsolvable", 0},
		{"blockers", `{"config_id":"blockers"}`, "solved", 6},
		{"classic", `{"config_id":"classic","parallel":true}`, "solved", 25},
		{"west gate", `{"config_id":"west-gate"}`, "solved", 3},
		{"already solved grid", `{"grid":[[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,1,1],[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0]]}`, "already_solved", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/solve", tt.body))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d (%s)", w.Code, w.Body.String())
			}

			var resp struct {
				ID     string        `json:"id"`
				Status string        `json:"status"`
				Moves  []engine.Move `json:"moves"`
			}
			parseResponse(t, w, &resp)
			if resp.Status != tt.status || len(resp.Moves) != tt.numMoves {
				t.Errorf("got %s with %d moves, want %s with %d", resp.Status, len(resp.Moves), tt.status, tt.numMoves)
			}
			if resp.ID == "" {
				t.Error("Expected a report id")
			}
		})
	}

	t.Run("validation kind", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/solve", `{"grid":[[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0]]}`))
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d", w.Code)
		}
		var resp map[string]string
		parseResponse(t, w, &resp)
		if resp["kind"] != "target_missing" {
			t.Errorf("Expected target_missing, got %v", resp)
		}
	})
}

func TestEndToEnd_PlaySession(t *testing.T) {
	server := newRealServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions", `{"config_id":"blockers"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created service.SessionInfo
	parseResponse(t, w, &created)
	base := "/api/sessions/" + created.ID

	// blocked by vehicle 2
	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", base+"/move", `{"carId":1,"direction":"right"}`))
	var rejected service.MoveResult
	parseResponse(t, w, &rejected)
	if rejected.Success || rejected.ReasonCode != service.StopBlocked || rejected.BlockedBy != 2 {
		t.Errorf("Expected move blocked by 2, got %+v", rejected)
	}

	// follow hints to the exit
	for i := 0; i < 10; i++ {
		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", base+"/hint", nil))
		var hint service.HintResult
		parseResponse(t, w, &hint)
		if hint.Status == solver.StatusAlreadySolved {
			break
		}
		if hint.Move == nil {
			t.Fatalf("hint without a move: %+v", hint)
		}

		body, _ := json.Marshal(hint.Move)
		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", base+"/move", string(body)))
		var moved service.MoveResult
		parseResponse(t, w, &moved)
		if !moved.Success {
			t.Fatalf("hinted move %v rejected: %+v", hint.Move, moved)
		}
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", base+"/state", nil))
	var state engine.GameState
	parseResponse(t, w, &state)
	if !state.Solved {
		t.Error("Expected the session to be solved after following hints")
	}
	if state.CurrentMovesCount != 7 {
		t.Errorf("Expected 1 rejected + 6 hinted moves, got %d", state.CurrentMovesCount)
	}
}
