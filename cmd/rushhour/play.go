package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
	"github.com/wricardo/mcp-training/rushhour/game/service"
	"github.com/wricardo/mcp-training/rushhour/game/solver"
)

// apiClient drives a session on a running puzzle server
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *apiClient) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	var body interface{}
	if configID != "" {
		body = map[string]string{"config_id": configID}
	}

	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if info.GameState == nil {
		return nil, fmt.Errorf("create session: response has no game state")
	}
	return &info, nil
}

func (c *apiClient) BulkMove(ctx context.Context, sessionID string, moves []engine.Move) (*service.BulkMoveResult, error) {
	req := map[string]interface{}{"moves": moves}

	var result service.BulkMoveResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/bulk-move", req, &result); err != nil {
		return nil, fmt.Errorf("bulk move: %w", err)
	}
	return &result, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	return json.Unmarshal(data, out)
}

// playReport summarises a remote play-through
type playReport struct {
	SessionID string
	Planned   int
	Executed  int
	Solved    bool
	Status    solver.Status
}

// play creates a session on the server, plans a shortest solution locally and
// submits it in batches of at most engine.MaxBulkMoves. The server's own
// solved flag decides the outcome.
func play(ctx context.Context, client *apiClient, configID string, opts solver.Options, progress io.Writer) (*playReport, error) {
	info, err := client.CreateSession(ctx, configID)
	if err != nil {
		return nil, err
	}
	state := info.GameState
	fmt.Fprintf(progress, "Session %s on %s\n", info.ID, info.ConfigName)

	res, err := solver.SolveGrid(ctx, state.Grid, state.Rules, opts)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	report := &playReport{SessionID: info.ID, Planned: len(res.Moves), Status: res.Status, Solved: state.Solved}
	if res.Status != solver.StatusSolved {
		return report, nil
	}

	for start := 0; start < len(res.Moves); start += engine.MaxBulkMoves {
		end := start + engine.MaxBulkMoves
		if end > len(res.Moves) {
			end = len(res.Moves)
		}

		result, err := client.BulkMove(ctx, info.ID, res.Moves[start:end])
		if err != nil {
			return report, err
		}
		report.Executed += result.MovesExecuted
		report.Solved = result.Solved
		fmt.Fprintf(progress, "Executed %d/%d moves, %d cells to the exit\n", report.Executed, report.Planned, result.ExitDistance)

		if result.StopReasonCode != "" && result.StopReasonCode != service.StopSolved {
			return report, fmt.Errorf("server stopped on move %d: %s", start+result.StoppedOnMove, result.StoppedReason)
		}
	}

	return report, nil
}
