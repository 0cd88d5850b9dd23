package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mcp-training/rushhour/game/engine"
	"github.com/wricardo/mcp-training/rushhour/game/solver"
)

// puzzleServiceImpl implements the PuzzleService interface
type puzzleServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	solveOpts solver.Options
	mu        sync.RWMutex
}

// NewPuzzleService creates a new puzzle service instance
func NewPuzzleService(sessions SessionManager, configs ConfigManager, solveOpts solver.Options) PuzzleService {
	return &puzzleServiceImpl{
		sessions:  sessions,
		configs:   configs,
		solveOpts: solveOpts,
	}
}

// getConfigID returns the config_id for a given display name, used for consistent API responses
func (s *puzzleServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *puzzleServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		PuzzleConfig:   sess.Config,
	}
}

func (s *puzzleServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, err)
		}
		return nil, fmt.Errorf("session %s: %w: %v", sessionID, ErrSessionNotFound, err)
	}
	return sess, nil
}

func (s *puzzleServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		fmt.Printf("Warning: Failed to persist session %s after %s: %v\n", sessionID, after, err)
	}
}

// CreateSession creates a new play session
func (s *puzzleServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.PuzzleConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s': %w. Available configs: %v", configName, ErrConfigNotFound, configIDs)
				}
				return nil, fmt.Errorf("config '%s': %w. Use /api/configs to list available puzzles", configName, ErrConfigNotFound)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate the ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}
	return s.sessionInfo(sess, configID), nil
}

// GetSession retrieves session information
func (s *puzzleServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(sess, s.getConfigID(sess.Config.Name)), nil
}

// ListSessions returns all active sessions
func (s *puzzleServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, s.getConfigID(sess.Config.Name)))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *puzzleServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		return err
	}
	return nil
}

// Move executes a single move for a session
func (s *puzzleServiceImpl) Move(ctx context.Context, sessionID string, move engine.Move, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	step, reason, blocker := s.apply(sess, move, 1)
	state := sess.Engine.GetState()

	result := &MoveResult{
		Success:    step.Success,
		Move:       move,
		GameState:  state,
		Message:    state.Message,
		Events:     append(events, stepEvents(step, state)...),
		ReasonCode: reason,
		BlockedBy:  blocker,
	}
	if step.Success {
		result.Step = &step
	}

	s.persist(sessionID, "move")
	return result, nil
}

// apply runs one move on the session engine and describes what happened
func (s *puzzleServiceImpl) apply(sess *Session, move engine.Move, idx int) (StepInfo, string, int) {
	board := sess.Engine.GetBoard()
	step := StepInfo{Idx: idx, Move: move}

	var reason string
	blocker := 0
	if board.IsSolved() {
		reason = StopSolved
	} else if err := board.CheckMove(move); err != nil {
		reason, blocker = classifyMoveError(board, move, err)
	}

	if v, ok := board.Vehicle(move.CarID); ok {
		step.From = v.Anchor
		step.To = v.Anchor
	}

	step.Success = sess.Engine.Move(move)
	if step.Success {
		if v, ok := sess.Engine.GetBoard().Vehicle(move.CarID); ok {
			step.To = v.Anchor
		}
		step.Solved = sess.Engine.IsSolved()
		reason, blocker = "", 0
	}
	return step, reason, blocker
}

// classifyMoveError maps a CheckMove failure to a stop reason code and the blocking vehicle, if any
func classifyMoveError(board *engine.Board, move engine.Move, err error) (string, int) {
	switch {
	case errors.Is(err, engine.ErrUnknownDirection):
		return StopInvalidDirection, 0
	case errors.Is(err, engine.ErrUnknownVehicle):
		return StopUnknownVehicle, 0
	}

	v, _ := board.Vehicle(move.CarID)
	if !v.CanTravel(move.Direction) {
		return StopWrongAxis, 0
	}
	cell := engine.LeadingCell(v, move.Direction)
	rules := board.Rules()
	if cell.Row < 0 || cell.Row >= rules.Rows || cell.Col < 0 || cell.Col >= rules.Cols {
		return StopOffBoard, 0
	}
	return StopBlocked, board.Grid()[cell.Row][cell.Col]
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Puzzle reset to its starting position",
		Timestamp: time.Now(),
	}
}

// stepEvents generates events from an attempted move
func stepEvents(step StepInfo, state *engine.GameState) []GameEvent {
	m := step.Move
	if !step.Success {
		return []GameEvent{{
			Type:      "blocked",
			Message:   state.Message,
			Timestamp: time.Now(),
			Move:      &m,
		}}
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Vehicle %d moved %s to (%d,%d)", m.CarID, m.Direction, step.To.Row, step.To.Col),
		Timestamp: time.Now(),
		Move:      &m,
	}}
	if step.Solved {
		events = append(events, GameEvent{
			Type:      "solved",
			Message:   state.Message,
			Timestamp: time.Now(),
		})
	}
	return events
}

// BulkMove executes multiple moves in sequence
func (s *puzzleServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if sess.Engine.IsSolved() {
			result.StoppedReason = "puzzle already solved"
			result.StopReasonCode = StopSolved
			result.StoppedOnMove = i + 1
			break
		}

		step, reason, blocker := s.apply(sess, move, i+1)
		state := sess.Engine.GetState()
		result.Events = append(result.Events, stepEvents(step, state)...)

		if !step.Success {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d (%s) rejected: %s", i+1, move, state.Message)
			result.StopReasonCode = reason
			result.StoppedOnMove = i + 1
			result.BlockedBy = blocker
			break
		}

		result.MovesExecuted++
		result.Steps = append(result.Steps, step)
	}

	endState := sess.Engine.GetState()
	result.GameState = endState
	result.Solved = endState.Solved
	result.Message = endState.Message
	result.PossibleMoves = sess.Engine.GetPossibleMoves()
	result.ExitDistance = engine.ExitDistance(sess.Engine.GetBoard())

	s.persist(sessionID, "bulk moves")
	return result, nil
}

// Reset returns a session to its puzzle's starting board
func (s *puzzleServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state := sess.Engine.Reset()

	s.persist(sessionID, "reset")
	return state, nil
}

// GetGameState retrieves the current state of a session
func (s *puzzleServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState(), nil
}

// GetMoveHistory returns paginated move history
func (s *puzzleServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// Solve finds the shortest solution of a grid or a stored puzzle without touching any session
func (s *puzzleServiceImpl) Solve(ctx context.Context, req *SolveRequest) (*SolveReport, error) {
	if req == nil || (len(req.Grid) == 0 && req.ConfigID == "") {
		return nil, ErrEmptyRequest
	}

	grid := req.Grid
	rules := req.Rules.Resolve()
	configID := ""
	if len(grid) == 0 {
		config, err := s.configs.LoadConfig(req.ConfigID)
		if err != nil {
			return nil, fmt.Errorf("config '%s': %w", req.ConfigID, err)
		}
		grid = config.Grid
		configID = req.ConfigID
		if req.Rules == nil {
			rules = config.ResolvedRules()
		}
	}

	board, err := engine.ParseBoard(grid, rules)
	if err != nil {
		return nil, err
	}

	opts := s.solveOpts
	if req.Parallel != nil {
		opts.Parallel = *req.Parallel
	}

	started := time.Now()
	res, err := solver.Solve(ctx, board, opts)
	if err != nil {
		return nil, err
	}

	return &SolveReport{
		ID:        uuid.NewString(),
		Result:    res,
		ConfigID:  configID,
		Rules:     rules,
		Picture:   engine.Picture(board),
		ElapsedMS: time.Since(started).Milliseconds(),
	}, nil
}

// Hint solves from the session's current board and suggests the first move
func (s *puzzleServiceImpl) Hint(ctx context.Context, sessionID string) (*HintResult, error) {
	s.mu.RLock()
	sess, err := s.getSession(sessionID)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	// boards are immutable, so the search can run without holding the lock
	board := sess.Engine.GetBoard()
	s.mu.RUnlock()

	res, err := solver.Solve(ctx, board, s.solveOpts)
	if err != nil {
		return nil, err
	}

	hint := &HintResult{
		SessionID:      sessionID,
		Status:         res.Status,
		RemainingMoves: len(res.Moves),
		Solution:       res.Moves,
	}
	switch res.Status {
	case solver.StatusSolved:
		first := res.Moves[0]
		hint.Move = &first
		hint.Message = fmt.Sprintf("Move vehicle %d %s (%d moves to go)", first.CarID, first.Direction, len(res.Moves))
	case solver.StatusAlreadySolved:
		hint.Message = "The puzzle is already solved"
	default:
		hint.Message = "No sequence of moves frees the target from here. Try a reset."
	}
	return hint, nil
}

// ListConfigs returns available puzzle definitions
func (s *puzzleServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific puzzle definition
func (s *puzzleServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.PuzzleConfig, error) {
	return s.configs.LoadConfig(strings.TrimSuffix(configName, ".json"))
}

// SaveConfig saves a puzzle definition to disk
func (s *puzzleServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.PuzzleConfig) error {
	return s.configs.SaveConfig(configName, config)
}
