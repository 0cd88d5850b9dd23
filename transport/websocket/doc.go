// Package websocket pushes live session updates to browser watchers.
//
// Clients connect to /ws?sessionId=<id> and receive JSON frames:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "hint", "data": {"carId": 2, "direction": 0}}
//
// The Hub owns all client bookkeeping on its Run goroutine. Broadcasts are
// queued and never block the caller; a client whose send buffer is full is
// disconnected. Frames sent by clients are ignored.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
//	})
//	hub.BroadcastToSession(sessionID, state)
package websocket
