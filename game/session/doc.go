// Package session keeps interactive Rush Hour sessions.
//
// Each session owns a PuzzleEngine for one puzzle, so moves in one session
// never affect another. Ids are case-insensitive; an empty id on Create gets
// a random 4-character hex id.
//
// With a SessionPersistence attached, the manager writes sessions through on
// create and access, and reloads them lazily on Get. FilePersistence stores
// one JSON file per session holding the board, the move history, the config
// id and a copy of the puzzle, so a session survives its config file being
// removed.
//
// Usage:
//
//	persistence, _ := session.NewFilePersistence("sessions", configManager)
//	manager := session.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//	manager.StartCleanup(ctx, time.Minute, 24*time.Hour)
//
//	sess, err := manager.Create("", puzzle)
package session
