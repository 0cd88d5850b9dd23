// Package config manages the library of Rush Hour puzzle definitions.
//
// Puzzles are JSON files in a config directory; the file name without its
// extension is the config id used to create sessions and solve by name:
//
//	{
//	  "name": "Classic",
//	  "description": "...",
//	  "difficulty": "intermediate",
//	  "grid": [[0,0,...], ...],
//	  "rules": {"rows": 6, "cols": 6, "target_id": 1, "exit_side": "right", "exit_line": 2}
//	}
//
// The rules block is optional and defaults to the standard 6x6 board with car 1
// leaving row 2 on the right. Every file is validated with
// engine.ValidatePuzzleConfig before it is cached; invalid files are skipped by
// ListConfigs and reported by LoadConfig.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	puzzle, err := manager.LoadConfig("classic")
//	infos, err := manager.ListConfigs()
//
// The default puzzle is classic.json when present, otherwise the first valid
// file, otherwise the built-in engine.DefaultPuzzleConfig.
package config
