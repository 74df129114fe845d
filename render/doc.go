// Package render turns environment snapshots into 2D sprite frames.
//
// The renderer is the observer half of the environment: it consumes
// read-only engine.Snapshot values and never steps anything. Frames are
// drawn with gg onto a square window of gridSize*cellSize pixels: the
// background scaled to the window, then the goal sprite, one penalty sprite
// per penalty cell and the agent sprite, each scaled to one cell and placed
// at (col*cell, row*cell).
//
// Sprites are loaded once with LoadAssets. A missing or unreadable sprite is
// a hard error; nothing falls back to placeholder art.
//
//	assets, err := render.LoadAssets("assets", cfg.Assets)
//	if err != nil {
//		log.Fatal(err)
//	}
//	r, _ := render.NewRenderer(cfg.EffectiveCellSize(), assets)
//	rec, _ := render.NewRecorder(r, "frames")
//	rec.Title(cfg.GridSize)
//	rec.Record(env.Snapshot())
package render
