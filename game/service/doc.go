// Package service provides the layer between transports and the environment.
//
// Core Interfaces:
//
// GameService is the interface the HTTP, WebSocket and MCP surfaces talk to.
// SessionManager stores sessions and ConfigManager loads configurations; the
// game/session and game/config packages provide the implementations.
//
// Every mutating call (Step, BulkStep, Reset) holds the service write lock, so
// each environment has exactly one caller stepping it at a time. Snapshots
// handed back are deep copies and may be read without further locking.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := svc.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := svc.Step(ctx, info.ID, int(engine.ActionUp), false)
//
// Step never fails because of the action itself: out-of-range actions and
// steps on a finished episode come back as StepResponse values tagged with
// their outcome. Errors are reserved for unknown sessions and configs.
package service
