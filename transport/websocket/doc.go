// Package websocket streams environment snapshots to observers.
//
// The feed is one-way, from the environment to its renderers: after every
// step or reset the API broadcasts a read-only engine.Snapshot to every
// connection subscribed to that session. Renderers (the desktop window, a
// browser page) never change the environment through this channel.
//
// Message Protocol:
//
// Every frame is a single JSON Message:
//
//	{"session_id": "ab12", "event": "snapshot", "snapshot": {...}}
//
// Clients subscribe with GET /ws?session=ab12 and receive the current
// snapshot as their first frame.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"), snapshot)
//	})
//
// A client whose send buffer fills up is dropped rather than slowing the
// broadcaster down.
package websocket
