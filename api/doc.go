// Package api provides HTTP REST API handlers for the grid-world environment.
//
// The api package implements:
//   - Session management endpoints
//   - Episode control (step, bulk step, reset) and observation
//   - Configuration listing, lookup and upload
//   - PNG frames of a session when a renderer is attached
//   - WebSocket upgrade handling for the snapshot feed
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Sessions grouped for a multi-session view
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Episode:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/step - Apply one action
//   - POST /api/sessions/{id}/bulk-step - Apply a sequence of actions
//   - POST /api/sessions/{id}/reset - Begin a new episode
//   - GET /api/sessions/{id}/history - Paginated step history (?page=&limit=&order=)
//   - GET /api/sessions/{id}/frame.png - Rendered frame
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Get a configuration
//   - POST /api/configs - Save a configuration
//
// Other:
//   - GET /api/health
//   - GET /ws?session={id} - Snapshot feed
//
// Step requests carry either the numeric action or a direction name:
//
//	{"action": 2}
//	{"direction": "right", "reset": false}
//
// Actions outside 0..3 are not rejected. They reach the environment, which
// answers with outcome "invalid_action" and charges the step reward.
//
// Bulk step requests:
//
//	{"actions": [0, 0, 2], "reset": true}
//	{"directions": ["up", "up", "right"]}
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "error message"}
package api
