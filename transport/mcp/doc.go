// Package mcp exposes the grid-world environment to AI agents over the
// Model Context Protocol.
//
// The Client is a thin proxy: every tool call is forwarded to the REST API
// (see package api), so an agent and a browser or desktop observer share the
// same sessions.
//
// MCP Tools:
//   - create_session, list_sessions, get_session, delete_session
//   - observe: observation, return, local 3x3 view and the ASCII grid
//   - step: one action, by index (0=up, 1=down, 2=right, 3=left) or direction
//   - bulk_step: a sequence of actions, stopping when the episode terminates
//   - reset_env: begin a new episode
//   - step_history: paginated step history plus the running episode
//   - list_configs: available grid configurations
//   - env_instructions: rules and reward table
//   - describe_cell: one cell's kind, whether it is terminal and its distance to the goal
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST JSON-RPC bodies to a handler that calls HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
