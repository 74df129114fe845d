// Package session keeps the active environment sessions of a server.
//
// Each session owns one engine.Environment plus the config it was built
// from. Sessions are held in memory only; restarting the process drops them.
//
// Session IDs are 4 hex characters from crypto/rand unless the caller picks
// one. Lookups are case-insensitive.
//
// The manager is safe for concurrent use, but the environments it hands out
// are not: callers step a session's environment from one goroutine at a time
// (the service layer serializes this).
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//	removed := manager.CleanupExpiredSessions(time.Hour)
package session
