// Package envclient talks to a running grid world server: REST calls for
// sessions and steps, and the websocket snapshot feed.
package envclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Position is a (row, column) grid cell
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Move is one entry of the step history
type Move struct {
	Action     int      `json:"action"`
	From       Position `json:"from"`
	To         Position `json:"to"`
	Outcome    string   `json:"outcome"`
	Reward     float64  `json:"reward"`
	Return     float64  `json:"return"`
	Episode    int      `json:"episode"`
	MoveNumber int      `json:"move_number"`
}

// Snapshot is the subset of the server snapshot the window draws
type Snapshot struct {
	ConfigName   string     `json:"config_name"`
	GridSize     int        `json:"grid_size"`
	Start        Position   `json:"start"`
	Goal         Position   `json:"goal"`
	Penalties    []Position `json:"penalties"`
	Agent        Position   `json:"agent"`
	Return       float64    `json:"return"`
	Terminated   bool       `json:"terminated"`
	Reason       string     `json:"reason,omitempty"`
	Status       string     `json:"status"`
	Episode      int        `json:"episode"`
	Steps        int        `json:"steps"`
	Message      string     `json:"message"`
	CurrentMoves []Move     `json:"current_moves"`
	Info         struct {
		DistanceToGoal float64 `json:"distance_to_goal"`
	} `json:"info"`
}

// IsPenalty reports whether p is a penalty cell
func (s *Snapshot) IsPenalty(p Position) bool {
	for _, pen := range s.Penalties {
		if pen == p {
			return true
		}
	}
	return false
}

// Message is the websocket envelope
type Message struct {
	SessionID string    `json:"session_id"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
	Event     string    `json:"event,omitempty"`
}

// SessionSummary is a session as listed by the server
type SessionSummary struct {
	ID         string    `json:"id"`
	ConfigName string    `json:"config_name"`
	Snapshot   *Snapshot `json:"snapshot"`
}

// ConfigSummary is a config as listed by the server
type ConfigSummary struct {
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	GridSize    int    `json:"grid_size"`
}

// Client calls the REST API of one server
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to parse response: %v (body: %s)", err, string(data))
	}
	return nil
}

// CreateSession starts a session on configID, or the server default when empty
func (c *Client) CreateSession(ctx context.Context, configID string) (*SessionSummary, error) {
	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}
	var session SessionSummary
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns the sessions the server holds
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var resp struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// ListConfigs returns the available grid configurations
func (c *Client) ListConfigs(ctx context.Context) ([]ConfigSummary, error) {
	var configs []ConfigSummary
	if err := c.do(ctx, http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// State fetches the current snapshot of a session
func (c *Client) State(ctx context.Context, sessionID string) (*Snapshot, error) {
	var snap Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID)+"/state", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Step sends one move by direction name
func (c *Client) Step(ctx context.Context, sessionID, direction string) (*Snapshot, error) {
	var resp struct {
		Snapshot *Snapshot `json:"snapshot"`
	}
	body := map[string]string{"direction": direction}
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/step", body, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshot, nil
}

// Reset starts a new episode
func (c *Client) Reset(ctx context.Context, sessionID string) (*Snapshot, error) {
	var resp struct {
		Snapshot *Snapshot `json:"snapshot"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/reset", map[string]string{}, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshot, nil
}

// FeedURL returns the websocket URL observing sessionID
func (c *Client) FeedURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe reads the snapshot feed of sessionID and calls onSnapshot for
// every snapshot until ctx is cancelled or the connection drops.
func (c *Client) Subscribe(ctx context.Context, sessionID string, onSnapshot func(*Snapshot)) error {
	wsURL, err := c.FeedURL(sessionID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	log.Printf("WebSocket connected for session %s", sessionID)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("websocket read for %s: %w", sessionID, err)
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("WebSocket JSON parse error: %v", err)
			continue
		}
		if msg.Snapshot == nil {
			continue
		}
		onSnapshot(msg.Snapshot)
	}
}
