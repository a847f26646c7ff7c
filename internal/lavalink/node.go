package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type NodeState int

const (
	StateConnecting NodeState = iota
	StateConnected
	StateDisconnecting
	StateIdle
)

func (s NodeState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

var ErrNodeNotReady = errors.New("lavalink node has no session")

// RESTError is returned when a node answers a REST call with a non-2xx status.
type RESTError struct {
	Status  int
	Message string
	Path    string
}

func (e *RESTError) Error() string {
	return fmt.Sprintf("lavalink %s returned %d: %s", e.Path, e.Status, e.Message)
}

var _ error = (*RESTError)(nil)

// Node is a single Lavalink server: one websocket session plus its REST API.
// The websocket carries events; every command goes over REST.
type Node struct {
	cfg        NodeConfig
	userID     string
	clientName string
	httpClient *http.Client
	dialer     *websocket.Dialer
	onEvent    func(NodeEvent)
	logger     *slog.Logger

	mu        sync.RWMutex
	state     NodeState
	sessionID string
	conn      *websocket.Conn
	stats     Stats
	ready     chan struct{}
}

func NewNode(cfg NodeConfig, userID, clientName string, onEvent func(NodeEvent)) *Node {
	return &Node{
		cfg:        cfg,
		userID:     userID,
		clientName: clientName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		onEvent:    onEvent,
		logger:     slog.Default().With("node", cfg.Name),
		state:      StateIdle,
	}
}

func (n *Node) Name() string {
	return n.cfg.Name
}

func (n *Node) Config() NodeConfig {
	return n.cfg
}

func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Node) SessionID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sessionID
}

func (n *Node) Stats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stats
}

// Connect dials the websocket and waits for the ready frame. It is a no-op
// unless the node is idle.
func (n *Node) Connect(ctx context.Context) error {
	n.mu.Lock()
	if n.state != StateIdle {
		n.mu.Unlock()
		return nil
	}
	n.state = StateConnecting
	ready := make(chan struct{})
	n.ready = ready
	n.mu.Unlock()

	headers := http.Header{}
	headers.Set("Authorization", n.cfg.Password)
	headers.Set("User-Id", n.userID)
	headers.Set("Client-Name", n.clientName)

	conn, _, err := n.dialer.DialContext(ctx, n.cfg.WebsocketURL(), headers)
	if err != nil {
		n.setIdle()
		return fmt.Errorf("failed to dial lavalink node %s: %w", n.cfg.Name, err)
	}

	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()
	closed := make(chan struct{})
	go n.readLoop(conn, closed)

	select {
	case <-ready:
		n.logger.Info("Lavalink node ready", "address", n.cfg.Address())
		return nil
	case <-closed:
		return fmt.Errorf("lavalink node %s closed the connection before ready", n.cfg.Name)
	case <-ctx.Done():
		n.Close()
		return fmt.Errorf("lavalink node %s did not become ready: %w", n.cfg.Name, ctx.Err())
	}
}

// Close drops the websocket session. Players on the node are left to the
// node's own session timeout.
func (n *Node) Close() {
	n.mu.Lock()
	conn := n.conn
	if conn != nil {
		n.state = StateDisconnecting
	}
	n.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			n.logger.Warn("Failed to close lavalink websocket", "err", err)
		}
	}
	n.setIdle()
}

func (n *Node) setIdle() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = StateIdle
	n.sessionID = ""
	n.conn = nil
}

func (n *Node) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			n.mu.RLock()
			current := n.conn == conn
			n.mu.RUnlock()
			if current {
				n.logger.Warn("Lavalink websocket closed", "err", err)
				n.setIdle()
				if n.onEvent != nil {
					n.onEvent(NodeEvent{Node: n.cfg.Name, Type: eventNodeLost})
				}
			}
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			n.logger.Warn("Ignoring malformed lavalink frame", "err", err)
			continue
		}
		n.handleMessage(msg)
	}
}

func (n *Node) handleMessage(msg message) {
	switch msg.Op {
	case "ready":
		n.mu.Lock()
		n.sessionID = msg.SessionID
		n.state = StateConnected
		ready := n.ready
		n.ready = nil
		n.mu.Unlock()
		if ready != nil {
			close(ready)
		}
	case "stats":
		n.mu.Lock()
		n.stats = Stats{
			Players:        msg.Players,
			PlayingPlayers: msg.PlayingPlayers,
			Uptime:         time.Duration(msg.Uptime) * time.Millisecond,
		}
		n.mu.Unlock()
	case "playerUpdate":
		if msg.State != nil && !msg.State.Connected {
			n.logger.Debug("Player voice connection is down", "guildID", msg.GuildID)
		}
	case "event":
		if n.onEvent == nil {
			return
		}
		n.onEvent(NodeEvent{
			Node:      n.cfg.Name,
			GuildID:   msg.GuildID,
			Type:      msg.Type,
			Track:     msg.Track,
			Reason:    msg.Reason,
			Exception: msg.Exception,
			Code:      msg.Code,
			ByRemote:  msg.ByRemote,
		})
	default:
		n.logger.Debug("Ignoring lavalink op", "op", msg.Op)
	}
}

// LoadTracks resolves an identifier such as a URL or "ytsearch:query".
func (n *Node) LoadTracks(ctx context.Context, identifier string) (*LoadResult, error) {
	var res LoadResult
	path := "/v4/loadtracks?identifier=" + url.QueryEscape(identifier)
	if err := n.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (n *Node) UpdatePlayer(ctx context.Context, guildID string, update PlayerUpdate) error {
	path, err := n.playerPath(guildID)
	if err != nil {
		return err
	}
	return n.do(ctx, http.MethodPatch, path, update, nil)
}

func (n *Node) DestroyPlayer(ctx context.Context, guildID string) error {
	path, err := n.playerPath(guildID)
	if err != nil {
		return err
	}
	return n.do(ctx, http.MethodDelete, path, nil, nil)
}

func (n *Node) playerPath(guildID string) (string, error) {
	sessionID := n.SessionID()
	if sessionID == "" {
		return "", ErrNodeNotReady
	}
	return fmt.Sprintf("/v4/sessions/%s/players/%s", sessionID, guildID), nil
}

func (n *Node) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.cfg.RESTURL(path), reader)
	if err != nil {
		return fmt.Errorf("failed to build lavalink request: %w", err)
	}
	req.Header.Set("Authorization", n.cfg.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lavalink %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var restErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&restErr)
		msg := restErr.Message
		if msg == "" {
			msg = restErr.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return &RESTError{Status: resp.StatusCode, Message: msg, Path: path}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode lavalink response: %w", err)
	}
	return nil
}
