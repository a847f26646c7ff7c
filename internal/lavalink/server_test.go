package lavalink_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/jukebox/internal/lavalink"
	"github.com/gorilla/websocket"
)

const testPassword = "youshallnotpass"

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeLavalink is a minimal Lavalink v4 server: it accepts websockets one
// session at a time, answers loadtracks from a table and records player
// requests.
type fakeLavalink struct {
	t      *testing.T
	server *httptest.Server
	loads  map[string]string

	mu        sync.Mutex
	requests  []recordedRequest
	ws        *websocket.Conn
	sessions  int
	wsReady   chan struct{}
	readyOnce sync.Once
}

func newFakeLavalink(t *testing.T) *fakeLavalink {
	t.Helper()
	f := &fakeLavalink{t: t, loads: map[string]string{}, wsReady: make(chan struct{})}

	mux := http.NewServeMux()
	mux.HandleFunc("/v4/websocket", f.handleWebsocket)
	mux.HandleFunc("/v4/loadtracks", f.handleLoad)
	mux.HandleFunc("/v4/sessions/", f.handlePlayer)
	f.server = httptest.NewServer(mux)
	t.Cleanup(func() {
		f.mu.Lock()
		if f.ws != nil {
			f.ws.Close()
		}
		f.mu.Unlock()
		f.server.Close()
	})
	return f
}

func (f *fakeLavalink) nodeConfig(name string) lavalink.NodeConfig {
	host, port, secure, err := lavalink.NormalizeURL(f.server.URL, false)
	if err != nil {
		f.t.Fatalf("failed to parse test server url: %v", err)
	}
	return lavalink.NodeConfig{Name: name, Host: host, Port: port, Password: testPassword, Secure: secure}
}

func (f *fakeLavalink) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != testPassword {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (f *fakeLavalink) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	if r.Header.Get("User-Id") == "" || r.Header.Get("Client-Name") == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.ws = conn
	f.sessions++
	sessionID := fmt.Sprintf("sess-%d", f.sessions)
	_ = conn.WriteJSON(map[string]any{"op": "ready", "resumed": false, "sessionId": sessionID})
	_ = conn.WriteJSON(map[string]any{"op": "stats", "players": 2, "playingPlayers": 1, "uptime": 60000})
	f.mu.Unlock()
	f.readyOnce.Do(func() { close(f.wsReady) })
	// drain until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *fakeLavalink) handleLoad(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	body, ok := f.loads[r.URL.Query().Get("identifier")]
	if !ok {
		body = `{"loadType":"empty","data":{}}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (f *fakeLavalink) handlePlayer(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: strings.TrimSpace(string(body))})
	f.mu.Unlock()

	if strings.Contains(r.URL.Path, "/players/broken") {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 400, "error": "Bad Request", "message": "invalid voice state"})
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{}`)
}

// push sends a frame to the connected client.
func (f *fakeLavalink) push(v any) {
	f.t.Helper()
	select {
	case <-f.wsReady:
	case <-time.After(5 * time.Second):
		f.t.Fatalf("websocket never connected")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ws.WriteJSON(v); err != nil {
		f.t.Fatalf("failed to push frame: %v", err)
	}
}

// dropWebsocket closes the current session from the server side.
func (f *fakeLavalink) dropWebsocket() {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ws == nil {
		f.t.Fatalf("no websocket to drop")
	}
	_ = f.ws.Close()
}

func (f *fakeLavalink) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func trackJSON(encoded, title, author string, lengthMs int64) map[string]any {
	return map[string]any{
		"encoded": encoded,
		"info": map[string]any{
			"identifier": encoded,
			"title":      title,
			"author":     author,
			"length":     lengthMs,
			"isStream":   false,
			"uri":        "https://example.com/" + encoded,
		},
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return string(b)
}
