package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/interview-os/internal/interview"
)

func TestServer_MountsAPI(t *testing.T) {
	srv := NewServer(&Config{}, nil)
	srv.MountAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/health", "/api/v1/session"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"path":"`+path+`"}`, string(body))
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := NewServer(&Config{CORSOrigins: []string{"http://localhost:5173"}}, nil)
	srv.MountAPI(http.NotFoundHandler())

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/session", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_SPAFallback(t *testing.T) {
	staticDir := t.TempDir()
	dist := filepath.Join(staticDir, "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>app</html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "app.js"), []byte("console.log('app')"), 0644))

	srv := NewServer(&Config{StaticDir: staticDir}, nil)
	srv.SetupSPAFallback()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/interview/c1", http.StatusOK, "<html>app</html>"},
		{"/assets/app.js", http.StatusOK, "console.log('app')"},
		{"/api/v1/unknown", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.body, string(body))
			}
		})
	}
}

func TestServer_WebSocket(t *testing.T) {
	hub := newTestHub(t)
	srv := NewServer(&Config{}, hub)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, wsResp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer c.Close()
	if wsResp != nil && wsResp.Body != nil {
		defer wsResp.Body.Close()
	}

	// registration happens asynchronously; keep broadcasting until one arrives
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, c.SetReadDeadline(deadline))
	done := make(chan []byte, 1)
	go func() {
		_, msg, err := c.ReadMessage()
		if err == nil {
			done <- msg
		}
		close(done)
	}()

	var msg []byte
	for msg == nil && time.Now().Before(deadline) {
		hub.Broadcast(interview.Event{Type: interview.EventSessionUpdated})
		select {
		case msg = <-done:
		case <-time.After(20 * time.Millisecond):
		}
	}
	require.NotNil(t, msg)

	var got WSEvent
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, interview.EventSessionUpdated, got.Type)
}

func TestServer_NoHubNoWebSocket(t *testing.T) {
	srv := NewServer(&Config{}, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
