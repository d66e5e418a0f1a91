package conn

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSURL(t *testing.T) {
	tbl := []struct {
		base, want string
		err        bool
	}{
		{"http://localhost:8000", "ws://localhost:8000/ws/j1", false},
		{"https://media.example.com/", "wss://media.example.com/ws/j1", false},
		{"https://media.example.com/miner", "wss://media.example.com/miner/ws/j1", false},
		{"ws://localhost:8000", "ws://localhost:8000/ws/j1", false},
		{"wss://h", "wss://h/ws/j1", false},
		{"ftp://h", "", true},
		{"://bad", "", true},
	}
	for _, tt := range tbl {
		t.Run(tt.base, func(t *testing.T) {
			u, err := WSURL(tt.base, "j1")
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u)
		})
	}
}

func TestWSDialer_JobLifecycle(t *testing.T) {
	upgrader := websocket.Upgrader{}
	pinged := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/j1", r.URL.Path)
		c, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer c.Close()

		_, msg, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "ping", string(msg))
		close(pinged)

		for _, m := range []string{
			`{"type":"snapshot","status":"downloading","job":{"id":"j1"},"events":[]}`,
			`{"type":"progress","status":"downloading","percent":"75%","speed":"2MiB/s","eta":"00:03"}`,
			`{"type":"status","status":"finished"}`,
		} {
			require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(m)))
		}
		// wait for client close
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	f := newFixture(t, WSDialer{BaseURL: ts.URL})
	f.conn.params.PingInterval = 10 * time.Millisecond
	require.NoError(t, f.conn.Start(t.Context()))

	select {
	case <-pinged:
	case <-time.After(5 * time.Second):
		t.Fatal("no keepalive received")
	}
	f.waitDone(t)

	ss := f.session.Get()
	assert.Equal(t, "Download complete!", ss.CurrentProgress)
	assert.False(t, ss.Busy)
	assert.Len(t, f.notifier.JobCompletedCalls(), 1)
	full := f.jobLog.Get().FullLog
	assert.Contains(t, full, `] SNAPSHOT: {"id":"j1"}`)
	assert.Contains(t, full, "] downloading 75% 2MiB/s ETA:00:03")
	assert.Contains(t, full, "] STATUS: finished")
}

func TestWSDialer_ServerGone(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		_ = c.Close()
	}))
	defer ts.Close()

	f := newFixture(t, WSDialer{BaseURL: ts.URL})
	require.NoError(t, f.conn.Start(t.Context()))
	f.waitDone(t)
	assert.Contains(t, f.jobLog.Get().FullLog, "] WS closed")
	assert.False(t, f.session.Get().Busy)
	assert.Empty(t, f.notifier.JobCompletedCalls())
}

func TestWSDialer_HandshakeRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := WSDialer{BaseURL: ts.URL}.Dial(t.Context(), "j1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
