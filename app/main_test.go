package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mediaminer/jobsync/app/history"
	"github.com/mediaminer/jobsync/app/joblog"
	"github.com/mediaminer/jobsync/app/session"
	"github.com/mediaminer/jobsync/app/store"
)

func Test_makeHostName(t *testing.T) {
	opts.Notify.HostName = "test"
	assert.Equal(t, "test", makeHostName())

	opts.Notify.HostName = ""
	exp, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, exp, makeHostName())
}

func Test_makeNotifier(t *testing.T) {
	opts.Notify.EnabledCompletion, opts.Notify.EnabledError = false, false
	opts.Notify.FromEmail = ""
	opts.Notify.ToEmails = []string{"test@example.com"}
	require.NotNil(t, makeNotifier())
	assert.Empty(t, opts.Notify.FromEmail)

	opts.Notify.EnabledCompletion = true
	notif := makeNotifier()
	require.NotNil(t, notif)
	assert.Equal(t, "jobsync@"+makeHostName(), opts.Notify.FromEmail,
		"side effect of creating notifier with empty From "+
			"is setting the From based on hostname")
	opts.Notify.EnabledCompletion, opts.Notify.FromEmail, opts.Notify.ToEmails = false, "", nil
}

func Test_setupLogsWithLogsDisabled(t *testing.T) {
	opts.Log.Enabled = false
	assert.Equal(t, os.Stdout, setupLogs())
}

func Test_setupLogsToFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "jobsync.log")

	opts.Log.Enabled = true
	opts.Log.Filename = fname
	opts.Log.MaxSize = 100
	opts.Log.MaxBackups = 7
	opts.Log.MaxAge = 0
	opts.Log.EnabledCompress = false
	defer func() {
		opts.Log.Enabled = false
		setupLogs()
	}()

	out := setupLogs()
	assert.IsType(t, &lumberjack.Logger{}, out)

	logger := out.(*lumberjack.Logger)
	assert.Equal(t, fname, logger.Filename)
	assert.Equal(t, 100, logger.MaxSize)
	assert.Equal(t, 7, logger.MaxBackups)
	assert.Equal(t, 0, logger.MaxAge)
	assert.False(t, logger.Compress)
}

func Test_makeStore(t *testing.T) {
	tmp := t.TempDir()
	tbl := []struct {
		typ, path string
		want      any
	}{
		{"memory", "", &store.Memory{}},
		{"files", filepath.Join(tmp, "state"), &store.Files{}},
		{"sqlite", filepath.Join(tmp, "state.db"), &store.SQLite{}},
	}
	for _, tt := range tbl {
		t.Run(tt.typ, func(t *testing.T) {
			opts.Store.Type, opts.Store.Path = tt.typ, tt.path
			kv, closeStore, err := makeStore()
			require.NoError(t, err)
			defer closeStore()
			assert.IsType(t, tt.want, kv)
			require.NoError(t, kv.Set("k", []byte("v")))
			v, err := kv.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "v", string(v))
		})
	}
}

func Test_makeDefaults(t *testing.T) {
	opts.Presets = ""
	d, err := makeDefaults()
	require.NoError(t, err)
	assert.Equal(t, session.Defaults(), d)

	opts.Presets = filepath.Join(t.TempDir(), "presets.yml")
	require.NoError(t, os.WriteFile(opts.Presets, []byte("audio:\n  format: opus\n"), 0o600))
	d, err = makeDefaults()
	require.NoError(t, err)
	assert.Equal(t, "opus", d.Audio.Format)
	assert.Equal(t, "192", d.Audio.Bitrate)

	require.NoError(t, os.WriteFile(opts.Presets, []byte("audio:\n  bitrate: fast\n"), 0o600))
	_, err = makeDefaults()
	require.Error(t, err)
	opts.Presets = ""
}

func Test_jobForm(t *testing.T) {
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("# Netscape HTTP Cookie File\n"), 0o600))

	opts.Job.URL, opts.Job.Mode, opts.Job.Title = "https://x/a", "video", "Clip"
	opts.Job.Playlist, opts.Job.CookiesFile = true, cookies
	defer func() {
		opts.Job.URL, opts.Job.Mode, opts.Job.Title = "", "", ""
		opts.Job.Playlist, opts.Job.CookiesFile = false, ""
	}()

	f, err := jobForm()
	require.NoError(t, err)
	assert.Equal(t, "https://x/a", *f.URL)
	assert.Equal(t, session.ModeVideo, *f.Mode)
	assert.Equal(t, "Clip", *f.CustomTitle)
	assert.Nil(t, f.CustomArtist, "unset flags keep restored values")
	assert.True(t, *f.AllowPlaylist)
	assert.Equal(t, "# Netscape HTTP Cookie File\n", *f.CookieText)

	opts.Job.CookiesFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = jobForm()
	require.Error(t, err)
}

func Test_runSubmitAndWait(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/jobs/audio", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job_id":"j1"}`))
	})
	mux.HandleFunc("GET /api/files", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"download_dir":"/tmp","files":[{"name":"a.mp3","size":1,"mtime":1}]}`))
	})
	mux.HandleFunc("GET /ws/j1", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"progress","status":"downloading","percent":"90%"}`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"status","status":"finished"}`))
		_, _, _ = c.ReadMessage() // wait for client to close
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	dbPath := filepath.Join(t.TempDir(), "jobsync.db")
	opts.Store.Type, opts.Store.Path = "sqlite", dbPath
	opts.Server.URL, opts.Server.Timeout, opts.Server.Attempts, opts.Server.PingInterval = ts.URL, 5*time.Second, 1, time.Hour
	opts.Job.URL, opts.Job.Mode, opts.Job.Submit = "https://x/a", "audio", true
	defer func() {
		opts.Job.URL, opts.Job.Mode, opts.Job.Submit = "", "", false
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()
	require.NoError(t, run(ctx))

	db, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()

	ss := session.New(db, session.Defaults())
	restored := ss.Restore()
	assert.False(t, restored.Busy)
	assert.Empty(t, restored.ActiveJobID)
	assert.Equal(t, "Download complete!", restored.CurrentProgress)
	assert.Equal(t, "https://x/a", restored.URL)
	assert.Contains(t, restored.Log, "Created audio job j1\n")

	hist := history.New(db).List()
	require.Len(t, hist, 1)
	assert.Equal(t, "mp3", hist[0].Format)
	assert.Empty(t, joblog.New(db).Get().ActiveJobID)
}

func Test_runLeavesJobResumable(t *testing.T) {
	upgrader := websocket.Upgrader{}
	connected := make(chan struct{}, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		connected <- struct{}{}
		_, _, _ = c.ReadMessage()
	}))
	defer ts.Close()

	dbPath := filepath.Join(t.TempDir(), "jobsync.db")
	db, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	ss := session.New(db, session.Defaults())
	ss.Restore()
	ss.ClaimJob("j7")
	require.NoError(t, db.Close())

	opts.Store.Type, opts.Store.Path = "sqlite", dbPath
	opts.Server.URL, opts.Server.Timeout, opts.Server.PingInterval = ts.URL, 5*time.Second, time.Hour
	opts.Job.StopOnExit = false

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		<-connected
		cancel()
	}()
	require.NoError(t, run(ctx))

	db, err = store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()
	restored := session.New(db, session.Defaults()).Restore()
	assert.Equal(t, "j7", restored.ActiveJobID, "job left for the next run")
	assert.True(t, restored.Busy)
}
