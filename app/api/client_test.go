package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateAudioJob(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/jobs/audio", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &body))
		_, _ = w.Write([]byte(`{"job_id":"j1"}`))
	}))
	defer ts.Close()

	c := New(Params{BaseURL: ts.URL + "/"})
	id, err := c.CreateAudioJob(t.Context(), AudioRequest{
		JobOptions:  JobOptions{URL: "https://x/a", CustomTitle: Optional("Song")},
		AudioFormat: "mp3", Bitrate: "192",
	})
	require.NoError(t, err)
	assert.Equal(t, "j1", id)

	assert.Equal(t, "https://x/a", body["url"])
	assert.Equal(t, "mp3", body["audio_format"])
	assert.Equal(t, "192", body["bitrate"])
	assert.Equal(t, false, body["allow_playlist"])
	assert.Equal(t, "Song", body["custom_title"])
	v, ok := body["cookie_text"]
	assert.True(t, ok, "nullable fields are always sent")
	assert.Nil(t, v)
}

func TestClient_CreateVideoJob(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/video", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"job_id":"v1"}`))
	}))
	defer ts.Close()

	h := 720
	id, err := New(Params{BaseURL: ts.URL}).CreateVideoJob(t.Context(), VideoRequest{
		JobOptions: JobOptions{URL: "https://x/v", AllowPlaylist: true, PlaylistItems: Optional("1-3")},
		Container:  "mkv", MaxHeight: &h,
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", id)
	assert.Equal(t, "mkv", body["container"])
	assert.InDelta(t, 720, body["max_height"], 0.1)
	assert.Nil(t, body["prefer_codec"])
	assert.Equal(t, "1-3", body["playlist_items"])
	assert.Equal(t, true, body["allow_playlist"])
}

func TestClient_CreateJobEmptyID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()
	_, err := New(Params{BaseURL: ts.URL}).CreateAudioJob(t.Context(), AudioRequest{})
	require.Error(t, err)
}

func TestClient_RequestError(t *testing.T) {
	tbl := []struct {
		name   string
		code   int
		body   string
		detail string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"Invalid URL"}`, "Invalid URL"},
		{"no body", http.StatusInternalServerError, ``, "Request failed"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Request failed"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			err := New(Params{BaseURL: ts.URL}).StopJob(t.Context(), "j1")
			require.Error(t, err)
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.code, reqErr.Code)
			assert.Equal(t, tt.detail, err.Error())
		})
	}
}

func TestClient_StopJob(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/jobs/j%201/stop", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"status":"stopping"}`))
	}))
	defer ts.Close()
	require.NoError(t, New(Params{BaseURL: ts.URL}).StopJob(t.Context(), "j 1"))
}

func TestClient_Metadata(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/metadata", r.URL.Path)
		assert.Equal(t, "https://x/a?b=1", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(`{"title":"Song","thumbnail":"https://x/t.jpg","duration":61.5,"artist":"Band",` +
			`"year":2020,"album":null,"genre":"rock","filesize":1024}`))
	}))
	defer ts.Close()

	md, err := New(Params{BaseURL: ts.URL}).Metadata(t.Context(), "https://x/a?b=1")
	require.NoError(t, err)
	assert.Equal(t, Metadata{Title: "Song", Thumbnail: "https://x/t.jpg", Duration: 61.5, Artist: "Band",
		Year: "2020", Genre: "rock", Filesize: 1024}, md)
}

func TestClient_MetadataRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"title":"ok","year":"2019"}`))
	}))
	defer ts.Close()

	c := New(Params{BaseURL: ts.URL, Repeater: repeater.New(&strategy.Backoff{Repeats: 3, Duration: time.Millisecond, Factor: 1})})
	md, err := c.Metadata(t.Context(), "https://x/a")
	require.NoError(t, err)
	assert.Equal(t, "ok", md.Title)
	assert.Equal(t, Text("2019"), md.Year)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_JobCreationNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := New(Params{BaseURL: ts.URL, Repeater: repeater.New(&strategy.Backoff{Repeats: 3, Duration: time.Millisecond, Factor: 1})})
	_, err := c.CreateAudioJob(t.Context(), AudioRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Files(t *testing.T) {
	var deleted bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"download_dir":"/data","files":[{"name":"a.mp3","size":10,"mtime":1714557825.5}]}`))
		case http.MethodDelete:
			deleted = true
			_, _ = w.Write([]byte(`{"deleted":1}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer ts.Close()

	c := New(Params{BaseURL: ts.URL})
	files, err := c.ListFiles(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []File{{Name: "a.mp3", Size: 10, MTime: 1714557825.5}}, files)

	require.NoError(t, c.ClearFiles(t.Context()))
	assert.True(t, deleted)
}

func TestClient_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := New(Params{BaseURL: url, Timeout: time.Second}).ListFiles(t.Context())
	require.Error(t, err)
	var reqErr *RequestError
	assert.False(t, errors.As(err, &reqErr))
}

func TestText_UnmarshalJSON(t *testing.T) {
	tbl := []struct {
		in  string
		out Text
	}{
		{`"2020"`, "2020"},
		{`2020`, "2020"},
		{`null`, ""},
		{`1.5`, "1.5"},
	}
	for _, tt := range tbl {
		var v Text
		require.NoError(t, json.Unmarshal([]byte(tt.in), &v), tt.in)
		assert.Equal(t, tt.out, v, tt.in)
	}
	var v Text
	assert.Error(t, json.Unmarshal([]byte(`{}`), &v))
}

func TestOptional(t *testing.T) {
	assert.Nil(t, Optional(""))
	require.NotNil(t, Optional("x"))
	assert.Equal(t, "x", *Optional("x"))
}
