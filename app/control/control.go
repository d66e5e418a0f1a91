// Package control implements user actions over the session: metadata preview, job submission, stop,
// reset and resume of the job left active by the previous run.
package control

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/mediaminer/jobsync/app/api"
	"github.com/mediaminer/jobsync/app/conn"
	"github.com/mediaminer/jobsync/app/history"
	"github.com/mediaminer/jobsync/app/joblog"
	"github.com/mediaminer/jobsync/app/session"
)

//go:generate moq -out mocks/backend.go -pkg mocks -skip-ensure -fmt goimports . Backend

// errors returned by the controller
var (
	ErrBusy    = errors.New("another job is active")
	ErrNoURL   = errors.New("url is empty")
	ErrNoMode  = errors.New("mode is not selected")
	ErrBadMode = errors.New("unknown mode")
)

// Backend is the REST part of the backend used by the controller
type Backend interface {
	CreateAudioJob(ctx context.Context, req api.AudioRequest) (string, error)
	CreateVideoJob(ctx context.Context, req api.VideoRequest) (string, error)
	StopJob(ctx context.Context, jobID string) error
	Metadata(ctx context.Context, url string) (api.Metadata, error)
}

// Params for New
type Params struct {
	Backend      Backend
	Dialer       conn.Dialer
	Session      *session.Store
	JobLog       *joblog.Store
	History      *history.Store
	Files        conn.Refresher // optional
	Notifier     conn.Notifier  // optional
	PingInterval time.Duration
	Timeout      time.Duration
}

// Controller owns the active job connection. At most one connection is live at a time.
type Controller struct {
	Params
	mu   sync.Mutex
	conn *conn.Connection
}

// Form is a partial update of the form fields, nil fields are not changed
type Form struct {
	URL           *string               `json:"url,omitempty"`
	CustomTitle   *string               `json:"customTitle,omitempty"`
	CustomArtist  *string               `json:"customArtist,omitempty"`
	CustomYear    *string               `json:"customYear,omitempty"`
	CustomAlbum   *string               `json:"customAlbum,omitempty"`
	CustomGenre   *string               `json:"customGenre,omitempty"`
	Mode          *session.Mode         `json:"mode,omitempty"`
	Audio         *session.AudioOptions `json:"audio,omitempty"`
	Video         *session.VideoOptions `json:"video,omitempty"`
	AllowPlaylist *bool                 `json:"allowPlaylist,omitempty"`
	PlaylistItems *string               `json:"playlistItems,omitempty"`
	CookieText    *string               `json:"cookieText,omitempty"`
}

// New makes Controller
func New(p Params) *Controller {
	return &Controller{Params: p}
}

// UpdateForm applies form changes to the session
func (c *Controller) UpdateForm(f Form) (session.Session, error) {
	if f.Mode != nil {
		switch *f.Mode {
		case session.ModeNone, session.ModeAudio, session.ModeVideo:
		default:
			return c.Session.Get(), fmt.Errorf("%w %q", ErrBadMode, *f.Mode)
		}
	}
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	return c.Session.Update(func(s *session.Session) {
		setStr(&s.URL, f.URL)
		setStr(&s.CustomTitle, f.CustomTitle)
		setStr(&s.CustomArtist, f.CustomArtist)
		setStr(&s.CustomYear, f.CustomYear)
		setStr(&s.CustomAlbum, f.CustomAlbum)
		setStr(&s.CustomGenre, f.CustomGenre)
		setStr(&s.PlaylistItems, f.PlaylistItems)
		setStr(&s.CookieText, f.CookieText)
		if f.Mode != nil {
			s.Mode = *f.Mode
		}
		if f.Audio != nil {
			s.Audio = *f.Audio
		}
		if f.Video != nil {
			s.Video = *f.Video
		}
		if f.AllowPlaylist != nil {
			s.AllowPlaylist = *f.AllowPlaylist
		}
	}), nil
}

// FetchMetadata requests preview of the session url and keeps it in the session
func (c *Controller) FetchMetadata(ctx context.Context) (api.Metadata, error) {
	url := strings.TrimSpace(c.Session.Get().URL)
	if url == "" {
		return api.Metadata{}, ErrNoURL
	}
	c.Session.Update(func(s *session.Session) { s.FetchingMetadata = true })

	md, err := c.Backend.Metadata(ctx, url)
	if err != nil {
		c.appendLog(fmt.Sprintf("ERROR fetching metadata: %v", err))
		c.Session.Update(func(s *session.Session) { s.FetchingMetadata = false })
		return api.Metadata{}, fmt.Errorf("fetch metadata for %s: %w", url, err)
	}
	c.Session.Update(func(s *session.Session) {
		s.Metadata = &md
		s.FetchingMetadata = false
	})
	return md, nil
}

// Submit creates job for the current form, records it in history and starts tracking it.
// Returns ErrBusy if a job is already active.
func (c *Controller) Submit(ctx context.Context) (jobID string, err error) {
	c.mu.Lock()
	ss := c.Session.Get()
	url := strings.TrimSpace(ss.URL)
	switch {
	case ss.Busy || ss.ActiveJobID != "" || (c.conn != nil && c.conn.State() != conn.StateClosed):
		c.mu.Unlock()
		return "", ErrBusy
	case url == "":
		c.mu.Unlock()
		return "", ErrNoURL
	case ss.Mode == session.ModeNone:
		c.mu.Unlock()
		return "", ErrNoMode
	}
	c.Session.Update(func(s *session.Session) {
		s.Busy = true
		s.Log = ""
	})
	c.mu.Unlock()

	entry := history.Entry{URL: url, Mode: string(ss.Mode), AllowPlaylist: ss.AllowPlaylist,
		PlaylistItems: ss.PlaylistItems, CookieText: ss.CookieText}
	if ss.Metadata != nil {
		entry.Title, entry.Thumbnail = ss.Metadata.Title, ss.Metadata.Thumbnail
	}

	switch ss.Mode {
	case session.ModeAudio:
		jobID, err = c.Backend.CreateAudioJob(ctx, AudioRequest(ss))
		entry.Format, entry.Bitrate = ss.Audio.Format, ss.Audio.Bitrate
	default:
		var req api.VideoRequest
		if req, err = VideoRequest(ss); err == nil {
			jobID, err = c.Backend.CreateVideoJob(ctx, req)
		}
		entry.Container, entry.Height, entry.Codec = ss.Video.Container, ss.Video.Height, ss.Video.Codec
	}
	if err != nil {
		c.appendLog(fmt.Sprintf("ERROR: %v", err))
		c.Session.Update(func(s *session.Session) { s.Busy = false })
		return "", fmt.Errorf("create %s job: %w", ss.Mode, err)
	}

	c.appendLog(fmt.Sprintf("Created %s job %s", ss.Mode, jobID))
	c.History.Add(entry)
	c.track(ctx, jobID)
	return jobID, nil
}

// Stop stops the active job. Without live connection the stop endpoint is called directly
// for the job recorded in the session. Nothing is done if no job is active.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	cn := c.conn
	if cn == nil || cn.State() == conn.StateClosed {
		jobID := c.Session.Get().ActiveJobID
		if jobID == "" {
			c.mu.Unlock()
			return nil
		}
		cn = c.newConnection(jobID)
		c.conn = cn
	}
	c.mu.Unlock()
	return cn.Stop(ctx)
}

// Reset restores default form, refused while a job is active
func (c *Controller) Reset() (session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ss := c.Session.Get()
	if ss.Busy || ss.ActiveJobID != "" {
		return ss, ErrBusy
	}
	return c.Session.Reset(), nil
}

// Resume reattaches to the job left active by the previous run. The backend replays the job snapshot
// on connect. Returns empty id if there was nothing to resume.
func (c *Controller) Resume(ctx context.Context) string {
	ss := c.Session.Get()
	if ss.ActiveJobID == "" {
		if ss.Busy { // busy without job is a leftover of interrupted submission
			c.Session.Update(func(s *session.Session) { s.Busy = false })
		}
		return ""
	}
	log.Printf("[INFO] resuming job %s", ss.ActiveJobID)
	c.Session.Update(func(s *session.Session) { s.Busy = true })
	c.track(ctx, ss.ActiveJobID)
	return ss.ActiveJobID
}

// Wait blocks until the active connection is closed or ctx is done
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	cn := c.conn
	c.mu.Unlock()
	if cn == nil {
		return nil
	}
	select {
	case <-cn.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns state of the current connection, Closed if there is none
func (c *Controller) State() conn.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return conn.StateClosed
	}
	return c.conn.State()
}

// track claims the job and starts its connection. Dial failure is handled by the connection itself.
// Claim and connection install happen under c.mu, so Stop sees either none of them or both.
func (c *Controller) track(ctx context.Context, jobID string) {
	c.mu.Lock()
	c.Session.ClaimJob(jobID)
	c.JobLog.SetActiveJobID(jobID)
	cn := c.newConnection(jobID)
	c.conn = cn
	c.mu.Unlock()

	if err := cn.Start(ctx); err != nil && !errors.Is(err, conn.ErrStopped) && !errors.Is(err, conn.ErrNotIdle) {
		log.Printf("[WARN] job %s is not tracked, %v", jobID, err)
	}
}

func (c *Controller) newConnection(jobID string) *conn.Connection {
	return conn.New(conn.Params{
		JobID:        jobID,
		Dialer:       c.Dialer,
		Session:      c.Session,
		JobLog:       c.JobLog,
		Stopper:      c.Backend,
		Files:        c.Files,
		Notifier:     c.Notifier,
		PingInterval: c.PingInterval,
		Timeout:      c.Timeout,
	})
}

func (c *Controller) appendLog(line string) {
	c.JobLog.Append(line, c.Session.Get().ActiveJobID)
	c.Session.AppendLog(line)
}

// AudioRequest makes audio job request from the session, trimmed empty optional fields are sent as null
func AudioRequest(s session.Session) api.AudioRequest {
	return api.AudioRequest{JobOptions: jobOptions(s), AudioFormat: s.Audio.Format, Bitrate: s.Audio.Bitrate}
}

// VideoRequest makes video job request from the session. Height "none" means no limit.
func VideoRequest(s session.Session) (api.VideoRequest, error) {
	res := api.VideoRequest{JobOptions: jobOptions(s), Container: s.Video.Container, PreferCodec: api.Optional(s.Video.Codec)}
	if h := strings.TrimSpace(s.Video.Height); h != "none" && h != "" {
		v, err := strconv.Atoi(h)
		if err != nil {
			return api.VideoRequest{}, fmt.Errorf("bad video height %q: %w", h, err)
		}
		res.MaxHeight = &v
	}
	return res, nil
}

func jobOptions(s session.Session) api.JobOptions {
	opt := func(v string) *string { return api.Optional(strings.TrimSpace(v)) }
	return api.JobOptions{
		URL:           strings.TrimSpace(s.URL),
		AllowPlaylist: s.AllowPlaylist,
		PlaylistItems: opt(s.PlaylistItems),
		CookieText:    opt(s.CookieText),
		CustomTitle:   opt(s.CustomTitle),
		CustomArtist:  opt(s.CustomArtist),
		CustomYear:    opt(s.CustomYear),
		CustomAlbum:   opt(s.CustomAlbum),
		CustomGenre:   opt(s.CustomGenre),
	}
}
