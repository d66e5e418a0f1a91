// Package session keeps the snapshot of the whole form and job state. The snapshot is restored once
// from persistent storage and written back on every change after that.
package session

import (
	"encoding/json"
	"errors"
	"sync"

	log "github.com/go-pkgz/lgr"

	"github.com/mediaminer/jobsync/app/api"
	"github.com/mediaminer/jobsync/app/joblog"
	"github.com/mediaminer/jobsync/app/store"
)

// Mode is a kind of conversion
type Mode string

// enum of modes, empty means not selected
const (
	ModeNone  Mode = ""
	ModeAudio Mode = "audio"
	ModeVideo Mode = "video"
)

// AudioOptions for audio conversion
type AudioOptions struct {
	Format  string `yaml:"format" json:"format"`
	Bitrate string `yaml:"bitrate" json:"bitrate"`
}

// VideoOptions for video conversion, Height "none" means no limit and empty Codec means any
type VideoOptions struct {
	Container string `yaml:"container" json:"container"`
	Height    string `yaml:"height" json:"height"`
	Codec     string `yaml:"codec" json:"codec"`
}

// Session is the form and job state
type Session struct {
	URL              string
	Metadata         *api.Metadata
	CustomTitle      string
	CustomArtist     string
	CustomYear       string
	CustomAlbum      string
	CustomGenre      string
	Mode             Mode
	FetchingMetadata bool
	Audio            AudioOptions
	Video            VideoOptions
	AllowPlaylist    bool
	PlaylistItems    string
	CookieText       string
	Busy             bool
	ActiveJobID      string // empty if no active job
	Log              string
	CurrentProgress  string
}

// Defaults returns session with default options
func Defaults() Session {
	return Session{
		Audio: AudioOptions{Format: "mp3", Bitrate: "192"},
		Video: VideoOptions{Container: "mp4", Height: "1080"},
	}
}

// Snapshot is the persisted shape of the session
type Snapshot struct {
	URL             string        `json:"url"`
	Metadata        *api.Metadata `json:"metadata"`
	CustomTitle     string        `json:"customTitle"`
	CustomArtist    string        `json:"customArtist"`
	CustomYear      string        `json:"customYear"`
	CustomAlbum     string        `json:"customAlbum"`
	CustomGenre     string        `json:"customGenre"`
	Mode            *string       `json:"mode"`
	Format          string        `json:"format"`
	Bitrate         string        `json:"bitrate"`
	Container       string        `json:"container"`
	Height          string        `json:"height"`
	Codec           string        `json:"codec"`
	AllowPlaylist   bool          `json:"allowPlaylist"`
	PlaylistItems   string        `json:"playlistItems"`
	CookieText      string        `json:"cookieText"`
	ActiveJobID     *string       `json:"activeJobId"`
	Busy            bool          `json:"busy"`
	Log             string        `json:"log"`
	CurrentProgress string        `json:"currentProgress"`
}

// Snapshot makes persisted shape of the session, FetchingMetadata is not included
func (s Session) Snapshot() Snapshot {
	res := Snapshot{
		URL: s.URL, Metadata: s.Metadata,
		CustomTitle: s.CustomTitle, CustomArtist: s.CustomArtist, CustomYear: s.CustomYear,
		CustomAlbum: s.CustomAlbum, CustomGenre: s.CustomGenre,
		Format: s.Audio.Format, Bitrate: s.Audio.Bitrate,
		Container: s.Video.Container, Height: s.Video.Height, Codec: s.Video.Codec,
		AllowPlaylist: s.AllowPlaylist, PlaylistItems: s.PlaylistItems, CookieText: s.CookieText,
		Busy: s.Busy, Log: s.Log, CurrentProgress: s.CurrentProgress,
	}
	if s.Mode != ModeNone {
		m := string(s.Mode)
		res.Mode = &m
	}
	if s.ActiveJobID != "" {
		id := s.ActiveJobID
		res.ActiveJobID = &id
	}
	return res
}

// Session makes session from persisted shape
func (sn Snapshot) Session() Session {
	res := Session{
		URL: sn.URL, Metadata: sn.Metadata,
		CustomTitle: sn.CustomTitle, CustomArtist: sn.CustomArtist, CustomYear: sn.CustomYear,
		CustomAlbum: sn.CustomAlbum, CustomGenre: sn.CustomGenre,
		Audio:         AudioOptions{Format: sn.Format, Bitrate: sn.Bitrate},
		Video:         VideoOptions{Container: sn.Container, Height: sn.Height, Codec: sn.Codec},
		AllowPlaylist: sn.AllowPlaylist, PlaylistItems: sn.PlaylistItems, CookieText: sn.CookieText,
		Busy: sn.Busy, Log: sn.Log, CurrentProgress: sn.CurrentProgress,
	}
	if sn.Mode != nil {
		switch Mode(*sn.Mode) {
		case ModeAudio, ModeVideo:
			res.Mode = Mode(*sn.Mode)
		}
	}
	if sn.ActiveJobID != nil {
		res.ActiveJobID = *sn.ActiveJobID
	}
	return res
}

// Store owns the session. It has a single logical owner and no subscribers.
type Store struct {
	kv       store.KV
	defaults Session

	mu       sync.Mutex
	state    Session
	hydrated bool
}

// New makes Store with given defaults. Nothing is read or written until Restore.
func New(kv store.KV, defaults Session) *Store {
	return &Store{kv: kv, defaults: defaults, state: defaults}
}

// Restore loads persisted session once and marks the store hydrated.
// Missing or broken data falls back to defaults, fields absent in persisted data keep defaults.
// Repeated calls return current state without reading the storage again.
func (s *Store) Restore() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return s.state
	}
	s.hydrated = true
	s.state = s.load()
	return s.state
}

// Hydrated reports if Restore completed
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Get returns current session
func (s *Store) Get() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the session and persists the result if hydrated
func (s *Store) Update(fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.persist()
	return s.state
}

// Reset replaces session with defaults
func (s *Store) Reset() Session {
	return s.Update(func(ss *Session) { *ss = s.defaults })
}

// AppendLog adds line to the session log, keeping the trailing window
func (s *Store) AppendLog(line string) {
	s.Update(func(ss *Session) { ss.Log = joblog.Trail(ss.Log+line+"\n", joblog.MaxChars) })
}

// ClaimJob marks jobID active and the session busy
func (s *Store) ClaimJob(jobID string) {
	s.Update(func(ss *Session) {
		ss.ActiveJobID = jobID
		ss.Busy = true
	})
}

// ReleaseJob clears active id and busy flag if jobID is still the active job, sets progress text if not empty.
// Returns false and changes nothing if another job (or none) is active.
func (s *Store) ReleaseJob(jobID, progress string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jobID == "" || s.state.ActiveJobID != jobID {
		return false
	}
	s.state.ActiveJobID = ""
	s.state.Busy = false
	if progress != "" {
		s.state.CurrentProgress = progress
	}
	s.persist()
	return true
}

// SetProgress sets progress text only if jobID is the active job.
// Returns false and changes nothing otherwise.
func (s *Store) SetProgress(jobID, progress string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jobID == "" || s.state.ActiveJobID != jobID {
		return false
	}
	s.state.CurrentProgress = progress
	s.persist()
	return true
}

// persist writes snapshot, must be called under lock
func (s *Store) persist() {
	if !s.hydrated {
		return
	}
	data, err := json.Marshal(s.state.Snapshot())
	if err != nil {
		log.Printf("[WARN] failed to marshal session, %v", err)
		return
	}
	if err := s.kv.Set(store.KeySession, data); err != nil {
		log.Printf("[WARN] failed to persist session, %v", err)
	}
}

func (s *Store) load() Session {
	data, err := s.kv.Get(store.KeySession)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[WARN] failed to read session, %v", err)
		}
		return s.defaults
	}
	sn := s.defaults.Snapshot()
	if err := json.Unmarshal(data, &sn); err != nil {
		log.Printf("[WARN] failed to parse session, %v", err)
		return s.defaults
	}
	return sn.Session()
}
