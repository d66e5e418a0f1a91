// Package history keeps the list of submitted download jobs, newest first
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/mediaminer/jobsync/app/store"
)

// Entry is a single submission. Immutable after Add.
type Entry struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Timestamp     int64  `json:"timestamp"` // unix milliseconds
	Mode          string `json:"mode"`
	Format        string `json:"format,omitempty"`
	Bitrate       string `json:"bitrate,omitempty"`
	Container     string `json:"container,omitempty"`
	Height        string `json:"height,omitempty"`
	Codec         string `json:"codec,omitempty"`
	AllowPlaylist bool   `json:"allowPlaylist"`
	PlaylistItems string `json:"playlistItems,omitempty"`
	CookieText    string `json:"cookieText,omitempty"`
}

// Store owns history entries and subscribers
type Store struct {
	kv        store.KV
	now       func() time.Time
	mu        sync.Mutex
	entries   []Entry
	listeners store.Listeners
}

// New makes Store and loads persisted entries
func New(kv store.KV) *Store {
	res := &Store{kv: kv, now: time.Now}
	res.entries = res.load()
	return res
}

// List returns copy of all entries, newest first
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]Entry, len(s.entries))
	copy(res, s.entries)
	return res
}

// Add assigns id and timestamp and puts the entry on top. Identical submissions are kept as separate entries.
func (s *Store) Add(e Entry) Entry {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	e.ID = id.String()
	e.Timestamp = s.now().UnixMilli()

	s.mu.Lock()
	s.entries = append([]Entry{e}, s.entries...)
	s.persist()
	s.mu.Unlock()

	s.listeners.Notify()
	return e
}

// Remove deletes entry by id, unknown id changes nothing but still notifies
func (s *Store) Remove(id string) {
	s.mu.Lock()
	filtered := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.ID != id {
			filtered = append(filtered, e)
		}
	}
	s.entries = filtered
	s.persist()
	s.mu.Unlock()

	s.listeners.Notify()
}

// Clear drops all entries and the persisted key
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	if err := s.kv.Delete(store.KeyHistory); err != nil {
		log.Printf("[WARN] failed to clear history, %v", err)
	}
	s.mu.Unlock()

	s.listeners.Notify()
}

// Subscribe registers callback invoked after every change
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	return s.listeners.Add(fn)
}

// persist writes entries, must be called under lock
func (s *Store) persist() {
	data, err := json.Marshal(s.entries)
	if err != nil {
		log.Printf("[WARN] failed to marshal history, %v", err)
		return
	}
	if err := s.kv.Set(store.KeyHistory, data); err != nil {
		log.Printf("[WARN] failed to persist history, %v", fmt.Errorf("key %s: %w", store.KeyHistory, err))
	}
}

func (s *Store) load() []Entry {
	data, err := s.kv.Get(store.KeyHistory)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[WARN] failed to read history, %v", err)
		}
		return nil
	}
	res := []Entry{}
	if err := json.Unmarshal(data, &res); err != nil {
		log.Printf("[WARN] failed to parse history, %v", err)
		return nil
	}
	return res
}
