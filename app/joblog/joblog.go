// Package joblog keeps the running job log shared by every observer. The log is a trailing window
// of the last MaxChars characters, persisted on each change and broadcast to subscribers.
package joblog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/go-pkgz/lgr"

	"github.com/mediaminer/jobsync/app/store"
)

// MaxChars is the hard cap of the full log size
const MaxChars = 30000

// Log is a snapshot of the job log
type Log struct {
	ActiveJobID string `json:"activeJobId"`
	FullLog     string `json:"fullLog"`
}

// Store owns the job log and its subscribers
type Store struct {
	kv        store.KV
	now       func() time.Time
	mu        sync.Mutex
	state     Log
	listeners store.Listeners
}

// New makes Store and loads persisted log. Missing or broken data results in empty log.
func New(kv store.KV) *Store {
	res := &Store{kv: kv, now: time.Now}
	res.state = res.load()
	return res
}

// Get returns current snapshot
func (s *Store) Get() Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Append adds timestamped line to the log. Active job id is updated only if jobIDHint is not empty,
// so a late line from a finished job doesn't bring back the cleared id.
func (s *Store) Append(line, jobIDHint string) {
	s.mutate(func(l *Log) {
		newLine := fmt.Sprintf("[%s] %s", s.now().Format("15:04:05"), line)
		combined := newLine
		if l.FullLog != "" {
			combined = l.FullLog + "\n" + newLine
		}
		l.FullLog = Trail(combined, MaxChars)
		if jobIDHint != "" {
			l.ActiveJobID = jobIDHint
		}
	})
}

// SetActiveJobID sets or clears (empty id) active job id
func (s *Store) SetActiveJobID(id string) {
	s.mutate(func(l *Log) { l.ActiveJobID = id })
}

// Clear resets both log and active job id
func (s *Store) Clear() {
	s.mutate(func(l *Log) { *l = Log{} })
}

// Subscribe registers callback invoked after every change
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	return s.listeners.Add(fn)
}

// mutate applies fn, persists result and notifies subscribers. Persistence failure is logged only.
func (s *Store) mutate(fn func(l *Log)) {
	s.mu.Lock()
	fn(&s.state)
	if err := s.save(s.state); err != nil {
		log.Printf("[WARN] failed to persist job log, %v", err)
	}
	s.mu.Unlock()
	s.listeners.Notify()
}

func (s *Store) save(l Log) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal job log: %w", err)
	}
	return s.kv.Set(store.KeyJobLog, data)
}

func (s *Store) load() Log {
	data, err := s.kv.Get(store.KeyJobLog)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[WARN] failed to read job log, %v", err)
		}
		return Log{}
	}
	res := Log{}
	if err := json.Unmarshal(data, &res); err != nil {
		log.Printf("[WARN] failed to parse job log, %v", err)
		return Log{}
	}
	return res
}

// Trail keeps the last maxChars characters of s
func Trail(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s // byte length bounds rune count
	}
	extra := utf8.RuneCountInString(s) - maxChars
	if extra <= 0 {
		return s
	}
	for i := range s {
		if extra == 0 {
			return s[i:]
		}
		extra--
	}
	return ""
}
