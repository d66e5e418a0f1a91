// Package files keeps the listing of downloaded files, newest first. The listing is refreshed on demand,
// after every finished job and optionally on a cron schedule.
package files

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/mediaminer/jobsync/app/api"
	"github.com/mediaminer/jobsync/app/store"
)

//go:generate moq -out mocks/lister.go -pkg mocks -skip-ensure -fmt goimports . Lister

// Lister is the backend files endpoint
type Lister interface {
	ListFiles(ctx context.Context) ([]api.File, error)
	ClearFiles(ctx context.Context) error
}

// Cache keeps the last fetched listing
type Cache struct {
	lister Lister

	mu        sync.Mutex
	files     []api.File
	updated   time.Time
	listeners store.Listeners
}

// New makes empty Cache
func New(l Lister) *Cache {
	return &Cache{lister: l}
}

// Refresh fetches the listing, keeps the previous one on error
func (c *Cache) Refresh(ctx context.Context) error {
	files, err := c.lister.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].MTime > files[j].MTime })

	c.mu.Lock()
	c.files = files
	c.updated = time.Now()
	c.mu.Unlock()

	log.Printf("[DEBUG] files refreshed, %d entries", len(files))
	c.listeners.Notify()
	return nil
}

// Files returns copy of the cached listing
func (c *Cache) Files() []api.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]api.File, len(c.files))
	copy(res, c.files)
	return res
}

// Updated returns time of the last successful refresh, zero if never refreshed
func (c *Cache) Updated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updated
}

// Clear deletes all files on the server and refreshes the listing
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.lister.ClearFiles(ctx); err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}
	return c.Refresh(ctx)
}

// Subscribe registers callback invoked after every refresh
func (c *Cache) Subscribe(fn func()) (unsubscribe func()) {
	return c.listeners.Add(fn)
}

// Run refreshes the listing on cron schedule (standard spec or descriptor like "@every 5m") until ctx is done
func (c *Cache) Run(ctx context.Context, spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("can't parse %s: %w", spec, err)
	}
	cr := cron.New()
	cr.Schedule(sched, cron.FuncJob(func() {
		if err := c.Refresh(ctx); err != nil {
			log.Printf("[WARN] scheduled refresh failed, %v", err)
		}
	}))
	log.Printf("[INFO] files refresh scheduled %q, first: %s", spec, sched.Next(time.Now()).Format(time.RFC3339))
	cr.Start()
	<-ctx.Done()
	<-cr.Stop().Done()
	return ctx.Err()
}
