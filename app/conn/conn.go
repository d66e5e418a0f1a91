// Package conn implements the realtime connection of a single job. Connection is a state machine
// Idle -> Connecting -> Open -> Closed driving the session and job log stores from the job events.
// Exactly one terminal path (finish, fail, stop or unexpected close) is applied per connection.
package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/mediaminer/jobsync/app/event"
	"github.com/mediaminer/jobsync/app/joblog"
	"github.com/mediaminer/jobsync/app/session"
)

//go:generate moq -out mocks/stopper.go -pkg mocks -skip-ensure -fmt goimports . Stopper
//go:generate moq -out mocks/refresher.go -pkg mocks -skip-ensure -fmt goimports . Refresher
//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier

// progress texts set on terminal transitions
const (
	ProgressComplete = "Download complete!"
	ProgressStopped  = "Download stopped"
	progressError    = "Error: "
)

// ErrNotIdle returned by Start on already started connection
var ErrNotIdle = errors.New("connection already started")

// ErrStopped returned by Start if the connection was stopped while dialing
var ErrStopped = errors.New("connection stopped")

// State of the connection
type State int

// enum of connection states
const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Channel is an established realtime channel of a job
type Channel interface {
	ReadMessage() ([]byte, error)
	WriteText(text string) error
	Close() error
}

// Dialer opens channel for a job
type Dialer interface {
	Dial(ctx context.Context, jobID string) (Channel, error)
}

// Stopper asks the backend to stop a job
type Stopper interface {
	StopJob(ctx context.Context, jobID string) error
}

// Refresher refreshes the listing of downloaded files
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Notifier shows user-visible notifications
type Notifier interface {
	JobCompleted(ctx context.Context, jobID string)
	JobFailed(ctx context.Context, jobID, message string)
}

// Params for New
type Params struct {
	JobID        string
	Dialer       Dialer
	Session      *session.Store
	JobLog       *joblog.Store
	Stopper      Stopper
	Files        Refresher // optional
	Notifier     Notifier  // optional
	PingInterval time.Duration
	Timeout      time.Duration // for refresh and notification calls made by terminal transitions
}

// Connection tracks a single job over its realtime channel
type Connection struct {
	params Params

	mu         sync.Mutex
	state      State
	stopped    bool
	ch         Channel
	cancelDial context.CancelFunc
	cancelPing context.CancelFunc
	done       chan struct{}
}

// New makes idle Connection
func New(p Params) *Connection {
	if p.PingInterval <= 0 {
		p.PingInterval = 1500 * time.Millisecond
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return &Connection{params: p, done: make(chan struct{})}
}

// JobID returns id of the tracked job
func (c *Connection) JobID() string { return c.params.JobID }

// State returns current state
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done returns channel closed after the connection reached Closed and its cleanup completed
func (c *Connection) Done() <-chan struct{} { return c.done }

// Start dials the job channel and, once open, starts keepalive and the read loop in background.
// Dial failure is handled as unexpected close and returned.
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.state = StateConnecting
	dialCtx, cancel := context.WithCancel(ctx)
	c.cancelDial = cancel
	c.mu.Unlock()

	ch, err := c.params.Dialer.Dial(dialCtx, c.params.JobID)
	cancel()

	c.mu.Lock()
	if c.stopped || c.state == StateClosed {
		c.mu.Unlock()
		if ch != nil {
			c.closeChannel(ch)
		}
		return ErrStopped
	}
	if err != nil {
		c.mu.Unlock()
		log.Printf("[WARN] can't connect to job %s, %v", c.params.JobID, err)
		c.closed()
		return fmt.Errorf("dial job %s: %w", c.params.JobID, err)
	}
	c.state = StateOpen
	c.ch = ch
	pingCtx, pingCancel := context.WithCancel(context.Background())
	c.cancelPing = pingCancel
	c.mu.Unlock()

	c.appendLog(fmt.Sprintf("WS connected for job %s", c.params.JobID))
	go c.keepalive(pingCtx, ch)
	go c.readLoop(ch)
	return nil
}

// Stop silences the channel, asks the backend to stop the job and clears the active job.
// Cleanup runs regardless of the stop request result. Stop of closed connection does nothing.
func (c *Connection) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = true
	ch, ok := c.closeLocked()
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if ch != nil {
		c.closeChannel(ch)
	}

	err := c.params.Stopper.StopJob(ctx, c.params.JobID)
	if err != nil {
		c.appendLog(fmt.Sprintf("ERROR stopping download: %v", err))
		err = fmt.Errorf("stop job %s: %w", c.params.JobID, err)
	} else {
		c.appendLog(fmt.Sprintf("Stopped job %s", c.params.JobID))
	}

	if c.params.Session.ReleaseJob(c.params.JobID, ProgressStopped) {
		c.params.JobLog.SetActiveJobID("")
	}
	close(c.done)
	return err
}

func (c *Connection) readLoop(ch Channel) {
	for {
		data, err := ch.ReadMessage()
		if err != nil {
			log.Printf("[DEBUG] read from job %s channel, %v", c.params.JobID, err)
			c.closed()
			return
		}
		c.handle(data)
	}
}

// handle applies single inbound message. Progress is applied only while the job is the active one,
// a progress event with terminal status goes straight to the terminal text.
func (c *Connection) handle(data []byte) {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return
	}

	ev, err := event.Parse(data)
	if err != nil {
		log.Printf("[DEBUG] malformed message for job %s, %v", c.params.JobID, err)
		c.appendLog(string(data))
		return
	}
	c.appendLog(event.Format(ev))
	finished := event.Finished(ev)

	c.mu.Lock()
	if c.state != StateOpen || c.stopped {
		c.mu.Unlock()
		return
	}
	if ev.Kind() == event.KindProgress && !finished {
		c.params.Session.SetProgress(c.params.JobID, event.Summary(ev))
	}
	c.mu.Unlock()

	if finished {
		c.finish()
		return
	}
	if e, ok := ev.(event.Error); ok {
		c.fail(e.Message)
	}
}

func (c *Connection) finish() {
	c.mu.Lock()
	ch, ok := c.closeLocked()
	c.mu.Unlock()
	if !ok {
		return
	}

	defer close(c.done)
	if ch != nil {
		c.closeChannel(ch)
	}
	if !c.params.Session.ReleaseJob(c.params.JobID, ProgressComplete) {
		log.Printf("[INFO] job %s finished, not active anymore", c.params.JobID)
		return
	}
	c.params.JobLog.SetActiveJobID("")

	ctx, cancel := context.WithTimeout(context.Background(), c.params.Timeout)
	defer cancel()
	if c.params.Files != nil {
		if err := c.params.Files.Refresh(ctx); err != nil {
			log.Printf("[WARN] failed to refresh files after job %s, %v", c.params.JobID, err)
		}
	}
	if c.params.Notifier != nil {
		c.params.Notifier.JobCompleted(ctx, c.params.JobID)
	}
	log.Printf("[INFO] job %s finished", c.params.JobID)
}

func (c *Connection) fail(msg string) {
	c.mu.Lock()
	ch, ok := c.closeLocked()
	c.mu.Unlock()
	if !ok {
		return
	}

	defer close(c.done)
	if ch != nil {
		c.closeChannel(ch)
	}
	if !c.params.Session.ReleaseJob(c.params.JobID, progressError+msg) {
		log.Printf("[INFO] job %s failed, not active anymore, %s", c.params.JobID, msg)
		return
	}
	c.params.JobLog.SetActiveJobID("")

	if c.params.Notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.params.Timeout)
		defer cancel()
		c.params.Notifier.JobFailed(ctx, c.params.JobID, msg)
	}
	log.Printf("[INFO] job %s failed, %s", c.params.JobID, msg)
}

// closed handles unexpected close of the channel, no user-visible notification
func (c *Connection) closed() {
	c.mu.Lock()
	ch, ok := c.closeLocked()
	c.mu.Unlock()
	if !ok {
		return
	}
	if ch != nil {
		c.closeChannel(ch)
	}
	c.appendLog("WS closed")
	if c.params.Session.ReleaseJob(c.params.JobID, "") {
		c.params.JobLog.SetActiveJobID("")
	}
	close(c.done)
}

// closeLocked flips state to Closed and stops dial and keepalive, must be called under c.mu.
// Returns false if the connection was already closed.
func (c *Connection) closeLocked() (Channel, bool) {
	if c.state == StateClosed {
		return nil, false
	}
	c.state = StateClosed
	if c.cancelDial != nil {
		c.cancelDial()
	}
	if c.cancelPing != nil {
		c.cancelPing()
	}
	ch := c.ch
	c.ch = nil
	return ch, true
}

func (c *Connection) keepalive(ctx context.Context, ch Channel) {
	ticker := time.NewTicker(c.params.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.State() != StateOpen {
				return
			}
			if err := ch.WriteText("ping"); err != nil {
				log.Printf("[DEBUG] ping job %s, %v", c.params.JobID, err)
				return
			}
		}
	}
}

func (c *Connection) closeChannel(ch Channel) {
	if err := ch.Close(); err != nil {
		log.Printf("[DEBUG] close job %s channel, %v", c.params.JobID, err)
	}
}

// appendLog adds line to the job log and to the session log
func (c *Connection) appendLog(line string) {
	log.Printf("[DEBUG] job %s: %s", c.params.JobID, line)
	c.params.JobLog.Append(line, c.params.Session.Get().ActiveJobID)
	c.params.Session.AppendLog(line)
}
