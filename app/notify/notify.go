// Package notify keeps user-visible job notifications and delivers them to external destinations
// (email and webhooks) with go-pkgz/notify.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
	"github.com/go-pkgz/syncs"

	"github.com/mediaminer/jobsync/app/store"
)

// notification texts
const (
	MsgCompleted = "Download completed successfully!"
	msgErrPrefix = "Error: "
)

// Kind of notification
type Kind string

// enum of notification kinds
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a single user-visible message
type Notification struct {
	Kind    Kind      `json:"kind"`
	JobID   string    `json:"jobId"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Params defines notification behavior
type Params struct {
	MaxRecent          int  // number of kept notifications, default 50
	EnabledError       bool // deliver failures to destinations
	EnabledCompletion  bool // deliver completions to destinations
	ErrorTemplate      string
	CompletionTemplate string
	Host               string // shown in delivered messages
	Concurrency        int    // parallel deliveries, default 4
}

// SendersParams defines external destinations
type SendersParams struct {
	SMTPHost     string
	SMTPPort     int
	SMTPTLS      bool
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	ToEmails     []string
	WebHooks     []string // http(s) urls
	Timeout      time.Duration
}

// Service keeps recent notifications and delivers them
type Service struct {
	Params
	notifiers []notify.Notifier
	fromEmail string
	toEmail   []string
	webhooks  []string
	now       func() time.Time

	mu        sync.Mutex
	recent    []Notification
	listeners store.Listeners
}

// NewService makes notification service. Delivery is disabled if no destinations defined.
func NewService(p Params, sp SendersParams) *Service {
	if p.MaxRecent <= 0 {
		p.MaxRecent = 50
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 4
	}
	if sp.Timeout <= 0 {
		sp.Timeout = 10 * time.Second
	}
	res := &Service{Params: p, fromEmail: sp.FromEmail, toEmail: sp.ToEmails, webhooks: sp.WebHooks, now: time.Now}

	if len(sp.ToEmails) > 0 {
		res.notifiers = append(res.notifiers, notify.NewEmail(notify.SMTPParams{
			Host:        sp.SMTPHost,
			Port:        sp.SMTPPort,
			TLS:         sp.SMTPTLS,
			ContentType: "text/html",
			Username:    sp.SMTPUsername,
			Password:    sp.SMTPPassword,
			TimeOut:     sp.Timeout,
		}))
	}
	if len(sp.WebHooks) > 0 {
		res.notifiers = append(res.notifiers, notify.NewWebhook(notify.WebhookParams{Timeout: sp.Timeout}))
	}
	return res
}

// JobCompleted records success notification and delivers it if enabled
func (s *Service) JobCompleted(ctx context.Context, jobID string) {
	s.add(Notification{Kind: KindSuccess, JobID: jobID, Message: MsgCompleted})
	if !s.EnabledCompletion {
		return
	}
	html, err := s.MakeCompletionHTML(jobID)
	if err != nil {
		log.Printf("[WARN] can't make completion message for job %s, %v", jobID, err)
		return
	}
	if err := s.Send(ctx, "Download completed", html, fmt.Sprintf("job %s: %s", jobID, MsgCompleted)); err != nil {
		log.Printf("[WARN] can't deliver completion of job %s, %v", jobID, err)
	}
}

// JobFailed records error notification and delivers it if enabled
func (s *Service) JobFailed(ctx context.Context, jobID, message string) {
	s.add(Notification{Kind: KindError, JobID: jobID, Message: msgErrPrefix + message})
	if !s.EnabledError {
		return
	}
	html, err := s.MakeErrorHTML(jobID, message)
	if err != nil {
		log.Printf("[WARN] can't make error message for job %s, %v", jobID, err)
		return
	}
	if err := s.Send(ctx, "Download failed", html, fmt.Sprintf("job %s: %s%s", jobID, msgErrPrefix, message)); err != nil {
		log.Printf("[WARN] can't deliver failure of job %s, %v", jobID, err)
	}
}

// Recent returns kept notifications, newest first
func (s *Service) Recent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]Notification, len(s.recent))
	copy(res, s.recent)
	return res
}

// Subscribe registers callback invoked after every new notification
func (s *Service) Subscribe(fn func()) (unsubscribe func()) {
	return s.listeners.Add(fn)
}

// Send delivers html to email destinations and text to webhooks, in parallel.
// Returns joined errors of failed destinations.
func (s *Service) Send(ctx context.Context, subj, html, text string) error {
	if len(s.notifiers) == 0 {
		return nil
	}

	type delivery struct{ dest, body string }
	deliveries := []delivery{}
	if len(s.toEmail) > 0 {
		deliveries = append(deliveries, delivery{dest: s.mailto(subj), body: html})
	}
	for _, wh := range s.webhooks {
		deliveries = append(deliveries, delivery{dest: wh, body: text})
	}

	var mu sync.Mutex
	var errs []error
	gr := syncs.NewSizedGroup(s.Concurrency)
	for _, d := range deliveries {
		gr.Go(func(context.Context) {
			if err := notify.Send(ctx, s.notifiers, d.dest, d.body); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			log.Printf("[DEBUG] notification %q sent to %s", subj, s.destName(d.dest))
		})
	}
	gr.Wait()
	return errors.Join(errs...)
}

func (s *Service) add(n Notification) {
	n.Time = s.now()
	s.mu.Lock()
	s.recent = append([]Notification{n}, s.recent...)
	if len(s.recent) > s.MaxRecent {
		s.recent = s.recent[:s.MaxRecent]
	}
	s.mu.Unlock()
	log.Printf("[INFO] notification: %s", n.Message)
	s.listeners.Notify()
}

// mailto makes email destination, i.e. mailto:a@example.com,b@example.com?from=me@example.com&subject=...
func (s *Service) mailto(subj string) string {
	q := url.Values{}
	if s.fromEmail != "" {
		q.Set("from", s.fromEmail)
	}
	q.Set("subject", subj)
	return "mailto:" + strings.Join(s.toEmail, ",") + "?" + q.Encode()
}

// destName strips query from destination for logging
func (s *Service) destName(dest string) string {
	if i := strings.Index(dest, "?"); i >= 0 {
		return dest[:i]
	}
	return dest
}
