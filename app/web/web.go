// Package web implements the local control surface, a JSON HTTP API over the session, job log, history,
// files and notifications, plus the job actions of the controller.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/mediaminer/jobsync/app/control"
	"github.com/mediaminer/jobsync/app/files"
	"github.com/mediaminer/jobsync/app/history"
	"github.com/mediaminer/jobsync/app/joblog"
	"github.com/mediaminer/jobsync/app/notify"
	"github.com/mediaminer/jobsync/app/session"
)

// Config holds server configuration
type Config struct {
	Controller    *control.Controller
	Session       *session.Store
	JobLog        *joblog.Store
	History       *history.Store
	Files         *files.Cache    // optional, files routes are not registered without it
	Notifications *notify.Service // optional
	PasswordHash  string          // bcrypt hash for basic auth (empty to disable)
	RateLimit     float64         // requests per second for mutating routes, 0 to disable
	Version       string
}

// Server is the control surface
type Server struct {
	Config
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil || cfg.Session == nil || cfg.JobLog == nil || cfg.History == nil {
		return nil, errors.New("web server initialization failed: controller and stores are required")
	}
	return &Server{Config: cfg}, nil
}

// Run starts the web server and shuts it down when ctx is done
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // covers job creation and stop requests to the backend
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(100),
		rest.AppInfo("jobsync", "mediaminer", s.Version),
		rest.Ping,
		rest.SizeLimit(64*1024), // cookie text is the largest field
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)
	if s.PasswordHash != "" {
		log.Printf("[INFO] authentication enabled for control api")
		router.Use(s.authMiddleware)
	}

	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)

		api.HandleFunc("GET /status", s.handleStatus)
		api.HandleFunc("GET /session", s.handleGetSession)
		api.HandleFunc("GET /log", s.handleGetLog)
		api.HandleFunc("GET /history", s.handleGetHistory)
		api.HandleFunc("GET /notifications", s.handleNotifications)
		if s.Files != nil {
			api.HandleFunc("GET /files", s.handleGetFiles)
		}

		api.Group().Route(func(mut *routegroup.Bundle) {
			if s.RateLimit > 0 {
				mut.Use(tollbooth.HTTPMiddleware(s.limiter()))
			}
			mut.HandleFunc("POST /session", s.handleUpdateSession)
			mut.HandleFunc("POST /metadata", s.handleMetadata)
			mut.HandleFunc("POST /jobs", s.handleSubmit)
			mut.HandleFunc("POST /jobs/stop", s.handleStop)
			mut.HandleFunc("POST /reset", s.handleReset)
			mut.HandleFunc("DELETE /log", s.handleClearLog)
			mut.HandleFunc("DELETE /history", s.handleClearHistory)
			mut.HandleFunc("DELETE /history/{id}", s.handleRemoveHistory)
			if s.Files != nil {
				mut.HandleFunc("DELETE /files", s.handleClearFiles)
				mut.HandleFunc("POST /files/refresh", s.handleRefreshFiles)
			}
		})
	})

	return router
}

func (s *Server) limiter() *limiter.Limiter {
	lmt := tollbooth.NewLimiter(s.RateLimit, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(`{"error":"too many requests"}`)
	return lmt
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
