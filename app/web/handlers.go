package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/mediaminer/jobsync/app/api"
	"github.com/mediaminer/jobsync/app/control"
	"github.com/mediaminer/jobsync/app/notify"
)

// statusResponse is the JSON response for /api/status
type statusResponse struct {
	State       string `json:"state"`
	Busy        bool   `json:"busy"`
	ActiveJobID string `json:"active_job_id,omitempty"`
	Progress    string `json:"progress,omitempty"`
	Version     string `json:"version,omitempty"`
}

// filesResponse is the JSON response for /api/files
type filesResponse struct {
	Files   []api.File `json:"files"`
	Updated time.Time  `json:"updated,omitzero"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	ss := s.Session.Get()
	s.writeJSON(w, http.StatusOK, statusResponse{
		State:       s.Controller.State().String(),
		Busy:        ss.Busy,
		ActiveJobID: ss.ActiveJobID,
		Progress:    ss.CurrentProgress,
		Version:     s.Version,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Session.Get().Snapshot())
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var form control.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}
	ss, err := s.Controller.UpdateForm(form)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, ss.Snapshot())
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := s.Controller.FetchMetadata(r.Context())
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, md)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.Controller.Submit(r.Context())
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"job_id": jobID})
}

// handleStop stops the active job. Local teardown is done even if the backend refused to stop.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.Controller.Stop(r.Context()); err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Session.Get().Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	ss, err := s.Controller.Reset()
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ss.Snapshot())
}

func (s *Server) handleGetLog(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.JobLog.Get())
}

func (s *Server) handleClearLog(w http.ResponseWriter, _ *http.Request) {
	s.JobLog.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.History.List())
}

func (s *Server) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	s.History.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	s.History.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetFiles(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, filesResponse{Files: s.Files.Files(), Updated: s.Files.Updated()})
}

func (s *Server) handleRefreshFiles(w http.ResponseWriter, r *http.Request) {
	if err := s.Files.Refresh(r.Context()); err != nil {
		s.writeActionError(w, err)
		return
	}
	s.handleGetFiles(w, r)
}

func (s *Server) handleClearFiles(w http.ResponseWriter, r *http.Request) {
	if err := s.Files.Clear(r.Context()); err != nil {
		s.writeActionError(w, err)
		return
	}
	s.handleGetFiles(w, r)
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	if s.Notifications == nil {
		s.writeJSON(w, http.StatusOK, []notify.Notification{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.Notifications.Recent())
}

// writeActionError maps controller and backend errors to http status.
// Backend refusals are reported with the backend's own detail.
func (s *Server) writeActionError(w http.ResponseWriter, err error) {
	var reqErr *api.RequestError
	switch {
	case errors.Is(err, control.ErrBusy):
		s.writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, control.ErrNoURL), errors.Is(err, control.ErrNoMode):
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &reqErr):
		s.writeJSONError(w, http.StatusBadGateway, reqErr.Error())
	default:
		log.Printf("[WARN] action failed, %v", err)
		s.writeJSONError(w, http.StatusBadGateway, err.Error())
	}
}
