package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/pipeline"
)

// runResponse is the outcome of a run as reported by the API
type runResponse struct {
	pipeline.Result
	Date         string `json:"date"`
	SaveError    string `json:"save_error,omitempty"`
	DeliverError string `json:"deliver_error,omitempty"`
}

func newRunResponse(res pipeline.Result) runResponse {
	resp := runResponse{Result: res, Date: res.Digest.Date}
	if res.SaveErr != nil {
		resp.SaveError = res.SaveErr.Error()
	}
	if res.DeliverErr != nil {
		resp.DeliverError = res.DeliverErr.Error()
	}
	return resp
}

// statusHandler returns server status with the latest run
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	if last := s.pipeline.LastResult(); last != nil {
		status["last_run"] = newRunResponse(*last)
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// stateHandler returns the persisted records
func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	records := s.pipeline.Records(r.Context())
	RenderJSON(w, r, http.StatusOK, map[string]any{"count": len(records), "items": records})
}

// runHandler starts a manual run and waits for it. The run is detached from the request
// context and from the server write timeout, so a dropped client doesn't abort it.
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("[DEBUG] can't reset write deadline: %v", err)
	}

	res, err := s.pipeline.Run(context.WithoutCancel(r.Context()), pipeline.TriggerManual)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		RenderError(w, r, err, http.StatusConflict)
		return
	case err != nil:
		log.Printf("[ERROR] manual run failed: %v", err)
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, newRunResponse(res))
}
