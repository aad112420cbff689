package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aicell-lab/24agents.science/internal/audit"
	"github.com/aicell-lab/24agents.science/internal/monitor"
	"github.com/aicell-lab/24agents.science/internal/service"
	"github.com/aicell-lab/24agents.science/internal/storage"
)

type Handlers struct {
	svc     *service.Service
	db      *storage.DB
	metrics *monitor.Metrics
}

func NewHandlers(svc *service.Service, db *storage.DB, metrics *monitor.Metrics) *Handlers {
	return &Handlers{
		svc:     svc,
		db:      db,
		metrics: metrics,
	}
}

func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	if req.Code == "" {
		writeError(w, "code is required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	h.metrics.CodeSizeBytes.Observe(float64(len(req.Code)))

	h.metrics.ActiveExecutions.Inc()
	defer h.metrics.ActiveExecutions.Dec()

	result := h.svc.Execute(r.Context(), req.Code, callerFromRequest(r))

	h.metrics.OutputSizeBytes.Observe(float64(len(result)))

	writeJSON(w, http.StatusOK, ExecuteResponse{
		Result:    result,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func (h *Handlers) HandleDocs(w http.ResponseWriter, r *http.Request) {
	docs := h.svc.GetDocs(r.Context(), callerFromRequest(r))
	writeJSON(w, http.StatusOK, DocsResponse{Docs: docs})
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	filter := storage.EventFilter{
		Method: r.URL.Query().Get("method"),
		Status: r.URL.Query().Get("status"),
		Limit:  100,
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, "since must be RFC 3339", "INVALID_REQUEST", http.StatusBadRequest, r)
			return
		}
		filter.Since = &t
	}
	if until := r.URL.Query().Get("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			writeError(w, "until must be RFC 3339", "INVALID_REQUEST", http.StatusBadRequest, r)
			return
		}
		filter.Until = &t
	}

	events, err := h.db.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, "query failed", "INTERNAL", http.StatusInternalServerError, r)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) HandleGetRequestEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, "request ID required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	if h.db == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	events, err := h.db.GetRequestEvents(r.Context(), id)
	if err != nil {
		writeError(w, "query failed", "INTERNAL", http.StatusInternalServerError, r)
		return
	}
	if len(events) == 0 {
		writeError(w, "request not found", "NOT_FOUND", http.StatusNotFound, r)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// callerFromRequest builds the caller context injected into the service. The
// identity headers are optional; absent or empty values resolve to the
// anonymous marker downstream.
func callerFromRequest(r *http.Request) *audit.CallerContext {
	id := r.Header.Get("X-User-ID")
	email := r.Header.Get("X-User-Email")
	if id == "" && email == "" {
		return nil
	}
	return &audit.CallerContext{
		ID:    id,
		Email: email,
		User:  map[string]string{"email": email},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, msg, code string, status int, r *http.Request) {
	resp := ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	}
	writeJSON(w, status, resp)
}
