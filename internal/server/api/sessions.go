// Package api provides the REST handlers for recorded relay sessions.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/handpilot/internal/store"
)

// DefaultEventLimit caps event listings when no limit is given.
const DefaultEventLimit = 100

// SessionHandler handles HTTP requests for session resources.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/events.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch rest {
	case "":
		h.get(w, r, id)
	case "events":
		h.events(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type sessionResponse struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at"`
	Events    int     `json:"events"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type eventResponse struct {
	ID         int64  `json:"id"`
	State      string `json:"state"`
	Angle      int    `json:"angle"`
	RecordedAt string `json:"recorded_at"`
}

type listEventsResponse struct {
	SessionID string          `json:"session_id"`
	Events    []eventResponse `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// toSessionResponse converts a store.Session to a sessionResponse.
func toSessionResponse(s *store.Session, events int) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		StartedAt: formatTime(s.StartedAt),
		Events:    events,
	}
	if s.EndedAt != nil {
		ended := formatTime(*s.EndedAt)
		resp.EndedAt = &ended
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}

	for _, s := range sessions {
		n, err := h.store.Events().Count(s.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count events")
			return
		}
		response.Sessions = append(response.Sessions, toSessionResponse(s, n))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	n, err := h.store.Events().Count(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(s, n))
}

// events handles GET /api/sessions/{id}/events?limit=N.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request, id string) {
	limit := DefaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	events, err := h.store.Events().ListBySession(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		SessionID: id,
		Events:    make([]eventResponse, 0, len(events)),
	}
	for _, ev := range events {
		response.Events = append(response.Events, eventResponse{
			ID:         ev.ID,
			State:      ev.Record.State,
			Angle:      ev.Record.Angle,
			RecordedAt: formatTime(ev.RecordedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
