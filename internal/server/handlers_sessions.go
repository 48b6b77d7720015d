package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"worktrack/internal/modules/timer/domain"
	timerout "worktrack/internal/modules/timer/port/out"
	apperrors "worktrack/internal/platform/errors"
)

type sessionHandler struct {
	store timerout.RemoteSessionStore
}

type sessionJSON struct {
	ID          string     `json:"id"`
	ProjectType string     `json:"project_type"`
	TaskID      string     `json:"task_id"`
	UserID      string     `json:"user_id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	DurationSec int64      `json:"duration_sec"`
	Note        string     `json:"note"`
}

func toSessionJSON(s domain.Session) sessionJSON {
	return sessionJSON{
		ID:          s.ID,
		ProjectType: s.ProjectType,
		TaskID:      s.TaskID,
		UserID:      s.UserID,
		StartedAt:   s.StartedAt.UTC(),
		EndedAt:     s.EndedAt,
		DurationSec: s.DurationSec,
		Note:        s.Note,
	}
}

type createSessionRequest struct {
	ProjectType string `json:"project_type"`
	TaskID      string `json:"task_id"`
	UserID      string `json:"user_id"`
}

// Create handles POST /sessions.
func (h *sessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProjectType == "" || req.TaskID == "" || req.UserID == "" {
		writeError(w, fmt.Errorf("%w: project_type, task_id and user_id are required", apperrors.ErrInvalidInput))
		return
	}
	id, err := h.store.CreateRunningSession(r.Context(), req.ProjectType, req.TaskID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type closeSessionRequest struct {
	Note string `json:"note"`
}

// Close handles POST /sessions/{id}/close with an optional {"note"} body.
// Closing an ended session answers 409 session_closed with the frozen duration.
func (h *sessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, err)
		return
	}
	duration, err := h.store.CloseSession(r.Context(), chi.URLParam(r, "id"), req.Note)
	if errors.Is(err, apperrors.ErrSessionClosed) {
		body := errorBody("session already closed", codeSessionClosed)
		body.DurationSec = duration
		writeJSON(w, http.StatusConflict, body)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"duration_sec": duration})
}

// Running handles GET /sessions/running; 204 when nothing runs.
func (h *sessionHandler) Running(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectType, taskID, userID := q.Get("project_type"), q.Get("task_id"), q.Get("user_id")
	if projectType == "" || taskID == "" || userID == "" {
		writeError(w, fmt.Errorf("%w: project_type, task_id and user_id are required", apperrors.ErrInvalidInput))
		return
	}
	session, err := h.store.FindRunningSession(r.Context(), projectType, taskID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if session == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(*session))
}

// List handles GET /sessions.
func (h *sessionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("project_type") == "" || q.Get("task_id") == "" {
		writeError(w, fmt.Errorf("%w: project_type and task_id are required", apperrors.ErrInvalidInput))
		return
	}
	sessions, err := h.store.ListSessions(r.Context(), q.Get("project_type"), q.Get("task_id"), q.Get("user_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionJSON(s))
	}
	writeJSON(w, http.StatusOK, out)
}
