package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"worktrack/internal/modules/tasks/domain"
	tasksout "worktrack/internal/modules/tasks/port/out"
	apperrors "worktrack/internal/platform/errors"
)

const maxTaskLimit = 200

type taskHandler struct {
	tasks  tasksout.TaskSource
	users  tasksout.UserDirectory
	writer tasksout.TaskWriter
}

type taskJSON struct {
	ID             string   `json:"id"`
	ProjectType    string   `json:"project_type"`
	Title          string   `json:"title"`
	FlowStatus     string   `json:"flow_status"`
	ProgressStatus string   `json:"progress_status,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	AssigneeIDs    []string `json:"assignee_ids"`
	LabelIDs       []string `json:"label_ids"`
	ItUpDate       string   `json:"it_up_date,omitempty"`
	ReleaseDate    string   `json:"release_date,omitempty"`
	DueDate        string   `json:"due_date,omitempty"`
	Order          int      `json:"order"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
	CompletedAt    string   `json:"completed_at,omitempty"`
	HasActiveTimer bool     `json:"has_active_timer"`
}

type taskPageJSON struct {
	Tasks      []taskJSON `json:"tasks"`
	NextCursor string     `json:"next_cursor"`
	HasMore    bool       `json:"has_more"`
}

type userJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toTaskJSON(t domain.Task) taskJSON {
	out := taskJSON{
		ID:             t.ID,
		ProjectType:    t.ProjectType,
		Title:          t.Title,
		FlowStatus:     string(t.FlowStatus),
		ProgressStatus: t.ProgressStatus,
		Priority:       t.Priority,
		AssigneeIDs:    t.AssigneeIDs,
		LabelIDs:       t.LabelIDs,
		ItUpDate:       domain.FormatDate(t.ItUpDate),
		ReleaseDate:    domain.FormatDate(t.ReleaseDate),
		DueDate:        domain.FormatDate(t.DueDate),
		Order:          t.Order,
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.UTC().Format(time.RFC3339),
		HasActiveTimer: t.HasActiveTimer,
	}
	if out.AssigneeIDs == nil {
		out.AssigneeIDs = []string{}
	}
	if out.LabelIDs == nil {
		out.LabelIDs = []string{}
	}
	if t.CompletedAt != nil {
		out.CompletedAt = t.CompletedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (t taskJSON) toDomain(projectType, id string) domain.Task {
	task := domain.Task{
		ID:             id,
		ProjectType:    projectType,
		Title:          t.Title,
		FlowStatus:     domain.FlowStatus(t.FlowStatus),
		ProgressStatus: t.ProgressStatus,
		Priority:       t.Priority,
		AssigneeIDs:    t.AssigneeIDs,
		LabelIDs:       t.LabelIDs,
		ItUpDate:       domain.ParseDate(t.ItUpDate),
		ReleaseDate:    domain.ParseDate(t.ReleaseDate),
		DueDate:        domain.ParseDate(t.DueDate),
		Order:          t.Order,
	}
	now := time.Now().UTC()
	task.CreatedAt = parseOr(t.CreatedAt, now)
	task.UpdatedAt = parseOr(t.UpdatedAt, now)
	if t.CompletedAt != "" {
		completed := parseOr(t.CompletedAt, now)
		task.CompletedAt = &completed
	}
	return task
}

func parseOr(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback
	}
	return parsed
}

// List handles GET /projects/{project}/tasks?cursor&limit.
func (h *taskHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := domain.PageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", apperrors.ErrInvalidInput))
			return
		}
		limit = min(n, maxTaskLimit)
	}
	page, err := h.tasks.ListTasks(r.Context(), chi.URLParam(r, "project"), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := taskPageJSON{Tasks: make([]taskJSON, 0, len(page.Tasks)), NextCursor: page.NextCursor, HasMore: page.HasMore}
	for _, task := range page.Tasks {
		out.Tasks = append(out.Tasks, toTaskJSON(task))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /projects/{project}/tasks/{id}.
func (h *taskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetTask(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskJSON(task))
}

// Put handles PUT /projects/{project}/tasks/{id}.
func (h *taskHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h.writer == nil {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("task store is read-only", codeInvalidInput))
		return
	}
	var body taskJSON
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.ID != "" && body.ID != chi.URLParam(r, "id") {
		writeError(w, errors.Join(apperrors.ErrInvalidInput, errors.New("body id does not match path")))
		return
	}
	if err := h.writer.UpsertTask(r.Context(), body.toDomain(chi.URLParam(r, "project"), chi.URLParam(r, "id"))); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users handles GET /projects/{project}/users.
func (h *taskHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON{ID: u.ID, Name: u.Name})
	}
	writeJSON(w, http.StatusOK, map[string][]userJSON{"users": out})
}

// PutUser handles PUT /projects/{project}/users/{id}.
func (h *taskHandler) PutUser(w http.ResponseWriter, r *http.Request) {
	if h.writer == nil {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("task store is read-only", codeInvalidInput))
		return
	}
	var body userJSON
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	user := domain.User{ID: chi.URLParam(r, "id"), Name: body.Name}
	if err := h.writer.UpsertUser(r.Context(), chi.URLParam(r, "project"), user); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
