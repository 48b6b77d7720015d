package out

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"worktrack/internal/modules/tasks/domain"
	tasksout "worktrack/internal/modules/tasks/port/out"
	"worktrack/internal/platform/remote"
)

// HTTPTaskStore reads tasks from a worktrack server. Task records are decoded
// one at a time so a malformed record never fails the page.
type HTTPTaskStore struct {
	client *remote.Client
	log    *slog.Logger
}

func NewHTTPTaskStore(client *remote.Client, log *slog.Logger) *HTTPTaskStore {
	return &HTTPTaskStore{client: client, log: log}
}

var (
	_ tasksout.TaskSource    = (*HTTPTaskStore)(nil)
	_ tasksout.UserDirectory = (*HTTPTaskStore)(nil)
	_ tasksout.TaskWriter    = (*HTTPTaskStore)(nil)
)

type taskPageResponse struct {
	Tasks      []json.RawMessage `json:"tasks"`
	NextCursor string            `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

type usersResponse struct {
	Users []rawUser `json:"users"`
}

type rawUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// rawTask mirrors the task JSON of the API. Dates and times stay strings so a
// bad value only defaults that field.
type rawTask struct {
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

func (r rawTask) toDomain() domain.Task {
	task := domain.Task{
		ID:             r.ID,
		ProjectType:    r.ProjectType,
		Title:          r.Title,
		FlowStatus:     domain.FlowStatus(r.FlowStatus),
		ProgressStatus: r.ProgressStatus,
		Priority:       r.Priority,
		AssigneeIDs:    nonNil(r.AssigneeIDs),
		LabelIDs:       nonNil(r.LabelIDs),
		ItUpDate:       domain.ParseDate(r.ItUpDate),
		ReleaseDate:    domain.ParseDate(r.ReleaseDate),
		DueDate:        domain.ParseDate(r.DueDate),
		Order:          r.Order,
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
		HasActiveTimer: r.HasActiveTimer,
	}
	if r.CompletedAt != "" {
		t := parseTime(r.CompletedAt)
		task.CompletedAt = &t
	}
	return task
}

func fromDomain(task domain.Task) rawTask {
	raw := rawTask{
		ID:             task.ID,
		ProjectType:    task.ProjectType,
		Title:          task.Title,
		FlowStatus:     string(task.FlowStatus),
		ProgressStatus: task.ProgressStatus,
		Priority:       task.Priority,
		AssigneeIDs:    nonNil(task.AssigneeIDs),
		LabelIDs:       nonNil(task.LabelIDs),
		ItUpDate:       domain.FormatDate(task.ItUpDate),
		ReleaseDate:    domain.FormatDate(task.ReleaseDate),
		DueDate:        domain.FormatDate(task.DueDate),
		Order:          task.Order,
		CreatedAt:      task.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      task.UpdatedAt.UTC().Format(time.RFC3339),
		HasActiveTimer: task.HasActiveTimer,
	}
	if task.CompletedAt != nil {
		raw.CompletedAt = task.CompletedAt.UTC().Format(time.RFC3339)
	}
	return raw
}

func (s *HTTPTaskStore) ListTasks(ctx context.Context, projectType, cursor string, limit int) (domain.TaskPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	out := taskPageResponse{}
	if _, err := s.client.Do(ctx, http.MethodGet, projectPath(projectType)+"/tasks", q, nil, &out); err != nil {
		return domain.TaskPage{}, err
	}

	page := domain.TaskPage{NextCursor: out.NextCursor, HasMore: out.HasMore}
	for _, record := range out.Tasks {
		task, ok := s.decodeTask(record)
		if !ok {
			continue
		}
		if task.ProjectType == "" {
			task.ProjectType = projectType
		}
		page.Tasks = append(page.Tasks, task)
	}
	return page, nil
}

func (s *HTTPTaskStore) GetTask(ctx context.Context, projectType, taskID string) (domain.Task, error) {
	var record json.RawMessage
	if _, err := s.client.Do(ctx, http.MethodGet, projectPath(projectType)+"/tasks/"+url.PathEscape(taskID), nil, nil, &record); err != nil {
		return domain.Task{}, err
	}
	task, ok := s.decodeTask(record)
	if !ok {
		task = domain.Task{ID: taskID, AssigneeIDs: []string{}, LabelIDs: []string{}}
	}
	if task.ProjectType == "" {
		task.ProjectType = projectType
	}
	return task, nil
}

func (s *HTTPTaskStore) ListUsers(ctx context.Context, projectType string) ([]domain.User, error) {
	out := usersResponse{}
	if _, err := s.client.Do(ctx, http.MethodGet, projectPath(projectType)+"/users", nil, nil, &out); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, domain.User{ID: u.ID, Name: u.Name})
	}
	return users, nil
}

func (s *HTTPTaskStore) UpsertTask(ctx context.Context, task domain.Task) error {
	_, err := s.client.Do(ctx, http.MethodPut, projectPath(task.ProjectType)+"/tasks/"+url.PathEscape(task.ID), nil, fromDomain(task), nil)
	return err
}

func (s *HTTPTaskStore) UpsertUser(ctx context.Context, projectType string, user domain.User) error {
	_, err := s.client.Do(ctx, http.MethodPut, projectPath(projectType)+"/users/"+url.PathEscape(user.ID), nil, rawUser{ID: user.ID, Name: user.Name}, nil)
	return err
}

// decodeTask falls back to a defaulted task when only the id can be read and
// reports false when not even that is possible.
func (s *HTTPTaskStore) decodeTask(record json.RawMessage) (domain.Task, bool) {
	raw := rawTask{}
	if err := json.Unmarshal(record, &raw); err == nil && raw.ID != "" {
		return raw.toDomain(), true
	}
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(record, &probe); err != nil || probe.ID == "" {
		s.log.Warn("skipping undecodable task record")
		return domain.Task{}, false
	}
	s.log.Warn("malformed task record", slog.String("task_id", probe.ID))
	return domain.Task{ID: probe.ID, Title: probe.ID, AssigneeIDs: []string{}, LabelIDs: []string{}, CreatedAt: time.Unix(0, 0).UTC(), UpdatedAt: time.Unix(0, 0).UTC()}, true
}

func projectPath(projectType string) string {
	return "/projects/" + url.PathEscape(projectType)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, domain.DateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
