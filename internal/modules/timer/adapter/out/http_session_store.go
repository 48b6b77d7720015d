package out

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"worktrack/internal/modules/timer/domain"
	timerout "worktrack/internal/modules/timer/port/out"
	apperrors "worktrack/internal/platform/errors"
	"worktrack/internal/platform/remote"
)

// HTTPSessionStore reaches the authoritative session store through the
// worktrack HTTP API.
type HTTPSessionStore struct {
	client *remote.Client
}

func NewHTTPSessionStore(client *remote.Client) timerout.RemoteSessionStore {
	return &HTTPSessionStore{client: client}
}

type createSessionRequest struct {
	ProjectType string `json:"project_type"`
	TaskID      string `json:"task_id"`
	UserID      string `json:"user_id"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

type closeSessionRequest struct {
	Note string `json:"note,omitempty"`
}

type closeSessionResponse struct {
	DurationSec int64 `json:"duration_sec"`
}

// rawSession mirrors the session JSON of the API.
type rawSession struct {
	ID          string     `json:"id"`
	ProjectType string     `json:"project_type"`
	TaskID      string     `json:"task_id"`
	UserID      string     `json:"user_id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	DurationSec int64      `json:"duration_sec"`
	Note        string     `json:"note"`
}

func (r rawSession) toDomain() domain.Session {
	s := domain.Session{
		ID:          r.ID,
		ProjectType: r.ProjectType,
		TaskID:      r.TaskID,
		UserID:      r.UserID,
		StartedAt:   r.StartedAt,
		Note:        r.Note,
	}
	if r.EndedAt != nil {
		ended := *r.EndedAt
		s.EndedAt = &ended
	}
	if r.DurationSec > 0 {
		s.DurationSec = r.DurationSec
	}
	return s
}

func (s *HTTPSessionStore) CreateRunningSession(ctx context.Context, projectType, taskID, userID string) (string, error) {
	out := createSessionResponse{}
	_, err := s.client.Do(ctx, http.MethodPost, "/sessions", nil, createSessionRequest{
		ProjectType: projectType,
		TaskID:      taskID,
		UserID:      userID,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func (s *HTTPSessionStore) CloseSession(ctx context.Context, sessionID, note string) (int64, error) {
	out := closeSessionResponse{}
	body := closeSessionRequest{Note: note}
	_, err := s.client.Do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/close", nil, body, &out)
	if err != nil {
		var statusErr *remote.StatusError
		if errors.Is(err, apperrors.ErrSessionClosed) && errors.As(err, &statusErr) {
			return statusErr.Body.DurationSec, apperrors.ErrSessionClosed
		}
		return 0, err
	}
	return out.DurationSec, nil
}

func (s *HTTPSessionStore) FindRunningSession(ctx context.Context, projectType, taskID, userID string) (*domain.Session, error) {
	out := rawSession{}
	status, err := s.client.Do(ctx, http.MethodGet, "/sessions/running", sessionQuery(projectType, taskID, userID), nil, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || out.ID == "" {
		return nil, nil
	}
	session := out.toDomain()
	return &session, nil
}

func (s *HTTPSessionStore) ListSessions(ctx context.Context, projectType, taskID, userID string) ([]domain.Session, error) {
	var raw []rawSession
	if _, err := s.client.Do(ctx, http.MethodGet, "/sessions", sessionQuery(projectType, taskID, userID), nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Session, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func sessionQuery(projectType, taskID, userID string) url.Values {
	q := url.Values{}
	q.Set("project_type", projectType)
	q.Set("task_id", taskID)
	if userID != "" {
		q.Set("user_id", userID)
	}
	return q
}
