package out

import (
	"context"

	"worktrack/internal/modules/timer/domain"
)

// ActiveSessionStore is the durable single slot for the current user's
// running timer. LoadActive returns apperrors.ErrNoActiveSession when empty.
type ActiveSessionStore interface {
	SaveActive(ctx context.Context, session domain.ActiveSession) error
	LoadActive(ctx context.Context) (domain.ActiveSession, error)
	ClearActive(ctx context.Context) error
}

// RemoteSessionStore is the authoritative session record. CloseSession on an
// ended session returns its frozen duration together with
// apperrors.ErrSessionClosed.
type RemoteSessionStore interface {
	CreateRunningSession(ctx context.Context, projectType, taskID, userID string) (string, error)
	CloseSession(ctx context.Context, sessionID, note string) (int64, error)
	FindRunningSession(ctx context.Context, projectType, taskID, userID string) (*domain.Session, error)
	ListSessions(ctx context.Context, projectType, taskID, userID string) ([]domain.Session, error)
}

type CacheInvalidator interface {
	InvalidateTask(ctx context.Context, projectType, taskID string) error
}

type SessionJournal interface {
	Append(ctx context.Context, session domain.Session) (string, error)
	List(ctx context.Context, limit int) ([]domain.JournalEntry, error)
}
