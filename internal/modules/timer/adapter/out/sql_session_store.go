package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"worktrack/internal/modules/timer/domain"
	timerout "worktrack/internal/modules/timer/port/out"
	"worktrack/internal/platform/clock"
	apperrors "worktrack/internal/platform/errors"
	"worktrack/internal/platform/id"
)

// SQLSessionStore is the authoritative session record. It works with both
// the sqlite and mysql drivers; times are stored as unix seconds.
type SQLSessionStore struct {
	db    *sql.DB
	clock clock.Clock
	ids   id.Generator
}

func NewSQLSessionStore(db *sql.DB, clock clock.Clock, ids id.Generator) *SQLSessionStore {
	return &SQLSessionStore{db: db, clock: clock, ids: ids}
}

var _ timerout.RemoteSessionStore = (*SQLSessionStore)(nil)

const sessionColumns = `id, project_type, task_id, user_id, started_at, ended_at, duration_sec, note`

func (s *SQLSessionStore) CreateRunningSession(ctx context.Context, projectType, taskID, userID string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin create session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var running string
	err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE user_id = ? AND ended_at IS NULL LIMIT 1`, userID).Scan(&running)
	switch {
	case err == nil:
		return "", fmt.Errorf("%w: session %s is running", apperrors.ErrActiveSessionExists, running)
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("check running session: %w", err)
	}

	sessionID := s.ids.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, project_type, task_id, user_id, started_at, ended_at, duration_sec, note) VALUES (?, ?, ?, ?, ?, NULL, 0, '')`,
		sessionID, projectType, taskID, userID, s.clock.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit session: %w", err)
	}
	return sessionID, nil
}

// CloseSession freezes the duration and records the closing note.
func (s *SQLSessionStore) CloseSession(ctx context.Context, sessionID, note string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin close session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	session, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	if !session.IsRunning() {
		return session.DurationSec, apperrors.ErrSessionClosed
	}

	now := s.clock.Now()
	duration := int64(now.Sub(session.StartedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, duration_sec = ?, note = ? WHERE id = ? AND ended_at IS NULL`,
		now.Unix(), duration, note, sessionID,
	); err != nil {
		return 0, fmt.Errorf("close session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit close: %w", err)
	}
	return duration, nil
}

func (s *SQLSessionStore) FindRunningSession(ctx context.Context, projectType, taskID, userID string) (*domain.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE project_type = ? AND task_id = ? AND user_id = ? AND ended_at IS NULL LIMIT 1`,
		projectType, taskID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find running session: %w", err)
	}
	return &session, nil
}

// ListSessions returns the task's sessions oldest first. An empty userID
// lists every user's sessions.
func (s *SQLSessionStore) ListSessions(ctx context.Context, projectType, taskID, userID string) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE project_type = ? AND task_id = ?`
	args := []any{projectType, taskID}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY started_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		session  domain.Session
		started  sql.NullInt64
		ended    sql.NullInt64
		duration sql.NullInt64
		note     sql.NullString
	)
	if err := row.Scan(&session.ID, &session.ProjectType, &session.TaskID, &session.UserID, &started, &ended, &duration, &note); err != nil {
		return domain.Session{}, err
	}
	session.StartedAt = time.Unix(started.Int64, 0).UTC()
	if ended.Valid {
		t := time.Unix(ended.Int64, 0).UTC()
		session.EndedAt = &t
	}
	if duration.Int64 > 0 {
		session.DurationSec = duration.Int64
	}
	session.Note = note.String
	return session, nil
}
