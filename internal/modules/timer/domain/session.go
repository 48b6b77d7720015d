package domain

import "time"

const SchemaVersion = 1

// PendingSessionID marks a start request whose authoritative id has not
// arrived yet.
const PendingSessionID = "pending"

type ActiveSession struct {
	SessionID   string    `json:"session_id"`
	TaskID      string    `json:"task_id"`
	ProjectType string    `json:"project_type"`
	StartedAt   time.Time `json:"started_at"`
}

func (a ActiveSession) IsPending() bool {
	return a.SessionID == PendingSessionID
}

type Session struct {
	ID          string
	TaskID      string
	UserID      string
	ProjectType string
	StartedAt   time.Time
	EndedAt     *time.Time
	DurationSec int64
	Note        string
}

func (s Session) IsRunning() bool {
	return s.EndedAt == nil
}

// JournalEntry is a closed session as recorded in the vault journal.
type JournalEntry struct {
	Session Session
	Path    string
}
