package dto

import "time"

type StartInput struct {
	ProjectType string
	TaskID      string
	UserID      string
}

type StartOutput struct {
	SessionID   string
	TaskID      string
	ProjectType string
	StartedAt   time.Time
}

type StopInput struct {
	ProjectType string
	SessionID   string
	Note        string
}

type StopOutput struct {
	SessionID     string
	TaskID        string
	DurationSec   int64
	Formatted     string
	AlreadyClosed bool
	JournalPath   string
}

type ActiveSessionOutput struct {
	SessionID   string
	TaskID      string
	ProjectType string
	StartedAt   time.Time
	Pending     bool
	ElapsedSec  int64
}

type ReconcileOutput struct {
	Checked bool
	Cleared bool
	Reason  string
}

type TotalInput struct {
	ProjectType string
	TaskID      string
	UserID      string
}

type TotalOutput struct {
	TaskID    string
	Seconds   int64
	Formatted string
	Running   bool
	Sessions  int
}

type JournalEntryOutput struct {
	SessionID   string
	TaskID      string
	StartedAt   time.Time
	EndedAt     time.Time
	DurationSec int64
	Note        string
	Path        string
}
