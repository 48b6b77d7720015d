package domain

import "time"

type FlowStatus string

const (
	FlowBacklog    FlowStatus = "backlog"
	FlowTodo       FlowStatus = "todo"
	FlowInProgress FlowStatus = "in_progress"
	FlowInReview   FlowStatus = "in_review"
	FlowCompleted  FlowStatus = "completed"
)

func (f FlowStatus) IsCompleted() bool {
	return f == FlowCompleted
}

type Task struct {
	ID             string
	ProjectType    string
	Title          string
	FlowStatus     FlowStatus
	ProgressStatus string
	Priority       string
	AssigneeIDs    []string
	LabelIDs       []string
	ItUpDate       *time.Time
	ReleaseDate    *time.Time
	DueDate        *time.Time
	Order          int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	HasActiveTimer bool
}

type User struct {
	ID   string
	Name string
}

// TaskPage is one batch read from the task store.
type TaskPage struct {
	Tasks      []Task
	NextCursor string
	HasMore    bool
}

// DateLayout is the storage and wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate returns nil for empty or malformed input.
func ParseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, value); err != nil {
			return nil
		}
	}
	return &t
}

func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
