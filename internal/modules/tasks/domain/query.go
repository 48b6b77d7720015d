package domain

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// NewTaskWindow is how recently a task must have been updated to sort as new.
const NewTaskWindow = 7 * 24 * time.Hour

// Execute filters and orders tasks. It never mutates the input and returns the
// same output for the same arguments.
func Execute(tasks []Task, filter FilterSpec, activeTaskID string, now time.Time) []Task {
	filter = filter.Normalized()
	needle := foldText(filter.Title)

	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if !matches(task, filter, needle) {
			continue
		}
		out = append(out, task)
	}

	slices.SortStableFunc(out, func(a, b Task) int {
		return compareTasks(a, b, activeTaskID, now)
	})
	return out
}

func matches(task Task, filter FilterSpec, needle string) bool {
	switch filter.Status {
	case StatusCompleted:
		if !task.FlowStatus.IsCompleted() {
			return false
		}
	case StatusAll:
	default:
		if task.FlowStatus.IsCompleted() {
			return false
		}
	}
	if len(filter.AssigneeIDs) > 0 && !intersects(task.AssigneeIDs, filter.AssigneeIDs) {
		return false
	}
	if len(filter.LabelIDs) > 0 && !intersects(task.LabelIDs, filter.LabelIDs) {
		return false
	}
	if filter.TimerActive != nil && task.HasActiveTimer != *filter.TimerActive {
		return false
	}
	if filter.ItUpDateMonth != "" && !inMonth(task.ItUpDate, filter.ItUpDateMonth) {
		return false
	}
	if filter.ReleaseDateMonth != "" && !inMonth(task.ReleaseDate, filter.ReleaseDateMonth) {
		return false
	}
	if needle != "" && !strings.Contains(foldText(task.Title), needle) {
		return false
	}
	return true
}

func compareTasks(a, b Task, activeTaskID string, now time.Time) int {
	if activeTaskID != "" {
		aActive, bActive := a.ID == activeTaskID, b.ID == activeTaskID
		if aActive != bActive {
			if aActive {
				return -1
			}
			return 1
		}
	}
	aNew, bNew := IsNew(a, now), IsNew(b, now)
	if aNew != bNew {
		if aNew {
			return -1
		}
		return 1
	}
	if a.Order != b.Order {
		if a.Order < b.Order {
			return -1
		}
		return 1
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// IsNew reports whether the task was updated within NewTaskWindow before now.
func IsNew(task Task, now time.Time) bool {
	if task.UpdatedAt.IsZero() || task.UpdatedAt.After(now) {
		return false
	}
	return now.Sub(task.UpdatedAt) <= NewTaskWindow
}

func intersects(have, want []string) bool {
	for _, id := range have {
		if slices.Contains(want, id) {
			return true
		}
	}
	return false
}

// inMonth compares against the stored date's own calendar, without zone conversion.
func inMonth(date *time.Time, month string) bool {
	if date == nil {
		return false
	}
	return date.Format("2006-01") == month
}

// foldText makes full-width and half-width forms compare equal, case-insensitively.
func foldText(value string) string {
	if value == "" {
		return ""
	}
	return cases.Fold().String(width.Fold.String(value))
}
