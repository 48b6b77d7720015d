package domain

import (
	"fmt"
	"strings"
	"time"
)

type StatusFilter string

const (
	StatusNotCompleted StatusFilter = "not-completed"
	StatusCompleted    StatusFilter = "completed"
	StatusAll          StatusFilter = "all"
)

// FilterSpec is an immutable description of which tasks to show. Zero values
// mean "no constraint", except Status which defaults to not-completed.
type FilterSpec struct {
	Status           StatusFilter
	AssigneeIDs      []string
	LabelIDs         []string
	TimerActive      *bool
	ItUpDateMonth    string
	ReleaseDateMonth string
	Title            string
}

func (s StatusFilter) Validate() error {
	switch s {
	case "", StatusNotCompleted, StatusCompleted, StatusAll:
		return nil
	default:
		return fmt.Errorf("unsupported status filter %q", string(s))
	}
}

func (f FilterSpec) Validate() error {
	if err := f.Status.Validate(); err != nil {
		return err
	}
	for _, month := range []string{f.ItUpDateMonth, f.ReleaseDateMonth} {
		if month == "" {
			continue
		}
		if _, err := time.Parse("2006-01", month); err != nil {
			return fmt.Errorf("month %q must be YYYY-MM", month)
		}
	}
	return nil
}

// Normalized returns a copy with defaults applied and whitespace trimmed.
func (f FilterSpec) Normalized() FilterSpec {
	out := f
	if out.Status == "" {
		out.Status = StatusNotCompleted
	}
	out.Title = strings.TrimSpace(out.Title)
	out.AssigneeIDs = append([]string(nil), f.AssigneeIDs...)
	out.LabelIDs = append([]string(nil), f.LabelIDs...)
	if f.TimerActive != nil {
		v := *f.TimerActive
		out.TimerActive = &v
	}
	return out
}
