package dto

import "time"

type ListTasksInput struct {
	ProjectType      string
	Status           string
	AssigneeIDs      []string
	LabelIDs         []string
	TimerActive      *bool
	ItUpDateMonth    string
	ReleaseDateMonth string
	Title            string
	ActiveTaskID     string
	Page             int
}

type TaskOutput struct {
	ID             string
	Title          string
	FlowStatus     string
	ProgressStatus string
	Priority       string
	AssigneeIDs    []string
	LabelIDs       []string
	ItUpDate       string
	ReleaseDate    string
	DueDate        string
	Order          int
	UpdatedAt      time.Time
	HasActiveTimer bool
	IsNew          bool
	IsActive       bool
}

type ListTasksOutput struct {
	Tasks      []TaskOutput
	Page       int
	PageSize   int
	CanGoNext  bool
	CanGoPrev  bool
	Loading    bool
	Empty      bool
	Known      int
	HasMore    bool
	RangeLabel string
}

type GroupInput struct {
	List     ListTasksInput
	ViewerID string
}

type StatusGroupOutput struct {
	Status string
	Tasks  []TaskOutput
}

type SectionOutput struct {
	AssigneeID   string
	AssigneeName string
	Unassigned   bool
	Groups       []StatusGroupOutput
}

type GroupOutput struct {
	Page     ListTasksOutput
	Sections []SectionOutput
}

type ImportTask struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	FlowStatus     string   `yaml:"flow_status"`
	ProgressStatus string   `yaml:"progress_status,omitempty"`
	Priority       string   `yaml:"priority,omitempty"`
	AssigneeIDs    []string `yaml:"assignees,omitempty"`
	LabelIDs       []string `yaml:"labels,omitempty"`
	ItUpDate       string   `yaml:"it_up_date,omitempty"`
	ReleaseDate    string   `yaml:"release_date,omitempty"`
	DueDate        string   `yaml:"due_date,omitempty"`
	Order          int      `yaml:"order,omitempty"`
}

type ImportUser struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type ImportInput struct {
	ProjectType string
	Tasks       []ImportTask `yaml:"tasks"`
	Users       []ImportUser `yaml:"users"`
}

type ImportOutput struct {
	Tasks int
	Users int
}
