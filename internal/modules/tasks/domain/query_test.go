package domain_test

import (
	"fmt"
	"testing"
	"time"

	"worktrack/internal/modules/tasks/domain"
)

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ids(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func old(id string, order int) domain.Task {
	return domain.Task{
		ID:         id,
		Title:      "task " + id,
		FlowStatus: domain.FlowTodo,
		Order:      order,
		CreatedAt:  now.Add(-90 * 24 * time.Hour),
		UpdatedAt:  now.Add(-30 * 24 * time.Hour),
	}
}

func TestExecuteCompletedFilterKeepsOnlyCompleted(t *testing.T) {
	t.Parallel()
	var tasks []domain.Task
	for i := 0; i < 10; i++ {
		task := old(fmt.Sprintf("t%02d", i), i)
		if i%3 == 0 {
			task.FlowStatus = domain.FlowCompleted
		}
		tasks = append(tasks, task)
	}

	got := domain.Execute(tasks, domain.FilterSpec{Status: domain.StatusCompleted}, "", now)
	if len(got) != 4 {
		t.Fatalf("expected 4 completed tasks, got %v", ids(got))
	}
	for _, task := range got {
		if task.FlowStatus != domain.FlowCompleted {
			t.Fatalf("non-completed task %s leaked into result", task.ID)
		}
	}

	open := domain.Execute(tasks, domain.FilterSpec{}, "", now)
	if len(open) != 6 {
		t.Fatalf("default filter should keep 6 open tasks, got %v", ids(open))
	}
	all := domain.Execute(tasks, domain.FilterSpec{Status: domain.StatusAll}, "", now)
	if len(all) != 10 {
		t.Fatalf("all filter should keep everything, got %d", len(all))
	}
}

func TestExecuteActiveTaskAlwaysFirst(t *testing.T) {
	t.Parallel()
	tasks := []domain.Task{old("a", 1), old("b", 2), old("c", 99)}
	tasks[0].UpdatedAt = now.Add(-time.Hour)

	got := domain.Execute(tasks, domain.FilterSpec{}, "c", now)
	if got[0].ID != "c" {
		t.Fatalf("active task should lead, got %v", ids(got))
	}
	if got[1].ID != "a" || got[2].ID != "b" {
		t.Fatalf("unexpected order after active task: %v", ids(got))
	}
}

func TestExecuteSortsNewThenOrderThenCreated(t *testing.T) {
	t.Parallel()
	fresh := old("fresh", 50)
	fresh.UpdatedAt = now.Add(-7 * 24 * time.Hour)
	stale := old("stale", 1)
	stale.UpdatedAt = now.Add(-7*24*time.Hour - time.Second)
	early := old("early", 5)
	early.CreatedAt = now.Add(-200 * 24 * time.Hour)
	late := old("late", 5)
	tieA := old("tie-a", 7)
	tieB := old("tie-b", 7)
	tieB.CreatedAt = tieA.CreatedAt

	input := []domain.Task{tieB, late, stale, tieA, early, fresh}
	got := ids(domain.Execute(input, domain.FilterSpec{}, "", now))
	want := []string{"fresh", "stale", "early", "late", "tie-a", "tie-b"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if input[0].ID != "tie-b" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestExecuteFutureUpdateIsNotNew(t *testing.T) {
	t.Parallel()
	skewed := old("skewed", 1)
	skewed.UpdatedAt = now.Add(time.Hour)
	if domain.IsNew(skewed, now) {
		t.Fatalf("task updated after now should not count as new")
	}
}

func TestExecuteConjunctivePredicates(t *testing.T) {
	t.Parallel()
	on, off := true, false

	a := old("a", 1)
	a.AssigneeIDs = []string{"u1", "u2"}
	a.LabelIDs = []string{"bug"}
	a.HasActiveTimer = true
	a.ItUpDate = day(2026, 6, 30)

	b := old("b", 2)
	b.AssigneeIDs = []string{"u3"}
	b.LabelIDs = []string{"bug", "ui"}
	b.ReleaseDate = day(2026, 7, 1)

	c := old("c", 3)

	tasks := []domain.Task{a, b, c}
	cases := []struct {
		name   string
		filter domain.FilterSpec
		want   string
	}{
		{"assignee", domain.FilterSpec{AssigneeIDs: []string{"u2", "u9"}}, "[a]"},
		{"label", domain.FilterSpec{LabelIDs: []string{"bug"}}, "[a b]"},
		{"label and assignee", domain.FilterSpec{LabelIDs: []string{"ui"}, AssigneeIDs: []string{"u1"}}, "[]"},
		{"timer on", domain.FilterSpec{TimerActive: &on}, "[a]"},
		{"timer off", domain.FilterSpec{TimerActive: &off}, "[b c]"},
		{"itup month", domain.FilterSpec{ItUpDateMonth: "2026-06"}, "[a]"},
		{"itup other month", domain.FilterSpec{ItUpDateMonth: "2026-07"}, "[]"},
		{"release month", domain.FilterSpec{ReleaseDateMonth: "2026-07"}, "[b]"},
	}
	for _, tc := range cases {
		got := fmt.Sprint(ids(domain.Execute(tasks, tc.filter, "", now)))
		if got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestExecuteMonthUsesStoredCalendar(t *testing.T) {
	t.Parallel()
	tokyo := time.FixedZone("JST", 9*60*60)
	late := time.Date(2026, 7, 1, 1, 0, 0, 0, tokyo)
	task := old("jst", 1)
	task.ItUpDate = &late

	got := domain.Execute([]domain.Task{task}, domain.FilterSpec{ItUpDateMonth: "2026-07"}, "", now)
	if len(got) != 1 {
		t.Fatalf("date stored as July 1st should match July regardless of zone")
	}
}

func TestExecuteTitleIsCaseAndWidthInsensitive(t *testing.T) {
	t.Parallel()
	a := old("a", 1)
	a.Title = "ＡＰＩ連携の改善"
	b := old("b", 2)
	b.Title = "Fix login API"
	c := old("c", 3)
	c.Title = "デザイン修正"

	got := ids(domain.Execute([]domain.Task{a, b, c}, domain.FilterSpec{Title: "  api "}, "", now))
	if fmt.Sprint(got) != "[a b]" {
		t.Fatalf("title search = %v", got)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	t.Parallel()
	var tasks []domain.Task
	for i := 0; i < 20; i++ {
		task := old(fmt.Sprintf("t%02d", 19-i), i%4)
		if i%5 == 0 {
			task.UpdatedAt = now.Add(-time.Duration(i) * time.Hour)
		}
		tasks = append(tasks, task)
	}
	first := fmt.Sprint(ids(domain.Execute(tasks, domain.FilterSpec{}, "t07", now)))
	for i := 0; i < 5; i++ {
		if again := fmt.Sprint(ids(domain.Execute(tasks, domain.FilterSpec{}, "t07", now))); again != first {
			t.Fatalf("execute is not deterministic: %s vs %s", first, again)
		}
	}
}

func TestFilterValidate(t *testing.T) {
	t.Parallel()
	if err := (domain.FilterSpec{Status: "done"}).Validate(); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
	if err := (domain.FilterSpec{ItUpDateMonth: "2026/06"}).Validate(); err == nil {
		t.Fatalf("expected malformed month to fail")
	}
	if err := (domain.FilterSpec{Status: domain.StatusAll, ReleaseDateMonth: "2026-06"}).Validate(); err != nil {
		t.Fatalf("valid filter rejected: %v", err)
	}
}
