package tasks_test

import (
	"context"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	tasksdto "worktrack/internal/modules/tasks/dto"
	tasksview "worktrack/internal/ui/views/tasks"
)

type fakePort struct {
	inputs []tasksdto.ListTasksInput
}

func (f *fakePort) List(_ context.Context, input tasksdto.ListTasksInput) (tasksdto.ListTasksOutput, error) {
	f.inputs = append(f.inputs, input)
	return tasksdto.ListTasksOutput{}, nil
}

func (f *fakePort) Refresh(context.Context) error { return nil }

func page(ids ...string) tasksdto.ListTasksOutput {
	out := tasksdto.ListTasksOutput{Page: 1, PageSize: 30}
	for _, id := range ids {
		out.Tasks = append(out.Tasks, tasksdto.TaskOutput{ID: id, Title: "task " + id})
	}
	return out
}

func TestStaleReplyIsDropped(t *testing.T) {
	t.Parallel()
	m := tasksview.New(&fakePort{})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = m.Update(tasksview.PageLoadedMsg{Seq: 1, Page: page("t1")})
	if id, _ := m.SelectedTaskID(); id != "t1" {
		t.Fatalf("selected after first load: %q", id)
	}

	// Cycling the status filter supersedes request 1.
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if cmd == nil {
		t.Fatalf("status change must issue a fetch")
	}
	if m.Input().Status != "completed" || m.Input().Page != 1 {
		t.Fatalf("unexpected input after f: %+v", m.Input())
	}

	m, _ = m.Update(tasksview.PageLoadedMsg{Seq: 1, Page: page("stale")})
	if id, _ := m.SelectedTaskID(); id != "t1" {
		t.Fatalf("stale reply applied: %q", id)
	}
	m, _ = m.Update(tasksview.PageLoadedMsg{Seq: 2, Page: page("t2")})
	if id, _ := m.SelectedTaskID(); id != "t2" {
		t.Fatalf("fresh reply not applied: %q", id)
	}
}

func TestPagingRespectsBounds(t *testing.T) {
	t.Parallel()
	m := tasksview.New(&fakePort{})
	first := page("t1")
	first.CanGoNext = true
	m, _ = m.Update(tasksview.PageLoadedMsg{Seq: 1, Page: first})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.Input().Page != 1 {
		t.Fatalf("moved before first page: %d", m.Input().Page)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.Input().Page != 2 {
		t.Fatalf("expected page 2, got %d", m.Input().Page)
	}
}

func TestTimerFilterCycles(t *testing.T) {
	t.Parallel()
	m := tasksview.New(&fakePort{})
	press := func() {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	}
	press()
	if v := m.Input().TimerActive; v == nil || !*v {
		t.Fatalf("want timer:true, got %v", v)
	}
	press()
	if v := m.Input().TimerActive; v == nil || *v {
		t.Fatalf("want timer:false, got %v", v)
	}
	press()
	if m.Input().TimerActive != nil {
		t.Fatalf("want timer filter cleared")
	}
}

func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, drain(c)...)
	}
	return out
}

func TestReloadRestartsSpinner(t *testing.T) {
	t.Parallel()
	m := tasksview.New(&fakePort{})
	m, _ = m.Update(tasksview.PageLoadedMsg{Seq: 1, Page: page("t1")})

	for _, key := range []string{"f", "r"} {
		var cmd tea.Cmd
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		var ticked, fetched bool
		for _, msg := range drain(cmd) {
			switch msg.(type) {
			case spinner.TickMsg:
				ticked = true
			case tasksview.PageLoadedMsg:
				fetched = true
			}
		}
		if !ticked || !fetched {
			t.Fatalf("%s: reload must fetch and tick the spinner (ticked=%v fetched=%v)", key, ticked, fetched)
		}
	}
}
