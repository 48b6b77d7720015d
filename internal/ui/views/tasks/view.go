package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	tasksdto "worktrack/internal/modules/tasks/dto"
	"worktrack/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type TasksPort interface {
	List(ctx context.Context, input tasksdto.ListTasksInput) (tasksdto.ListTasksOutput, error)
	Refresh(ctx context.Context) error
}

// ─── messages ────────────────────────────────────────────────────────────────

// PageLoadedMsg carries the sequence number of the request that produced it;
// replies from superseded requests are dropped.
type PageLoadedMsg struct {
	Seq  int
	Page tasksdto.ListTasksOutput
	Err  error
}

var statusCycle = []string{"not-completed", "completed", "all"}

// ─── list item ───────────────────────────────────────────────────────────────

type taskItem struct {
	task tasksdto.TaskOutput
}

func (i taskItem) Title() string {
	title := i.task.Title
	if title == "" {
		title = i.task.ID
	}
	switch {
	case i.task.IsActive:
		return "● " + title
	case i.task.HasActiveTimer:
		return "○ " + title
	}
	return title
}

func (i taskItem) Description() string {
	parts := []string{string(i.task.FlowStatus)}
	if i.task.ProgressStatus != "" {
		parts = append(parts, i.task.ProgressStatus)
	}
	if len(i.task.AssigneeIDs) > 0 {
		parts = append(parts, "@"+strings.Join(i.task.AssigneeIDs, ",@"))
	}
	if i.task.ReleaseDate != "" {
		parts = append(parts, "release "+i.task.ReleaseDate)
	}
	if i.task.IsNew {
		parts = append(parts, "NEW")
	}
	return strings.Join(parts, "  ")
}

func (i taskItem) FilterValue() string { return i.task.Title }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    TasksPort
	list    list.Model
	spinner spinner.Model
	input   tasksdto.ListTasksInput
	page    tasksdto.ListTasksOutput
	seq     int
	loading bool
	errText string
	width   int
	height  int
}

func New(port TasksPort) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Tasks"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(false)
	l.SetShowHelp(false)
	l.KeyMap.NextPage.SetEnabled(false)
	l.KeyMap.PrevPage.SetEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:    port,
		list:    l,
		spinner: sp,
		input:   tasksdto.ListTasksInput{Status: statusCycle[0], Page: 1},
		seq:     1,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(m.seq, false), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, max(m.height-2, 1))

	case PageLoadedMsg:
		if msg.Seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		m.page = msg.Page
		items := make([]list.Item, len(msg.Page.Tasks))
		for i, t := range msg.Page.Tasks {
			items[i] = taskItem{task: t}
		}
		cmds = append(cmds, m.list.SetItems(items))

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "left":
			if m.page.CanGoPrev {
				m.input.Page--
				cmd := m.reload()
				return m, cmd
			}
		case "right":
			if m.page.CanGoNext {
				m.input.Page++
				cmd := m.reload()
				return m, cmd
			}
		case "f":
			m.input.Status = nextStatus(m.input.Status)
			m.input.Page = 1
			cmd := m.reload()
			return m, cmd
		case "t":
			m.input.TimerActive = nextTimerFilter(m.input.TimerActive)
			m.input.Page = 1
			cmd := m.reload()
			return m, cmd
		case "c":
			cmd := m.ClearFilters()
			return m, cmd
		case "r":
			cmd := m.Refresh()
			return m, cmd
		}
	}

	var lCmd tea.Cmd
	m.list, lCmd = m.list.Update(msg)
	cmds = append(cmds, lCmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	header := theme.Muted.Render(m.filterSummary())
	if m.loading && len(m.page.Tasks) == 0 {
		body := lipgloss.Place(m.width, max(m.height-2, 1), lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" 読み込み中…")
		return lipgloss.JoinVertical(lipgloss.Left, header, body)
	}
	footer := theme.Hot.Render(m.page.RangeLabel)
	if m.errText != "" {
		footer = theme.Warn.Render("error: " + m.errText)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), footer)
}

// ─── public helpers ──────────────────────────────────────────────────────────

// Input is the query behind the current page.
func (m Model) Input() tasksdto.ListTasksInput {
	return m.input
}

func (m Model) SelectedTaskID() (string, bool) {
	if item, ok := m.list.SelectedItem().(taskItem); ok {
		return item.task.ID, true
	}
	return "", false
}

// SetActiveTask pins the running task to the top and reloads.
func (m *Model) SetActiveTask(taskID string) tea.Cmd {
	m.input.ActiveTaskID = taskID
	return m.Refresh()
}

func (m *Model) SetStatus(status string) tea.Cmd {
	m.input.Status = status
	m.input.Page = 1
	return m.reload()
}

func (m *Model) ClearFilters() tea.Cmd {
	m.input = tasksdto.ListTasksInput{Status: statusCycle[0], Page: 1, ActiveTaskID: m.input.ActiveTaskID}
	return m.reload()
}

// SetTitle applies a title search and reloads from the first page.
func (m *Model) SetTitle(title string) tea.Cmd {
	m.input.Title = title
	m.input.Page = 1
	return m.reload()
}

func (m *Model) SetAssignee(assigneeID string) tea.Cmd {
	m.input.AssigneeIDs = nil
	if assigneeID != "" {
		m.input.AssigneeIDs = []string{assigneeID}
	}
	m.input.Page = 1
	return m.reload()
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) reload() tea.Cmd {
	m.seq++
	m.loading = true
	return tea.Batch(m.fetch(m.seq, false), m.spinner.Tick)
}

// Refresh drops cached tasks before reloading the current page.
func (m *Model) Refresh() tea.Cmd {
	m.seq++
	m.loading = true
	return tea.Batch(m.fetch(m.seq, true), m.spinner.Tick)
}

func (m Model) fetch(seq int, refresh bool) tea.Cmd {
	input, port := m.input, m.port
	return func() tea.Msg {
		if refresh {
			if err := port.Refresh(context.Background()); err != nil {
				return PageLoadedMsg{Seq: seq, Err: err}
			}
		}
		page, err := port.List(context.Background(), input)
		return PageLoadedMsg{Seq: seq, Page: page, Err: err}
	}
}

func (m Model) filterSummary() string {
	parts := []string{"status:" + m.input.Status, fmt.Sprintf("page:%d", m.input.Page)}
	if m.input.Title != "" {
		parts = append(parts, "title:"+m.input.Title)
	}
	if len(m.input.AssigneeIDs) > 0 {
		parts = append(parts, "assignee:"+strings.Join(m.input.AssigneeIDs, ","))
	}
	if m.input.TimerActive != nil {
		parts = append(parts, fmt.Sprintf("timer:%v", *m.input.TimerActive))
	}
	return strings.Join(parts, "  ")
}

func nextStatus(current string) string {
	for i, s := range statusCycle {
		if s == current {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return statusCycle[0]
}

func nextTimerFilter(current *bool) *bool {
	switch {
	case current == nil:
		on := true
		return &on
	case *current:
		off := false
		return &off
	default:
		return nil
	}
}
