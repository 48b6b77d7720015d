package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	tasksdto "worktrack/internal/modules/tasks/dto"
	timerdomain "worktrack/internal/modules/timer/domain"
	timerdto "worktrack/internal/modules/timer/dto"
	apperrors "worktrack/internal/platform/errors"
	"worktrack/internal/ui/components"
	"worktrack/internal/ui/theme"
	groupsview "worktrack/internal/ui/views/groups"
	tasksview "worktrack/internal/ui/views/tasks"
)

// ─── ports ───────────────────────────────────────────────────────────────────
// Each port is the minimal interface that this orchestration layer requires.

type tasksPort interface {
	List(ctx context.Context, input tasksdto.ListTasksInput) (tasksdto.ListTasksOutput, error)
	Groups(ctx context.Context, input tasksdto.ListTasksInput) (tasksdto.GroupOutput, error)
	Refresh(ctx context.Context) error
}

type timerPort interface {
	Start(ctx context.Context, taskID string) (timerdto.StartOutput, error)
	Stop(ctx context.Context, sessionID, note string) (timerdto.StopOutput, error)
	GetActive(ctx context.Context) (timerdto.ActiveSessionOutput, error)
	Reconcile(ctx context.Context) (timerdto.ReconcileOutput, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabTasks tabID = iota
	tabGroups
	tabCount
)

var tabLabels = [tabCount]string{"Tasks", "By assignee"}

// ─── async messages ───────────────────────────────────────────────────────────

type activeLoadedMsg struct {
	active timerdto.ActiveSessionOutput
	err    error
}

type timerStartedMsg struct {
	out timerdto.StartOutput
	err error
}

type timerStoppedMsg struct {
	out timerdto.StopOutput
	err error
}

type reconciledMsg struct {
	out timerdto.ReconcileOutput
	err error
}

// tickMsg redraws the elapsed-time banner.
type tickMsg time.Time

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Start   key.Binding
	Stop    key.Binding
	PrevPg  key.Binding
	NextPg  key.Binding
	Status  key.Binding
	Timer   key.Binding
	Clear   key.Binding
	Refresh key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start timer")),
		Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop timer")),
		PrevPg:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev page")),
		NextPg:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next page")),
		Status:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "cycle status filter")),
		Timer:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "cycle timer filter")),
		Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Start, k.Stop},
		{k.PrevPg, k.NextPg, k.Refresh},
		{k.Status, k.Timer, k.Clear},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, timer state,
// the help overlay and the command palette.
type Model struct {
	timer timerPort

	taskView  tasksview.Model
	groupView groupsview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	active    timerdto.ActiveSessionOutput
	hasActive bool
	ticking   bool
	quitting  bool
	now       time.Time
	status    string
	width     int
	height    int
}

// ─── constructor ─────────────────────────────────────────────────────────────

func NewModel(tasks tasksPort, timer timerPort) Model {
	return Model{
		timer:     timer,
		taskView:  tasksview.New(tasks),
		groupView: groupsview.New(tasks),
		activeTab: tabTasks,
		keys:      defaultKeys(),
		help:      help.New(),
		palette:   components.NewPalette(),
		status:    "ready",
		now:       time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.taskView.Init(),
		m.loadActiveCmd(),
	)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}

	var cmds []tea.Cmd

	// The palette intercepts all input while open.
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, cmd
		}
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case activeLoadedMsg:
		// GetActive reconciles first, so the banner only ever shows a confirmed session.
		if msg.err != nil {
			if !errors.Is(msg.err, apperrors.ErrNoActiveSession) {
				m.status = "active timer check: " + msg.err.Error()
			}
			m.clearActive()
			return m, nil
		}
		m.setActive(msg.active)
		m.status = "timer recovered: " + msg.active.TaskID
		cmd := tea.Batch(m.startTicking(), m.taskView.SetActiveTask(msg.active.TaskID))
		return m, cmd

	case timerStartedMsg:
		if msg.err != nil {
			if apperrors.IsConflict(msg.err) {
				m.status = "another timer is already running"
			} else {
				m.status = "timer start failed: " + msg.err.Error()
			}
			return m, nil
		}
		m.setActive(timerdto.ActiveSessionOutput{
			SessionID:   msg.out.SessionID,
			TaskID:      msg.out.TaskID,
			ProjectType: msg.out.ProjectType,
			StartedAt:   msg.out.StartedAt,
		})
		m.status = "timer started: " + msg.out.TaskID
		cmd := tea.Batch(m.startTicking(), m.taskView.SetActiveTask(msg.out.TaskID))
		return m, cmd

	case timerStoppedMsg:
		if msg.err != nil {
			m.status = "timer stop failed: " + msg.err.Error()
			return m, nil
		}
		m.clearActive()
		if msg.out.AlreadyClosed {
			m.status = "timer was already closed remotely"
		} else {
			m.status = fmt.Sprintf("timer stopped: %s (%s)", msg.out.TaskID, msg.out.Formatted)
		}
		cmd := m.taskView.SetActiveTask("")
		return m, cmd

	case reconciledMsg:
		switch {
		case msg.err != nil:
			m.status = "reconcile failed: " + msg.err.Error()
		case msg.out.Cleared:
			m.clearActive()
			m.status = "stale timer cleared: " + msg.out.Reason
		default:
			m.status = "timer state in sync"
		}
		return m, nil

	case tickMsg:
		if !m.hasActive {
			m.ticking = false
			return m, nil
		}
		m.now = time.Time(msg)
		return m, tickCmd()

	case spinner.TickMsg:
		// The task view owns the only spinner, whichever tab is showing.
		var cmd tea.Cmd
		m.taskView, cmd = m.taskView.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case tasksview.PageLoadedMsg:
		var cmd tea.Cmd
		m.taskView, cmd = m.taskView.Update(msg)
		cmds = append(cmds, cmd)
		if m.activeTab == tabGroups && msg.Err == nil {
			cmds = append(cmds, m.groupView.Load(m.taskView.Input()))
		}
		return m, tea.Batch(cmds...)

	case groupsview.GroupsLoadedMsg:
		var cmd tea.Cmd
		m.groupView, cmd = m.groupView.Update(msg)
		return m, cmd

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "tab", "shift+tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			if m.activeTab == tabGroups {
				cmd := m.groupView.Load(m.taskView.Input())
				return m, cmd
			}
			return m, nil
		case "?":
			m.showHelp = true
			return m, nil
		case ":":
			cmd := m.palette.Open()
			return m, cmd
		case "s":
			if id, ok := m.taskView.SelectedTaskID(); ok {
				return m, m.startTimerCmd(id)
			}
			m.status = "no task selected"
			return m, nil
		case "x":
			return m, m.stopTimerCmd("")
		case "left", "right", "f", "t", "c", "r":
			// Query keys always drive the task list; the groups tab follows its page.
			var cmd tea.Cmd
			m.taskView, cmd = m.taskView.Update(msg)
			return m, cmd
		}
	}

	// Propagate the message to the active tab's sub-view.
	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabTasks:
		m.taskView, tabCmd = m.taskView.Update(msg)
	case tabGroups:
		m.groupView, tabCmd = m.groupView.Update(msg)
	}
	cmds = append(cmds, tabCmd)
	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()

	contentH := max(m.height-lipgloss.Height(tabBar)-lipgloss.Height(statusBar), 1)

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	case m.activeTab == tabGroups:
		content = m.groupView.View()
	default:
		content = m.taskView.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	bar := "worktrack  " + strings.Join(parts, theme.Muted.Render(" │ "))
	if m.hasActive {
		bar += "  " + theme.Running.Render(m.bannerText())
	}
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	right := theme.Muted.Render("?:help  tab:switch  :::palette  q:quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

func (m Model) bannerText() string {
	elapsed := int64(0)
	if !m.active.StartedAt.IsZero() && m.now.After(m.active.StartedAt) {
		elapsed = int64(m.now.Sub(m.active.StartedAt) / time.Second)
	}
	return fmt.Sprintf("● %s  %s", m.active.TaskID, timerdomain.FormatDuration(elapsed))
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)
	rest := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))

	switch parts[0] {
	case "timer:start":
		taskID := rest
		if taskID == "" {
			taskID, _ = m.taskView.SelectedTaskID()
		}
		if taskID == "" {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.startTimerCmd(taskID)
	case "timer:stop":
		return m, m.stopTimerCmd(rest)
	case "timer:reconcile":
		return m, m.reconcileCmd()
	case "filter:title":
		cmd := m.taskView.SetTitle(rest)
		return m, cmd
	case "filter:assignee":
		cmd := m.taskView.SetAssignee(rest)
		return m, cmd
	case "filter:status":
		switch rest {
		case "not-completed", "completed", "all":
			cmd := m.taskView.SetStatus(rest)
			return m, cmd
		}
		m.status = "usage: filter:status <not-completed|completed|all>"
		return m, nil
	case "filter:clear":
		cmd := m.taskView.ClearFilters()
		return m, cmd
	case "tasks:refresh":
		cmd := m.taskView.Refresh()
		return m, cmd
	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m *Model) setActive(active timerdto.ActiveSessionOutput) {
	m.active = active
	m.hasActive = true
	m.now = time.Now()
}

func (m *Model) clearActive() {
	m.active = timerdto.ActiveSessionOutput{}
	m.hasActive = false
}

// startTicking schedules the banner tick unless one is already pending.
func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tickCmd()
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.taskView, _ = m.taskView.Update(sz)
	m.groupView, _ = m.groupView.Update(sz)
}

// ─── async commands ───────────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) loadActiveCmd() tea.Cmd {
	return func() tea.Msg {
		active, err := m.timer.GetActive(context.Background())
		return activeLoadedMsg{active: active, err: err}
	}
}

func (m Model) startTimerCmd(taskID string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.timer.Start(context.Background(), taskID)
		return timerStartedMsg{out: out, err: err}
	}
}

func (m Model) stopTimerCmd(note string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.timer.Stop(context.Background(), "", note)
		return timerStoppedMsg{out: out, err: err}
	}
}

func (m Model) reconcileCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.timer.Reconcile(context.Background())
		return reconciledMsg{out: out, err: err}
	}
}
