package groups

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	tasksdto "worktrack/internal/modules/tasks/dto"
	"worktrack/internal/ui/theme"
)

type GroupsPort interface {
	Groups(ctx context.Context, input tasksdto.ListTasksInput) (tasksdto.GroupOutput, error)
}

type GroupsLoadedMsg struct {
	Seq    int
	Groups tasksdto.GroupOutput
	Err    error
}

// Model renders the current page bucketed by assignee and status.
type Model struct {
	port     GroupsPort
	viewport viewport.Model
	seq      int
	loading  bool
	errText  string
	groups   tasksdto.GroupOutput
}

func New(port GroupsPort) Model {
	return Model{port: port, viewport: viewport.New(0, 0)}
}

// Load fetches groups for the given query; older in-flight replies are dropped.
func (m *Model) Load(input tasksdto.ListTasksInput) tea.Cmd {
	m.seq++
	m.loading = true
	seq, port := m.seq, m.port
	return func() tea.Msg {
		out, err := port.Groups(context.Background(), input)
		return GroupsLoadedMsg{Seq: seq, Groups: out, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-1, 1)
		m.viewport.SetContent(m.render())
		return m, nil
	case GroupsLoadedMsg:
		if msg.Seq != m.seq {
			return m, nil
		}
		m.loading = false
		m.errText = ""
		if msg.Err != nil {
			m.errText = msg.Err.Error()
		} else {
			m.groups = msg.Groups
		}
		m.viewport.SetContent(m.render())
		m.viewport.GotoTop()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	footer := theme.Hot.Render(m.groups.Page.RangeLabel)
	switch {
	case m.errText != "":
		footer = theme.Warn.Render("error: " + m.errText)
	case m.loading:
		footer = theme.Muted.Render("読み込み中…")
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m Model) render() string {
	if len(m.groups.Sections) == 0 {
		return theme.Muted.Render("no tasks on this page")
	}
	var sb strings.Builder
	for _, section := range m.groups.Sections {
		name := section.AssigneeName
		if name == "" {
			name = section.AssigneeID
		}
		sb.WriteString(theme.Section.Render(name) + "\n")
		for _, group := range section.Groups {
			sb.WriteString(theme.Title.Render(fmt.Sprintf("  %s (%d)", group.Status, len(group.Tasks))) + "\n")
			for _, task := range group.Tasks {
				marker := "  "
				if task.IsActive {
					marker = "● "
				}
				line := "    " + marker + task.Title + theme.Muted.Render("  "+task.ID)
				if task.IsNew {
					line += " " + theme.New.Render("NEW")
				}
				sb.WriteString(line + "\n")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
