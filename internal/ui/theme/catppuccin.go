package theme

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha.
var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	Warn  = lipgloss.NewStyle().Foreground(Red)

	// Section heads an assignee block in the grouped view.
	Section = lipgloss.NewStyle().Foreground(Lavender).Bold(true).Underline(true)

	// Running is the timer banner shown while a session is open.
	Running = lipgloss.NewStyle().Foreground(Base).Background(Green).Bold(true).Padding(0, 1)

	// New marks tasks updated within the last week.
	New = lipgloss.NewStyle().Foreground(Green)
)
