// Package tui renders decoded rows as a full-screen terminal table, as an
// alternative to the plain carriage-return stdout view.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rjboer/iioview/internal/telemetry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2B6CB0")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	rateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F6E05E"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type rowMsg telemetry.Row

type model struct {
	device string
	row    telemetry.Row
	count  int
	seen   bool
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case rowMsg:
		m.row = telemetry.Row(msg)
		m.count++
		m.seen = true
	}
	return m, nil
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("iioview " + m.device))
	b.WriteString("\n\n")

	if !m.seen {
		b.WriteString(helpStyle.Render("waiting for first record..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(rateStyle.Render(fmt.Sprintf("%8.1f Hz", m.row.RateHz)))
	b.WriteString(helpStyle.Render(fmt.Sprintf("   %d records", m.count)))
	b.WriteString("\n\n")

	for _, v := range m.row.Values {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-14s", v.Name)))
		if v.Name == "timestamp" {
			b.WriteString(valueStyle.Render(time.Unix(0, v.Raw).Format("2006-01-02 15:04:05.000000")))
		} else {
			b.WriteString(valueStyle.Render(fmt.Sprintf("%+14.6f", v.Value)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

// UI runs the bubbletea program and doubles as a telemetry.Reporter: decoded
// rows are injected as messages from the capture goroutine.
type UI struct {
	prog *tea.Program
}

// New prepares the terminal UI for the named device.
func New(device string) *UI {
	return &UI{prog: tea.NewProgram(&model{device: device}, tea.WithAltScreen())}
}

// Report implements telemetry.Reporter.
func (u *UI) Report(row telemetry.Row) {
	u.prog.Send(rowMsg(row))
}

// Run blocks until the user quits or Quit is called.
func (u *UI) Run() error {
	_, err := u.prog.Run()
	return err
}

// Quit stops the UI from outside, e.g. when the capture stream ends.
func (u *UI) Quit() {
	u.prog.Quit()
}
