// ABOUTME: Confirmation dialog and goal celebration overlay
// ABOUTME: Destructive actions wait for y; the celebration closes on any key
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/agencycrm/metrics"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	celebrateBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("10")).
				Padding(1, 4).
				Width(60).
				Align(lipgloss.Center)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

type confirmation struct {
	prompt string
	op     func(ctx context.Context) error
}

func (m *Model) openConfirm(prompt string, op func(ctx context.Context) error) {
	m.confirm = &confirmation{prompt: prompt, op: op}
	m.viewMode = ViewConfirm
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		c := m.confirm
		m.confirm = nil
		m.viewMode = ViewList
		return m.startOp("Working", c.op)
	case "n", "N", "esc", "q":
		m.confirm = nil
		m.viewMode = ViewList
		return m, nil
	}
	return m, nil
}

func (m Model) renderConfirm() string {
	title := errorStyle.Render("⚠  CONFIRM  ⚠")
	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)
	content := lipgloss.JoinVertical(lipgloss.Center, title, "", m.confirm.prompt, "", buttons)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, confirmBoxStyle.Render(content))
}

func (m Model) renderCelebration() string {
	var detail string
	if g := m.snap.Goal; g != nil {
		detail = fmt.Sprintf("%s\n%s reached", g.Title, metrics.FormatMoney(g.TargetAmount))
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("🎉 GOAL ACHIEVED 🎉"),
		"",
		detail,
		"",
		mutedStyle.Render("press any key"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, celebrateBoxStyle.Render(content))
}
