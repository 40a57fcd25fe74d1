package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xucongyong/duet/internal/ui"
)

// render produces the full TUI output.
func (m *Model) render() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderFlash())
	sections = append(sections, LogPanelStyle.Width(m.width-2).Render(m.logViewport.View()))
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := HeaderStyle.Render("duet")
	if m.status == nil {
		return title + " " + StoppedStyle.Render("waiting for panel")
	}

	var state string
	if m.status.Running {
		state = ui.RenderStateIcon(true) + " " + RunningStyle.Render(fmt.Sprintf("running (pid %d)", m.status.PID))
	} else {
		state = ui.RenderStateIcon(false) + " " + StoppedStyle.Render("stopped")
	}
	schedule := ScheduleStyle.Render("schedule " + m.status.Schedule.Summary)
	return strings.Join([]string{title, state, schedule}, "  ")
}

func (m *Model) renderFlash() string {
	if m.err != nil {
		return ErrorStyle.Render(m.err.Error())
	}
	return m.flash
}

func (m *Model) renderLines() string {
	if len(m.lines) == 0 {
		return StoppedStyle.Render("(no output yet)")
	}
	rendered := make([]string, len(m.lines))
	for i, line := range m.lines {
		rendered[i] = ui.RenderLogLine(line)
	}
	return strings.Join(rendered, "\n")
}

func (m *Model) renderStatusBar() string {
	follow := "follow off"
	if m.follow {
		follow = "follow on"
	}
	polled := "never"
	if !m.lastPoll.IsZero() {
		polled = m.lastPoll.Format("15:04:05")
	}
	text := fmt.Sprintf("%d lines | %s | last poll %s", len(m.lines), follow, polled)
	return StatusBarStyle.Width(m.width).Render(text)
}
