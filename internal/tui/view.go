package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/stats"
)

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	bannerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Italic(true)
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	resultStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
)

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.phase {
	case phaseLoading:
		body = m.spinner.View() + " Fetching article…"
	case phaseError:
		body = warnStyle.Render("Could not load an article: "+m.err.Error()) + "\n\n" +
			footerStyle.Render("enter retry · ctrl+c quit")
	case phaseResult:
		body = m.renderResult()
	default:
		body = m.renderTyping()
	}
	if m.width == 0 || m.height == 0 {
		return body
	}
	content := lipgloss.NewStyle().Width(m.contentWidth()).Render(body)
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	main := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	return main + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *Model) contentWidth() int {
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) renderHeader() string {
	lines := []string{titleStyle.Render(m.prompt.Title)}
	meta := lo.Compact([]string{m.prompt.Source, m.prompt.URL})
	if len(meta) > 0 {
		lines = append(lines, footerStyle.Render(strings.Join(meta, " · ")))
	}
	if m.prompt.Offline {
		lines = append(lines, bannerStyle.Render("Offline mode: practising with built-in words"))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTyping() string {
	if m.session == nil {
		return ""
	}
	target := m.session.Target()
	typed := m.session.TypedRunes()
	cursor := -1
	if len(typed) < len(target) {
		cursor = len(typed)
	}
	styled := buildStyledRunes(target, typed, cursor)
	text := renderStyledRunes(styled)
	if m.width > 0 {
		text = wrapStyledRunes(styled, m.contentWidth())
	}
	return strings.Join([]string{
		m.renderHeader(),
		"",
		text,
		"",
		m.progress.ViewAs(m.session.Progress()),
		m.renderLive(),
	}, "\n")
}

func (m *Model) renderLive() string {
	live := m.session.Preview(m.now())
	segments := []string{
		fmt.Sprintf("%d WPM", live.WPM),
		fmt.Sprintf("%d%%", live.Accuracy),
	}
	if m.session.Mode() == model.ModeCountdown {
		segments = append([]string{fmt.Sprintf("%ds left", m.session.Remaining())}, segments...)
	}
	return footerStyle.Render(strings.Join(segments, " · "))
}

func (m *Model) renderResult() string {
	res := m.lastResult
	lines := []string{
		m.renderHeader(),
		"",
		resultStyle.Render(fmt.Sprintf("%d WPM · %d%% accuracy · %s", res.WPM, res.Accuracy, stats.FormatDuration(res.TimeSpentSeconds))),
	}
	if m.saveNote != "" {
		style := footerStyle
		if m.saveFailed {
			style = warnStyle
		}
		lines = append(lines, style.Render(m.saveNote))
	}
	lines = append(lines, "", footerStyle.Render("enter next article · ctrl+r retry · ctrl+c quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.phase == phaseTyping && m.session != nil {
		segments = append(segments, fmt.Sprintf("Progress %d%%", int(m.session.Progress()*100)))
	}
	if m.hasLastTest {
		segments = append(segments, fmt.Sprintf("Last %d WPM · %d%%", m.lastResult.WPM, m.lastResult.Accuracy))
	}
	if m.hasFooter && m.footer.Count > 0 {
		segments = append(segments, fmt.Sprintf("All-time %d WPM · %d%% over %d tests", m.footer.MeanWPM, m.footer.MeanAccuracy, m.footer.Count))
	}
	segments = append(segments, "ctrl+n skip")
	return footerStyle.Render(strings.Join(segments, "  "))
}
