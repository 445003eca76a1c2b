// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/stats"
)

const (
	tabOverview = iota
	tabHistory
)

const (
	loadTimeout        = 15 * time.Second
	defaultTrendWindow = 5
	maxTrendWindow     = 50
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source provides the data shown by the stats screen.
type Source interface {
	GetStats(ctx context.Context, userID string) (model.Stats, error)
	ListResults(ctx context.Context, userID string, limit int) ([]model.TestRecord, error)
}

// Options configures the stats screen.
type Options struct {
	UserID      string
	DisplayName string
	Limit       int
	Window      int
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	source Source
	opts   Options

	summary model.Stats
	records []model.TestRecord
	loaded  bool
	errMsg  string

	tabs      []string
	activeTab int
	overview  viewport.Model
	history   table.Model

	width  int
	height int
}

type loadedMsg struct {
	summary model.Stats
	records []model.TestRecord
	err     error
}

// NewModel constructs a stats UI model.
func NewModel(source Source, opts Options) *Model {
	if opts.Window <= 0 {
		opts.Window = defaultTrendWindow
	}
	return &Model{
		source:   source,
		opts:     opts,
		tabs:     []string{"Overview", "History"},
		overview: viewport.New(0, 0),
		history:  buildHistoryTable(nil, 0, 1),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.load()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.summary = msg.summary
		m.records = msg.records
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l", "tab":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "r":
			return m, m.load()
		case "=":
			m.opts.Window = min(m.opts.Window+1, maxTrendWindow)
			m.renderOverview()
			return m, nil
		case "-":
			m.opts.Window = max(m.opts.Window-1, 1)
			m.renderOverview()
			return m, nil
		case "g", "home":
			if m.activeTab == tabHistory {
				m.history.GotoTop()
			} else {
				m.overview.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabHistory {
				m.history.GotoBottom()
			} else {
				m.overview.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabHistory {
			m.history, cmd = m.history.Update(msg)
		} else {
			m.overview, cmd = m.overview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) load() tea.Cmd {
	source, opts := m.source, m.opts
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		summary, err := source.GetStats(ctx, opts.UserID)
		if err != nil {
			return loadedMsg{err: fmt.Errorf("failed to load stats: %w", err)}
		}
		records, err := source.ListResults(ctx, opts.UserID, opts.Limit)
		if err != nil {
			return loadedMsg{err: fmt.Errorf("failed to load history: %w", err)}
		}
		return loadedMsg{summary: summary, records: records}
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X"))) + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = width
	m.overview.Height = bodyHeight
	m.history = buildHistoryTable(m.records, width, bodyHeight)
	m.history.Focus()
	m.renderOverview()
}

func (m *Model) moveTab(delta int) {
	m.activeTab = (m.activeTab + delta + len(m.tabs)) % len(m.tabs)
}

func (m *Model) renderOverview() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(renderOverview(m.summary, m.records, m.opts.Window, width))
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := padLines(lipgloss.JoinHorizontal(lipgloss.Top, parts...), m.width)
	who := m.opts.DisplayName
	if who == "" {
		who = "you"
	}
	limit := "all"
	if m.opts.Limit > 0 {
		limit = fmt.Sprintf("%d", m.opts.Limit)
	}
	summary := stats.Truncate(fmt.Sprintf("Results for %s  last=%s  window=%d", who, limit, m.opts.Window), m.width)
	return tabs + "\n" + headerStyle.Render(summary)
}

func (m *Model) renderBody() string {
	switch {
	case !m.loaded:
		return "Loading…"
	case m.errMsg != "":
		return "Failed to load stats."
	case m.activeTab == tabHistory && len(m.records) == 0:
		return "No tests found."
	case m.activeTab == tabHistory:
		return tableMutedStyle.Render(m.history.View())
	default:
		return m.overview.View()
	}
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Reload: r  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func renderOverview(summary model.Stats, records []model.TestRecord, window, width int) string {
	if summary.Count == 0 {
		return "No tests found."
	}
	cards := renderSummaryCards(summary, records, width)
	var buf bytes.Buffer
	if err := stats.RenderTrend(&buf, records, window, width); err != nil {
		return cards + "\n\n" + fmt.Sprintf("Failed to render trend: %v", err)
	}
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(summary model.Stats, records []model.TestRecord, width int) string {
	cards := []string{
		metricCard("Tests", fmt.Sprintf("%d", summary.Count)),
		metricCard("Avg WPM", fmt.Sprintf("%d", summary.MeanWPM)),
		metricCard("Best WPM", fmt.Sprintf("%d", stats.BestWPM(records))),
		metricCard("Avg Acc", fmt.Sprintf("%d%%", summary.MeanAccuracy)),
		metricCard("Time", stats.FormatDuration(summary.TotalTime)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func buildHistoryTable(records []model.TestRecord, width, height int) table.Model {
	headers := stats.HistoryHeaders()
	widths := []int{16, 40, 5, 8, 8, 9, 16}
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}
	rows := make([]table.Row, 0, len(records))
	for _, r := range stats.HistoryRows(records) {
		rows = append(rows, table.Row(r))
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	return strings.Join(lines, "\n")
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(padLines(s, width), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
