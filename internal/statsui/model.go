// Package statsui provides the Bubble Tea progress dashboard.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/rapiddent/internal/applog"
	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/stats"
)

const (
	tabOverview = iota
	tabReview
	tabCorrect
	tabExams
)

const (
	plotHeight  = 8
	loadTimeout = 30 * time.Second
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#3AA6C8"))
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
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#3AA6C8")).
			Padding(1, 2)
	warnModalStyle = modalStyle.BorderForeground(lipgloss.Color("#FF4D4F"))
)

// ProgressStore is the progress state the dashboard reads and may reset.
type ProgressStore interface {
	stats.ProgressSource
	Reset()
}

// Deps are the collaborators the dashboard reads from.
type Deps struct {
	Attempts stats.AttemptLister
	Provider bank.Provider
	Progress ProgressStore
	Logger   *slog.Logger
}

type reportMsg struct {
	report stats.Report
	err    error
}

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeDetail
	modeConfirmReset
)

// Model implements the Bubble Tea dashboard.
type Model struct {
	deps        Deps
	logger      *slog.Logger
	cfg         model.StatsConfig
	passPercent int

	report  stats.Report
	loading bool
	errMsg  string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	tables    map[int]*table.Model

	width  int
	height int

	mode        mode
	filterInput textinput.Model
	filter      string
	detail      model.Question
}

// NewModel constructs a dashboard model.
func NewModel(deps Deps, cfg model.StatsConfig, passPercent int) *Model {
	m := &Model{
		deps:        deps,
		logger:      applog.OrDiscard(deps.Logger),
		cfg:         cfg,
		passPercent: passPercent,
		loading:     true,
		tabs:        []string{"Overview", "Needs Review", "Correct", "Exams"},
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	review := buildQuestionTable(nil, 80, 10)
	correct := buildQuestionTable(nil, 80, 10)
	m.tables = map[int]*table.Model{tabReview: &review, tabCorrect: &correct}
	m.filterInput = textinput.New()
	m.filterInput.Prompt = "Search: "
	m.filterInput.Placeholder = "words in question text or id"
	m.filterInput.Cursor.SetMode(cursor.CursorBlink)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadReport()
}

func (m *Model) loadReport() tea.Cmd {
	deps, cfg := m.deps, m.cfg
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		report, err := stats.BuildReport(ctx, deps.Attempts, deps.Provider, deps.Progress, cfg)
		return reportMsg{report: report, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case reportMsg:
		m.loading = false
		if msg.err != nil {
			m.logger.Error("dashboard load failed", "error", msg.err)
			m.errMsg = bank.UserMessage(msg.err)
		} else {
			m.errMsg = ""
			m.report = msg.report
		}
		m.applyTables()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeFilter:
			return m.updateFilter(msg)
		case modeDetail:
			if msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter || msg.String() == "q" {
				m.mode = modeBrowse
			}
			return m, nil
		case modeConfirmReset:
			return m.updateConfirmReset(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tbl := m.tables[m.activeTab]
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "=":
		m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
		m.renderTabContents()
		return m, nil
	case "-":
		m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
		m.renderTabContents()
		return m, nil
	case "/":
		m.mode = modeFilter
		m.filterInput.SetValue(m.filter)
		return m, m.filterInput.Focus()
	case "r":
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.loadReport()
	case "x":
		m.mode = modeConfirmReset
		return m, nil
	case "enter":
		if tbl != nil {
			if q, ok := m.selectedQuestion(); ok {
				m.detail = q
				m.mode = modeDetail
			}
		}
		return m, nil
	case "g", "home":
		if tbl != nil {
			tbl.GotoTop()
		} else {
			m.viewports[m.activeTab].GotoTop()
		}
		return m, nil
	case "G", "end":
		if tbl != nil {
			tbl.GotoBottom()
		} else {
			m.viewports[m.activeTab].GotoBottom()
		}
		return m, nil
	}
	var cmd tea.Cmd
	if tbl != nil {
		*tbl, cmd = tbl.Update(msg)
		return m, cmd
	}
	m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
	return m, cmd
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeBrowse
		m.filterInput.Blur()
		m.filter = strings.TrimSpace(m.filterInput.Value())
		m.applyTables()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirmReset(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() != "y" {
		return m, nil
	}
	m.deps.Progress.Reset()
	m.loading = true
	return m, m.loadReport()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	switch m.mode {
	case modeDetail:
		return fitLines(m.renderDetailModal(), m.width, m.height)
	case modeConfirmReset:
		return fitLines(m.renderResetModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	for _, tbl := range m.tables {
		tbl.SetColumns(questionColumns(m.width))
		tbl.SetWidth(m.width)
		tbl.SetHeight(max(bodyHeight-1, 1))
	}
	m.filterInput.Width = max(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	for idx, tbl := range m.tables {
		if idx == m.activeTab {
			tbl.Focus()
		} else {
			tbl.Blur()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		label := tab
		switch i {
		case tabReview:
			label = fmt.Sprintf("%s (%d)", tab, len(m.report.NeedsReview))
		case tabCorrect:
			label = fmt.Sprintf("%s (%d)", tab, len(m.report.Correct))
		}
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(label))
		} else {
			parts = append(parts, inactiveNavStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filter := "none"
	if m.filter != "" {
		filter = strconv.Quote(m.filter)
	}
	last := "all"
	if m.cfg.LastAttempts > 0 {
		last = strconv.Itoa(m.cfg.LastAttempts)
	}
	summary := fmt.Sprintf("Search: %s  exams=%s  window=%d  pass=%d%%", filter, last, m.cfg.CurveWindow, m.passPercent)
	return tabs + "\n" + headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	var help string
	switch {
	case m.mode == modeFilter:
		help = "enter: apply  esc: cancel"
	case m.tables[m.activeTab] != nil:
		help = "Nav: left/right  Move: up/down  Details: enter  Search: /  Reload: r  Reset: x  Quit: q"
	default:
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Reload: r  Reset: x  Quit: q"
	}
	out := headerStyle.Render(truncateLine(help, m.width))
	if m.errMsg != "" {
		out += "\n" + errorStyle.Render(m.errMsg+" Press r to retry.")
	}
	return out
}

func (m *Model) renderBody(height int) string {
	if m.mode == modeFilter {
		return fitLines("Filter questions (enter to apply, esc to cancel)\n"+m.filterInput.View(), m.width, height)
	}
	if m.loading && m.report.Progress.Completed == 0 && len(m.report.Attempts) == 0 {
		return fitLines("Loading...", m.width, height)
	}
	if tbl := m.tables[m.activeTab]; tbl != nil {
		if len(tbl.Rows()) == 0 {
			return fitLines(m.emptyTableText(), m.width, height)
		}
		return fitLines(tableMutedStyle.Render(tbl.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) emptyTableText() string {
	if m.filter != "" {
		return fmt.Sprintf("No questions match %q.", m.filter)
	}
	if m.activeTab == tabReview {
		return "Nothing to review. Wrong answers from practice show up here."
	}
	return "No correctly answered questions yet."
}

func (m *Model) applyTables() {
	lists := map[int][]model.Question{
		tabReview:  m.report.NeedsReview,
		tabCorrect: m.report.Correct,
	}
	for idx, questions := range lists {
		tbl := m.tables[idx]
		tbl.SetRows(questionRows(filterQuestions(questions, m.filter)))
		tbl.GotoTop()
	}
}

func (m *Model) selectedQuestion() (model.Question, bool) {
	tbl := m.tables[m.activeTab]
	row := tbl.SelectedRow()
	if row == nil {
		return model.Question{}, false
	}
	source := m.report.Correct
	if m.activeTab == tabReview {
		source = m.report.NeedsReview
	}
	for _, q := range source {
		if q.ID == row[0] {
			return q, true
		}
	}
	return model.Question{}, false
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	if m.errMsg != "" {
		m.viewports[tabOverview].SetContent("Failed to load stats.")
		m.viewports[tabExams].SetContent("Failed to load stats.")
		return
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.viewports[tabExams].SetContent(renderExams(m.report, m.cfg.CurveWindow, m.passPercent, width))
}

func renderOverview(report stats.Report, width int) string {
	p := report.Progress
	e := report.Exams
	best := "-"
	if e.Attempts > 0 {
		best = fmt.Sprintf("%d%%", e.BestPercent)
	}
	cards := []string{
		metricCard("Completed", strconv.Itoa(p.Completed)),
		metricCard("Correct", strconv.Itoa(p.Correct)),
		metricCard("Needs Review", strconv.Itoa(p.NeedsReview)),
		metricCard("Accuracy", fmt.Sprintf("%.1f%%", p.Accuracy*100)),
		metricCard("Exams", strconv.Itoa(e.Attempts)),
		metricCard("Best Exam", best),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2], cards[3])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[4], cards[5])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	if p.Completed == 0 {
		return summary + "\n\nNo practice answers yet. Run rapiddent to start a rapid fire round."
	}
	var buf bytes.Buffer
	if err := stats.RenderBreakdown(&buf, report.Breakdown); err != nil {
		return fmt.Sprintf("Failed to render breakdown: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+buf.String(), "\n")
}

func renderExams(report stats.Report, window, passPercent, width int) string {
	if len(report.Attempts) == 0 {
		return "No exam attempts yet. Run rapiddent exam to take a mock exam."
	}
	var buf bytes.Buffer
	if err := stats.RenderExamCurveWithSize(&buf, report.Attempts, window, passPercent, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render exam curve: %v", err)
	}
	lines := []string{"Attempts"}
	for i := len(report.Attempts) - 1; i >= 0; i-- {
		a := report.Attempts[i]
		verdict := "FAIL"
		if a.Passed {
			verdict = "PASS"
		}
		lines = append(lines, fmt.Sprintf("%s  %2d/%-2d  %3d%%  %s  %s",
			a.EndedAt.Local().Format("2006-01-02 15:04"), a.Score, a.Total, a.Percentage, verdict, a.FinishReason))
	}
	buf.WriteString(strings.Join(lines, "\n"))
	buf.WriteString("\n\n")
	if err := stats.RenderMostMissed(&buf, report.MostMissed); err != nil {
		return fmt.Sprintf("Failed to render missed questions: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func (m *Model) renderDetailModal() string {
	q := m.detail
	body := []string{
		cardValueStyle.Render(fmt.Sprintf("%s · %s", stats.TypeLabel(q.Type), q.ID)),
		"",
		q.Text,
		"",
		"Answer: " + answerText(q),
	}
	if q.Explanation != "" {
		body = append(body, "", headerStyle.Render(q.Explanation))
	}
	body = append(body, "", headerStyle.Render("Enter or Esc to close"))
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderResetModal() string {
	body := []string{
		cardValueStyle.Render("Reset progress?"),
		"",
		"This clears every completed and needs-review question. Exam history is kept.",
		"",
		headerStyle.Render("y to confirm / any other key to cancel"),
	}
	box := warnModalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func answerText(q model.Question) string {
	if len(q.Options) == 0 {
		if q.IsCorrectAnswerTrue() {
			return "True"
		}
		return "False"
	}
	if opt, ok := q.OptionByID(q.CorrectOption); ok {
		return fmt.Sprintf("%s. %s", opt.ID, opt.Text)
	}
	return q.CorrectOption
}

func questionColumns(width int) []table.Column {
	const idWidth, typeWidth = 10, 10
	return []table.Column{
		{Title: "ID", Width: idWidth},
		{Title: "Type", Width: typeWidth},
		{Title: "Question", Width: max(width-idWidth-typeWidth-6, 20)},
	}
}

func questionRows(questions []model.Question) []table.Row {
	rows := make([]table.Row, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, table.Row{q.ID, stats.TypeLabel(q.Type), stats.ShortText(q.Text, 200)})
	}
	return rows
}

func buildQuestionTable(questions []model.Question, width, height int) table.Model {
	t := table.New(
		table.WithColumns(questionColumns(width)),
		table.WithRows(questionRows(questions)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(questionTableStyles())
	return t
}

func questionTableStyles() table.Styles {
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

// filterQuestions keeps questions whose id or text contains every word of
// query, ignoring case.
func filterQuestions(questions []model.Question, query string) []model.Question {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return questions
	}
	out := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		haystack := strings.ToLower(q.ID + " " + q.Text)
		match := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				match = false
				break
			}
		}
		if match {
			out = append(out, q)
		}
	}
	return out
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
