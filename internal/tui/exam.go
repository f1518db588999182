package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/rapiddent/internal/applog"
	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/exam"
	"github.com/verte-zerg/rapiddent/internal/generator"
	"github.com/verte-zerg/rapiddent/internal/model"
)

const maxReportedWrong = 10

// AttemptRecorder persists finished exams.
type AttemptRecorder interface {
	InsertExamAttempt(ctx context.Context, attempt model.ExamAttempt) error
}

type examStage int

const (
	examLoading examStage = iota
	examFailed
	examRunning
	examReport
)

type tickMsg struct {
	sessionID string
}

// ExamModel runs a timed mock exam and shows the score report.
type ExamModel struct {
	provider bank.Provider
	recorder AttemptRecorder
	gen      *generator.Generator
	cfg      model.ExamConfig
	logger   *slog.Logger
	tick     time.Duration

	width  int
	height int

	stage    examStage
	err      error
	session  *exam.Session
	selected string
	result   exam.Result
	saved    bool
}

// NewExamModel constructs a mock exam model.
func NewExamModel(provider bank.Provider, recorder AttemptRecorder, gen *generator.Generator, cfg model.ExamConfig, logger *slog.Logger) *ExamModel {
	if cfg.Questions <= 0 {
		cfg.Questions = exam.DefaultQuestions
	}
	if cfg.Duration <= 0 {
		cfg.Duration = exam.DefaultDuration
	}
	if cfg.PassPercent <= 0 {
		cfg.PassPercent = exam.DefaultPassPercent
	}
	return &ExamModel{
		provider: provider,
		recorder: recorder,
		gen:      gen,
		cfg:      cfg,
		logger:   applog.OrDiscard(logger),
		tick:     time.Second,
	}
}

// Init implements tea.Model.
func (m *ExamModel) Init() tea.Cmd {
	m.stage = examLoading
	return fetchQuestions(m.provider, m.cfg.QuestionType)
}

func (m *ExamModel) scheduleTick(sessionID string) tea.Cmd {
	return tea.Tick(m.tick, func(time.Time) tea.Msg {
		return tickMsg{sessionID: sessionID}
	})
}

// Update implements tea.Model.
func (m *ExamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case questionsMsg:
		return m, m.start(msg)
	case tickMsg:
		return m, m.handleTick(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.stage == examRunning {
				m.session.Abandon()
			}
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *ExamModel) start(msg questionsMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Error("fetch exam questions", "error", msg.err)
		m.stage = examFailed
		m.err = msg.err
		return nil
	}
	questions, err := m.gen.SelectExam(msg.questions, m.cfg.QuestionType, m.cfg.Questions)
	if err != nil {
		m.logger.Warn("select exam questions", "error", err)
		m.stage = examFailed
		m.err = err
		return nil
	}
	m.session = exam.New(questions, exam.Config{Duration: m.cfg.Duration, PassPercent: m.cfg.PassPercent})
	m.session.Start(time.Now())
	m.err = nil
	m.saved = false
	m.logger.Info("exam started", "session_id", m.session.ID(), "questions", len(questions), "duration", m.cfg.Duration.String())
	if m.session.State() == exam.Finished {
		m.finish()
		return nil
	}
	m.stage = examRunning
	m.resetSelection()
	return m.scheduleTick(m.session.ID())
}

func (m *ExamModel) handleTick(msg tickMsg) tea.Cmd {
	if m.session == nil || msg.sessionID != m.session.ID() || m.session.State() != exam.InProgress {
		return nil
	}
	m.session.Tick()
	if m.session.State() == exam.Finished {
		m.finish()
		return nil
	}
	return m.scheduleTick(m.session.ID())
}

func (m *ExamModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.stage {
	case examFailed:
		switch key {
		case "r":
			m.stage = examLoading
			return m, fetchQuestions(m.provider, m.cfg.QuestionType)
		case "q", "esc":
			return m, tea.Quit
		}
	case examReport:
		switch key {
		case "r":
			m.stage = examLoading
			return m, fetchQuestions(m.provider, m.cfg.QuestionType)
		case "q", "esc", "enter":
			return m, tea.Quit
		}
	case examRunning:
		if key == "esc" || key == "q" {
			m.session.Abandon()
			m.finish()
			return m, nil
		}
		q, ok := m.session.Current()
		if !ok {
			return m, nil
		}
		switch key {
		case "up", "k":
			m.selected = moveSelection(q, m.selected, -1)
		case "down", "j":
			m.selected = moveSelection(q, m.selected, 1)
		case "enter":
			m.submit(q, m.selected)
		default:
			if optionID, ok := optionKey(q, key); ok {
				m.submit(q, optionID)
			}
		}
	}
	return m, nil
}

func (m *ExamModel) submit(q model.Question, optionID string) {
	outcome := m.session.SubmitAnswer(q, optionID)
	if !outcome.Accepted {
		return
	}
	if outcome.Finished {
		m.finish()
		return
	}
	m.resetSelection()
}

func (m *ExamModel) resetSelection() {
	if q, ok := m.session.Current(); ok {
		m.selected = firstOption(q)
	}
}

// finish grades the session and stores completed or timed out attempts.
// Abandoned attempts are shown but not kept in the history.
func (m *ExamModel) finish() {
	result, err := m.session.Finalize()
	if err != nil {
		m.logger.Error("finalize exam", "error", err)
		m.stage = examFailed
		m.err = err
		return
	}
	m.result = result
	m.stage = examReport
	m.logger.Info("exam finished",
		"session_id", result.SessionID,
		"reason", result.Reason,
		"score", result.Score,
		"total", result.Total,
		"percentage", result.Percentage,
		"passed", result.Passed,
	)
	if result.Reason == exam.ReasonAbandoned || m.recorder == nil {
		return
	}
	ctx := context.Background()
	if err := m.recorder.InsertExamAttempt(ctx, result.Attempt()); err != nil {
		m.logger.Error("save exam attempt", "error", err, "session_id", result.SessionID)
		return
	}
	m.saved = true
}

// View implements tea.Model.
func (m *ExamModel) View() string {
	width := contentWidthFor(m.width)
	var content, footer string
	switch m.stage {
	case examLoading:
		content = pendingStyle.Render("Preparing exam...")
	case examFailed:
		content = renderError(m.err, width)
	case examRunning:
		content = m.renderQuestion(width)
		footer = m.renderFooter()
	case examReport:
		content = m.renderReport(width)
	}
	return frame(m.width, m.height, content, footer)
}

func (m *ExamModel) renderQuestion(width int) string {
	q, ok := m.session.Current()
	if !ok {
		return ""
	}
	header := fmt.Sprintf("Question %d of %d", m.session.Answered()+1, m.session.Total())
	return strings.Join([]string{
		accentStyle.Render(header),
		"",
		wrapText(q.Text, width, textStyle),
		"",
		renderOptions(q, m.selected, "", width),
	}, "\n")
}

func (m *ExamModel) renderFooter() string {
	remaining := m.session.Remaining()
	clock := formatClock(remaining)
	if remaining <= 60 {
		clock = incorrectStyle.Render(clock)
	}
	segments := []string{
		"Time " + clock,
		fmt.Sprintf("Answered %d/%d", m.session.Answered(), m.session.Total()),
		"esc: end exam",
	}
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}

func (m *ExamModel) renderReport(width int) string {
	r := m.result
	verdict := incorrectStyle.Render(fmt.Sprintf("FAILED (pass mark %d%%)", m.cfg.PassPercent))
	if r.Passed {
		verdict = correctStyle.Render("PASSED")
	}
	title := "Exam complete"
	switch r.Reason {
	case exam.ReasonTimedOut:
		title = "Time is up"
	case exam.ReasonAbandoned:
		title = "Exam ended early"
	}
	parts := []string{
		accentStyle.Render(title),
		"",
		textStyle.Render(fmt.Sprintf("Score %d/%d  ·  %d%%", r.Score, r.Total, r.Percentage)),
		verdict,
	}
	if unanswered := r.Total - r.Answered; unanswered > 0 {
		parts = append(parts, pendingStyle.Render(fmt.Sprintf("%d questions left unanswered", unanswered)))
	}
	if len(r.WrongQuestions) > 0 {
		parts = append(parts, "", accentStyle.Render("Review"))
		for i, q := range r.WrongQuestions {
			if i == maxReportedWrong {
				parts = append(parts, pendingStyle.Render(fmt.Sprintf("…and %d more", len(r.WrongQuestions)-maxReportedWrong)))
				break
			}
			parts = append(parts,
				wrapHanging("• ", q.Text, width, pendingStyle, textStyle),
				wrapHanging("  ", "Answer: "+correctAnswerText(q), width, pendingStyle, correctStyle),
			)
		}
	}
	status := "Not saved to history."
	if m.saved {
		status = "Saved to exam history."
	}
	parts = append(parts, "", pendingStyle.Render(status), footerStyle.Render("r: retake  q: quit"))
	return strings.Join(parts, "\n")
}

// Result returns the graded attempt once the exam has ended.
func (m *ExamModel) Result() (exam.Result, bool) {
	return m.result, m.stage == examReport
}
