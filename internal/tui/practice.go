package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/rapiddent/internal/applog"
	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/generator"
	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/progress"
)

type practiceStage int

const (
	practiceLoading practiceStage = iota
	practiceFailed
	practiceAsking
	practiceFeedback
	practiceDone
)

// PracticeModel implements the rapid fire card deck.
type PracticeModel struct {
	provider bank.Provider
	tracker  Tracker
	gen      *generator.Generator
	cfg      model.PracticeConfig
	logger   *slog.Logger

	width  int
	height int

	stage  practiceStage
	err    error
	deck   []model.Question
	index  int
	picked string

	roundCorrect int
	roundWrong   int
	snap         progress.Snapshot
}

// NewPracticeModel constructs a rapid fire practice model.
func NewPracticeModel(provider bank.Provider, tracker Tracker, gen *generator.Generator, cfg model.PracticeConfig, logger *slog.Logger) *PracticeModel {
	return &PracticeModel{
		provider: provider,
		tracker:  tracker,
		gen:      gen,
		cfg:      cfg,
		logger:   applog.OrDiscard(logger),
		snap:     tracker.Snapshot(),
	}
}

// Init implements tea.Model.
func (m *PracticeModel) Init() tea.Cmd {
	m.stage = practiceLoading
	return fetchQuestions(m.provider, model.TypeRapidFire)
}

// Update implements tea.Model.
func (m *PracticeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case questionsMsg:
		m.handleQuestions(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// OnProgress refreshes the footer counters after a progress change.
func (m *PracticeModel) OnProgress(snap progress.Snapshot) {
	m.snap = snap
}

func (m *PracticeModel) handleQuestions(msg questionsMsg) {
	if msg.err != nil {
		m.logger.Error("fetch rapid fire questions", "error", msg.err)
		m.stage = practiceFailed
		m.err = msg.err
		return
	}
	deck, err := m.gen.PracticeDeck(msg.questions, m.tracker, m.cfg)
	if err != nil {
		m.logger.Warn("build practice deck", "error", err, "review", m.cfg.Review)
		m.stage = practiceFailed
		m.err = err
		return
	}
	m.logger.Debug("practice deck ready", "cards", len(deck), "review", m.cfg.Review)
	m.deck = deck
	m.index = 0
	m.picked = ""
	m.roundCorrect = 0
	m.roundWrong = 0
	m.err = nil
	m.stage = practiceAsking
}

func (m *PracticeModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "q" || msg.Type == tea.KeyEsc {
		return m, tea.Quit
	}
	switch m.stage {
	case practiceFailed, practiceDone:
		if key == "r" || key == "n" {
			m.stage = practiceLoading
			return m, fetchQuestions(m.provider, model.TypeRapidFire)
		}
	case practiceAsking:
		q := m.deck[m.index]
		if optionID, ok := optionKey(q, key); ok {
			m.answer(q, optionID)
		}
	case practiceFeedback:
		if key == "enter" || key == " " || key == "n" {
			m.next()
		}
	}
	return m, nil
}

func (m *PracticeModel) answer(q model.Question, optionID string) {
	correct := optionID == q.CorrectOption
	m.tracker.MarkAnswered(q.ID, correct)
	if correct {
		m.roundCorrect++
	} else {
		m.roundWrong++
	}
	m.picked = optionID
	m.stage = practiceFeedback
}

func (m *PracticeModel) next() {
	m.picked = ""
	m.index++
	if m.index >= len(m.deck) {
		m.stage = practiceDone
		return
	}
	m.stage = practiceAsking
}

// View implements tea.Model.
func (m *PracticeModel) View() string {
	width := contentWidthFor(m.width)
	var content string
	switch m.stage {
	case practiceLoading:
		content = pendingStyle.Render("Loading questions...")
	case practiceFailed:
		content = renderError(m.err, width)
	case practiceAsking, practiceFeedback:
		content = m.renderCard(width)
	case practiceDone:
		content = m.renderDone(width)
	}
	return frame(m.width, m.height, content, m.renderFooter())
}

func (m *PracticeModel) renderCard(width int) string {
	q := m.deck[m.index]
	title := "Rapid Fire"
	if m.cfg.Review {
		title = "Needs Review"
	}
	parts := []string{
		accentStyle.Render(title),
		"",
		wrapText(q.Text, width, textStyle),
		"",
	}
	if m.stage == practiceAsking {
		parts = append(parts, pendingStyle.Render("f / ←  False        True  → / t"))
		return strings.Join(parts, "\n")
	}
	if m.picked == q.CorrectOption {
		parts = append(parts, correctStyle.Render("Correct"))
	} else {
		parts = append(parts, incorrectStyle.Render("Incorrect"))
	}
	parts = append(parts, textStyle.Render("Answer: "+correctAnswerText(q)))
	if q.Explanation != "" {
		parts = append(parts, "", wrapText(q.Explanation, width, pendingStyle))
	}
	parts = append(parts, "", footerStyle.Render("enter: next card"))
	return strings.Join(parts, "\n")
}

func (m *PracticeModel) renderDone(width int) string {
	total := m.roundCorrect + m.roundWrong
	parts := []string{
		accentStyle.Render("Round complete"),
		"",
		textStyle.Render(fmt.Sprintf("%d of %d correct", m.roundCorrect, total)),
	}
	if m.roundWrong > 0 {
		parts = append(parts, wrapText(fmt.Sprintf("%d cards were added to Needs Review.", m.roundWrong), width, pendingStyle))
	}
	parts = append(parts, "", footerStyle.Render("n: new round  q: quit"))
	return strings.Join(parts, "\n")
}

func (m *PracticeModel) renderFooter() string {
	segments := []string{}
	if len(m.deck) > 0 && (m.stage == practiceAsking || m.stage == practiceFeedback) {
		segments = append(segments, fmt.Sprintf("Card %d/%d", m.index+1, len(m.deck)))
	}
	segments = append(segments,
		fmt.Sprintf("Completed %d", m.snap.CompletedCount()),
		fmt.Sprintf("Correct %d", m.snap.CorrectCount()),
		fmt.Sprintf("Needs review %d", m.snap.WrongCount()),
	)
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}
