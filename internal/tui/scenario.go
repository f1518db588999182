package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/rapiddent/internal/applog"
	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/generator"
	"github.com/verte-zerg/rapiddent/internal/model"
)

type scenarioStage int

const (
	scenarioLoading scenarioStage = iota
	scenarioFailed
	scenarioAsking
	scenarioFeedback
	scenarioDone
)

// ScenarioModel walks through one clinical vignette and its questions.
type ScenarioModel struct {
	provider bank.Provider
	tracker  Tracker
	gen      *generator.Generator
	logger   *slog.Logger

	width  int
	height int

	stage     scenarioStage
	err       error
	scenario  model.Scenario
	questions []model.Question
	index     int
	selected  string
	picked    string
	correct   int
}

// NewScenarioModel constructs a scenario model.
func NewScenarioModel(provider bank.Provider, tracker Tracker, gen *generator.Generator, logger *slog.Logger) *ScenarioModel {
	return &ScenarioModel{
		provider: provider,
		tracker:  tracker,
		gen:      gen,
		logger:   applog.OrDiscard(logger),
	}
}

// Init implements tea.Model.
func (m *ScenarioModel) Init() tea.Cmd {
	return m.fetch()
}

func (m *ScenarioModel) fetch() tea.Cmd {
	m.stage = scenarioLoading
	provider, rnd := m.provider, m.gen.Rand()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		scenario, questions, err := bank.RandomScenario(ctx, provider, rnd)
		return scenarioMsg{scenario: scenario, questions: questions, err: err}
	}
}

// Update implements tea.Model.
func (m *ScenarioModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case scenarioMsg:
		if msg.err != nil {
			m.logger.Error("fetch scenario", "error", msg.err)
			m.stage = scenarioFailed
			m.err = msg.err
			return m, nil
		}
		m.logger.Debug("scenario ready", "scenario_id", msg.scenario.ID, "questions", len(msg.questions))
		m.scenario = msg.scenario
		m.questions = msg.questions
		m.index = 0
		m.correct = 0
		m.err = nil
		m.beginQuestion()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *ScenarioModel) beginQuestion() {
	m.picked = ""
	m.selected = firstOption(m.questions[m.index])
	m.stage = scenarioAsking
}

func (m *ScenarioModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "q" || msg.Type == tea.KeyEsc {
		return m, tea.Quit
	}
	switch m.stage {
	case scenarioFailed, scenarioDone:
		if key == "r" || key == "n" {
			return m, m.fetch()
		}
	case scenarioAsking:
		q := m.questions[m.index]
		switch key {
		case "up", "k":
			m.selected = moveSelection(q, m.selected, -1)
		case "down", "j":
			m.selected = moveSelection(q, m.selected, 1)
		case "enter":
			m.answer(q, m.selected)
		default:
			if optionID, ok := optionKey(q, key); ok {
				m.answer(q, optionID)
			}
		}
	case scenarioFeedback:
		if key == "enter" || key == " " || key == "n" {
			m.index++
			if m.index >= len(m.questions) {
				m.stage = scenarioDone
				return m, nil
			}
			m.beginQuestion()
		}
	}
	return m, nil
}

func (m *ScenarioModel) answer(q model.Question, optionID string) {
	correct := optionID == q.CorrectOption
	m.tracker.MarkAnswered(q.ID, correct)
	if correct {
		m.correct++
	}
	m.picked = optionID
	m.stage = scenarioFeedback
}

// View implements tea.Model.
func (m *ScenarioModel) View() string {
	width := contentWidthFor(m.width)
	var content string
	switch m.stage {
	case scenarioLoading:
		content = pendingStyle.Render("Loading scenario...")
	case scenarioFailed:
		content = renderError(m.err, width)
	case scenarioAsking, scenarioFeedback:
		content = m.renderPatient(width) + "\n\n" + m.renderQuestion(width)
	case scenarioDone:
		content = strings.Join([]string{
			accentStyle.Render("Scenario complete"),
			"",
			textStyle.Render(fmt.Sprintf("%d of %d correct", m.correct, len(m.questions))),
			"",
			footerStyle.Render("n: next scenario  q: quit"),
		}, "\n")
	}
	return frame(m.width, m.height, content, m.renderFooter())
}

func (m *ScenarioModel) renderPatient(width int) string {
	s := m.scenario
	inner := max(width-4, 10)
	header := fmt.Sprintf("%s · %d y/o %s", s.PatientName, s.Age, s.Gender)
	rows := []string{
		accentStyle.Render(header),
		wrapHanging("Chief complaint: ", s.ChiefComplaint, inner, pendingStyle, textStyle),
	}
	if s.VitalSigns != "" {
		rows = append(rows, wrapHanging("Vitals: ", s.VitalSigns, inner, pendingStyle, textStyle))
	}
	rows = append(rows,
		wrapHanging("History: ", s.MedicalHistory, inner, pendingStyle, textStyle),
		wrapHanging("Medications: ", s.Medications, inner, pendingStyle, textStyle),
		wrapHanging("Allergies: ", s.Allergies, inner, pendingStyle, textStyle),
		"",
		wrapText(s.ClinicalFindings, inner, textStyle),
	)
	return boxStyle.Width(width - 2).Render(strings.Join(rows, "\n"))
}

func (m *ScenarioModel) renderQuestion(width int) string {
	q := m.questions[m.index]
	parts := []string{
		wrapText(q.Text, width, textStyle),
		"",
		renderOptions(q, m.selected, m.picked, width),
		"",
	}
	if m.stage == scenarioAsking {
		parts = append(parts, footerStyle.Render("↑/↓ + enter or option letter to answer"))
		return strings.Join(parts, "\n")
	}
	if m.picked == q.CorrectOption {
		parts = append(parts, correctStyle.Render("Correct"))
	} else {
		parts = append(parts, incorrectStyle.Render("Incorrect. Answer: "+correctAnswerText(q)))
	}
	if q.Explanation != "" {
		parts = append(parts, wrapText(q.Explanation, width, pendingStyle))
	}
	parts = append(parts, "", footerStyle.Render("enter: continue"))
	return strings.Join(parts, "\n")
}

func (m *ScenarioModel) renderFooter() string {
	if len(m.questions) == 0 || m.stage == scenarioLoading || m.stage == scenarioFailed {
		return ""
	}
	pos := min(m.index+1, len(m.questions))
	return footerStyle.Render(fmt.Sprintf("Question %d/%d  ·  %d correct", pos, len(m.questions), m.correct))
}
