// Package tui provides the Bubble Tea study screens: rapid fire practice,
// clinical scenarios and the timed mock exam.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/generator"
	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/progress"
)

const fetchTimeout = 30 * time.Second

var (
	textStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	accentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	selectedStyle  = accentStyle.Underline(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	boxStyle       = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#3AA6C8")).
			Padding(0, 1)
)

// Tracker records practice answers.
type Tracker interface {
	generator.Tracker
	MarkAnswered(id string, correct bool)
	Snapshot() progress.Snapshot
}

type questionsMsg struct {
	questions []model.Question
	err       error
}

type scenarioMsg struct {
	scenario  model.Scenario
	questions []model.Question
	err       error
}

func fetchQuestions(provider bank.Provider, qType string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		questions, err := provider.FetchQuestions(ctx, qType)
		return questionsMsg{questions: questions, err: err}
	}
}

func contentWidthFor(width int) int {
	if width <= 0 {
		return 80
	}
	contentWidth := int(float64(width) * 0.70)
	if contentWidth < 20 {
		contentWidth = min(width, 20)
	}
	return max(contentWidth, 1)
}

// frame centers content in the window and pins footer to the last line.
func frame(width, height int, content, footer string) string {
	if width == 0 || height == 0 {
		if footer == "" {
			return content
		}
		return content + "\n\n" + footer
	}
	if footer == "" || height < 3 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(width, height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func renderError(err error, width int) string {
	msg := bank.UserMessage(err)
	return incorrectStyle.Render("Something went wrong") + "\n\n" +
		wrapText(msg, width, textStyle) + "\n\n" +
		footerStyle.Render("r: retry  q: quit")
}

// optionKey maps a key press to an option id of q. True/false cards also
// accept t/f and the arrow keys, right meaning true.
func optionKey(q model.Question, key string) (string, bool) {
	if q.Type == model.TypeRapidFire || len(q.Options) == 0 {
		switch key {
		case "t", "right", "l":
			return model.OptionTrue, true
		case "f", "left", "h":
			return model.OptionFalse, true
		}
	}
	if len(q.Options) == 0 {
		switch key {
		case "a":
			return model.OptionTrue, true
		case "b":
			return model.OptionFalse, true
		}
		return "", false
	}
	for _, opt := range q.Options {
		if strings.EqualFold(opt.ID, key) {
			return opt.ID, true
		}
	}
	return "", false
}

// renderOptions lists answer choices. After an answer the correct option and
// a wrong pick are highlighted.
func renderOptions(q model.Question, selected, picked string, width int) string {
	options := q.Options
	if len(options) == 0 {
		options = []model.Option{
			{ID: model.OptionTrue, Text: "True"},
			{ID: model.OptionFalse, Text: "False"},
		}
	}
	lines := make([]string, 0, len(options))
	for _, opt := range options {
		style := textStyle
		switch {
		case picked != "" && opt.ID == q.CorrectOption:
			style = correctStyle
		case picked != "" && opt.ID == picked:
			style = incorrectStyle
		case picked == "" && opt.ID == selected:
			style = selectedStyle
		}
		label := fmt.Sprintf("%s. ", opt.ID)
		lines = append(lines, wrapHanging(label, opt.Text, width, accentStyle, style))
	}
	return strings.Join(lines, "\n")
}

func correctAnswerText(q model.Question) string {
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

func optionIndex(q model.Question, id string) int {
	for i, opt := range q.Options {
		if opt.ID == id {
			return i
		}
	}
	return 0
}

// moveSelection steps the highlighted option by delta, wrapping around.
func moveSelection(q model.Question, selected string, delta int) string {
	if len(q.Options) == 0 {
		if selected == model.OptionTrue {
			return model.OptionFalse
		}
		return model.OptionTrue
	}
	count := len(q.Options)
	idx := (optionIndex(q, selected) + delta + count) % count
	return q.Options[idx].ID
}

func firstOption(q model.Question) string {
	if len(q.Options) == 0 {
		return model.OptionTrue
	}
	return q.Options[0].ID
}

func formatClock(seconds int) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
