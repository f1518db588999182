package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/rapiddent/internal/model"
)

const questionColumnWidth = 60

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	measure := func(row []string) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	cells := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if rightAlignCols[i] {
			cells[i] = runewidth.FillLeft(cell, width)
		} else {
			cells[i] = runewidth.FillRight(cell, width)
		}
	}
	return strings.TrimRight(strings.Join(cells, " "), " ")
}

func writeTable(w io.Writer, title string, headers []string, rows [][]string, rightAlign map[int]bool) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// ShortText truncates question text to fit a table column.
func ShortText(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(text, width, "…")
}

// RenderQuestionTable prints questions with their type.
func RenderQuestionTable(w io.Writer, title string, questions []model.Question) error {
	if len(questions) == 0 {
		_, err := fmt.Fprintf(w, "%s\nNo questions.\n\n", title)
		return err
	}
	rows := make([][]string, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, []string{q.ID, TypeLabel(q.Type), ShortText(q.Text, questionColumnWidth)})
	}
	return writeTable(w, title, []string{"ID", "Type", "Question"}, rows, nil)
}

// RenderMostMissed prints the questions missed most often in exams.
func RenderMostMissed(w io.Writer, missed []MissedQuestion) error {
	if len(missed) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(missed))
	for _, m := range missed {
		rows = append(rows, []string{fmt.Sprintf("%d", m.Misses), m.ID, ShortText(m.Text, questionColumnWidth)})
	}
	return writeTable(w, "Most Missed in Exams", []string{"Misses", "ID", "Question"}, rows, map[int]bool{0: true})
}

// RenderBreakdown prints practice accuracy per question type.
func RenderBreakdown(w io.Writer, breakdown []TypeAccuracy) error {
	if len(breakdown) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(breakdown))
	for _, b := range breakdown {
		rows = append(rows, []string{
			TypeLabel(b.Type),
			fmt.Sprintf("%d", b.Answered),
			fmt.Sprintf("%d", b.Correct),
			fmt.Sprintf("%.2f%%", b.Accuracy*100),
		})
	}
	return writeTable(w, "By Question Type", []string{"Type", "Answered", "Correct", "Accuracy"}, rows,
		map[int]bool{1: true, 2: true, 3: true})
}

// TypeLabel returns a readable name for a question type.
func TypeLabel(qType string) string {
	switch qType {
	case model.TypeRapidFire:
		return "Rapid Fire"
	case model.TypeScenario:
		return "Scenario"
	case "":
		return "-"
	default:
		return qType
	}
}
