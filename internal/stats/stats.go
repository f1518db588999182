// Package stats contains progress and exam statistics and their text rendering.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/progress"
)

const sparkChars = " .:-=+*#%@"

// ProgressSummary condenses the practice progress sets.
type ProgressSummary struct {
	Completed   int
	Correct     int
	NeedsReview int
	// Accuracy is the share of completed questions not needing review.
	Accuracy float64
}

// SummarizeProgress derives counts from a progress snapshot.
func SummarizeProgress(snap progress.Snapshot) ProgressSummary {
	summary := ProgressSummary{
		Completed:   snap.CompletedCount(),
		Correct:     snap.CorrectCount(),
		NeedsReview: snap.WrongCount(),
	}
	if summary.Completed > 0 {
		summary.Accuracy = float64(summary.Correct) / float64(summary.Completed)
	}
	return summary
}

// ExamSummary condenses the mock exam history.
type ExamSummary struct {
	Attempts    int
	Passed      int
	PassRate    float64
	AvgPercent  float64
	BestPercent int
	Last        model.ExamAttempt
}

// SummarizeExams derives metrics from attempts in chronological order.
func SummarizeExams(attempts []model.ExamAttempt) ExamSummary {
	summary := ExamSummary{Attempts: len(attempts)}
	if len(attempts) == 0 {
		return summary
	}
	var total float64
	for _, a := range attempts {
		total += float64(a.Percentage)
		if a.Passed {
			summary.Passed++
		}
		if a.Percentage > summary.BestPercent {
			summary.BestPercent = a.Percentage
		}
	}
	count := float64(len(attempts))
	summary.AvgPercent = total / count
	summary.PassRate = float64(summary.Passed) / count
	summary.Last = attempts[len(attempts)-1]
	return summary
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for percentages.
func Sparkline(values []float64) string {
	var b strings.Builder
	top := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round(math.Max(0, math.Min(100, v)) / 100 * float64(top)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func percentages(attempts []model.ExamAttempt) []float64 {
	out := make([]float64, len(attempts))
	for i, a := range attempts {
		out[i] = float64(a.Percentage)
	}
	return out
}

// RenderSummary prints the progress and exam summaries.
func RenderSummary(w io.Writer, report Report) error {
	p := report.Progress
	lines := []string{
		"Progress",
		fmt.Sprintf("Completed: %d", p.Completed),
		fmt.Sprintf("Correct: %d", p.Correct),
		fmt.Sprintf("Needs review: %d", p.NeedsReview),
		fmt.Sprintf("Accuracy: %.2f%%", p.Accuracy*100),
		"",
		"Mock Exams",
	}
	e := report.Exams
	if e.Attempts == 0 {
		lines = append(lines, "No exam attempts yet.")
	} else {
		verdict := "failed"
		if e.Last.Passed {
			verdict = "passed"
		}
		lines = append(lines,
			fmt.Sprintf("Attempts: %d", e.Attempts),
			fmt.Sprintf("Average: %.2f%%", e.AvgPercent),
			fmt.Sprintf("Best: %d%%", e.BestPercent),
			fmt.Sprintf("Pass rate: %.2f%%", e.PassRate*100),
			fmt.Sprintf("Last: %d%% (%s, %s) %s", e.Last.Percentage, verdict, e.Last.FinishReason, e.Last.EndedAt.Local().Format("2006-01-02 15:04")),
			fmt.Sprintf("Trend: %s", Sparkline(percentages(report.Attempts))),
		)
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderExamCurve prints exam percentages with their moving average.
func RenderExamCurve(w io.Writer, attempts []model.ExamAttempt, window, passPercent int) error {
	return RenderExamCurveWithSize(w, attempts, window, passPercent, 0, defaultPlotHeight, false)
}

// RenderExamCurveWithSize prints the exam curve sized to a given total width.
func RenderExamCurveWithSize(w io.Writer, attempts []model.ExamAttempt, window, passPercent, totalWidth, height int, useColor bool) error {
	if len(attempts) == 0 {
		return nil
	}
	scores := percentages(attempts)
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotPercentages(w, "Exam Scores", []Series{
		{Name: "Score", Values: scores},
		{Name: fmt.Sprintf("Average of %d", max(window, 1)), Values: MovingAverage(scores, window)},
	}, PlotOptions{Width: width, Height: height, Threshold: float64(passPercent), ForceColor: useColor})
}
