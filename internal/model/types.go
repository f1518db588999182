// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// Question types stored in the bank.
const (
	TypeRapidFire = "RAPID_FIRE"
	TypeScenario  = "SCENARIO"
)

// True/false option ids used by two-option rapid fire questions.
const (
	OptionTrue  = "A"
	OptionFalse = "B"
)

// Option is a single answer choice of a question.
type Option struct {
	ID        string
	Text      string
	IsCorrect bool
}

// Question is a fully parsed question record.
type Question struct {
	ID            string
	Text          string
	Type          string
	CorrectOption string
	Explanation   string
	ScenarioID    string
	ImageURL      string
	Options       []Option
}

// IsCorrectAnswerTrue reports whether a true/false question expects "true".
func (q Question) IsCorrectAnswerTrue() bool {
	return q.CorrectOption == OptionTrue
}

// TrueFalseOption maps a true/false answer to its option id.
func (q Question) TrueFalseOption(answeredTrue bool) string {
	if answeredTrue {
		return OptionTrue
	}
	return OptionFalse
}

// OptionByID returns the option with the given id.
func (q Question) OptionByID(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Scenario is a clinical vignette linked to one or more questions.
type Scenario struct {
	ID               string
	PatientName      string
	Age              int
	Gender           string
	ChiefComplaint   string
	MedicalHistory   string
	Medications      string
	Allergies        string
	ClinicalFindings string
	VitalSigns       string
	MediaURL         string
}

// JoinOrNone joins list items or returns "None" for an empty list.
func JoinOrNone(items []string, sep string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, sep)
}

// PracticeConfig defines rapid fire practice settings.
type PracticeConfig struct {
	Review bool
	Limit  int
}

// ExamConfig defines mock exam settings.
type ExamConfig struct {
	Questions    int
	Duration     time.Duration
	PassPercent  int
	QuestionType string
}

// StatsConfig defines options for dashboard output.
type StatsConfig struct {
	LastAttempts int
	CurveWindow  int
}

// ExamAttempt is a persisted, finished mock exam.
type ExamAttempt struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time
	Score        int
	Total        int
	Percentage   int
	Passed       bool
	FinishReason string
	WrongIDs     []string
}
