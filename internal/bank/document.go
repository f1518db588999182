// Package bank provides the question and scenario provider.
package bank

import (
	"log/slog"
	"math"
	"strings"

	"github.com/verte-zerg/rapiddent/internal/model"
)

// Document is a loosely typed record as stored in a bank file or a remote
// document table. It never leaves this package unparsed.
type Document struct {
	ID   string
	Data map[string]any
}

// NewDocument builds a document, taking the id from the "id" field.
func NewDocument(data map[string]any) Document {
	id, _ := data["id"].(string)
	return Document{ID: strings.TrimSpace(id), Data: data}
}

// ParseQuestion converts a document into a question record.
func ParseQuestion(doc Document) (model.Question, error) {
	if doc.ID == "" {
		return model.Question{}, &ParseError{Field: "id", Reason: "missing"}
	}
	text, ok := stringField(doc.Data, "question_text")
	if !ok {
		return model.Question{}, missing(doc, "question_text")
	}
	qType, ok := stringField(doc.Data, "type")
	if !ok {
		return model.Question{}, missing(doc, "type")
	}
	explanation, ok := stringField(doc.Data, "explanation")
	if !ok {
		return model.Question{}, missing(doc, "explanation")
	}

	q := model.Question{
		ID:          doc.ID,
		Text:        text,
		Type:        qType,
		Explanation: explanation,
		Options:     parseOptions(doc.Data["options"]),
	}
	q.ScenarioID, _ = stringField(doc.Data, "scenario_id")
	q.ImageURL, _ = stringField(doc.Data, "image_url")

	if direct, ok := stringField(doc.Data, "correct_option"); ok && direct != "" {
		q.CorrectOption = direct
	} else {
		for _, opt := range q.Options {
			if opt.IsCorrect {
				q.CorrectOption = opt.ID
				break
			}
		}
	}
	if q.CorrectOption == "" {
		return model.Question{}, &ParseError{DocID: doc.ID, Field: "correct_option", Reason: "no correct option"}
	}
	if len(q.Options) > 0 {
		if _, ok := q.OptionByID(q.CorrectOption); !ok {
			return model.Question{}, &ParseError{DocID: doc.ID, Field: "correct_option", Reason: "does not match any option"}
		}
	}
	return q, nil
}

// parseOptions skips malformed and duplicate options.
func parseOptions(raw any) []model.Option {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	options := make([]model.Option, 0, len(items))
	seen := map[string]struct{}{}
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		id, okID := stringField(m, "id")
		text, okText := stringField(m, "text")
		isCorrect, okCorrect := m["is_correct"].(bool)
		if !okID || !okText || !okCorrect || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		options = append(options, model.Option{ID: id, Text: text, IsCorrect: isCorrect})
	}
	return options
}

// ParseScenario converts a document into a scenario record.
func ParseScenario(doc Document) (model.Scenario, error) {
	if doc.ID == "" {
		return model.Scenario{}, &ParseError{Field: "id", Reason: "missing"}
	}
	profile, ok := asMap(doc.Data["patient_profile"])
	if !ok {
		return model.Scenario{}, missing(doc, "patient_profile")
	}
	age, ok := intField(profile, "age")
	if !ok {
		return model.Scenario{}, missing(doc, "patient_profile.age")
	}
	gender, ok := stringField(profile, "gender")
	if !ok {
		return model.Scenario{}, missing(doc, "patient_profile.gender")
	}
	complaint, ok := stringField(profile, "chief_complaint")
	if !ok {
		return model.Scenario{}, missing(doc, "patient_profile.chief_complaint")
	}
	notes, ok := stringField(doc.Data, "clinical_notes")
	if !ok {
		return model.Scenario{}, missing(doc, "clinical_notes")
	}
	vitals, ok := stringField(profile, "vitals")
	if !ok {
		vitals, ok = stringField(doc.Data, "vitals")
	}
	if !ok {
		return model.Scenario{}, missing(doc, "vitals")
	}

	s := model.Scenario{
		ID:               doc.ID,
		PatientName:      "Patient",
		Age:              age,
		Gender:           gender,
		ChiefComplaint:   complaint,
		MedicalHistory:   model.JoinOrNone(stringList(profile["med_history"]), "\n"),
		Medications:      model.JoinOrNone(stringList(profile["medications"]), ", "),
		Allergies:        model.JoinOrNone(stringList(profile["allergies"]), ", "),
		ClinicalFindings: notes,
		VitalSigns:       vitals,
	}
	if name, ok := stringField(profile, "name"); ok && name != "" {
		s.PatientName = name
	}
	s.MediaURL, _ = stringField(doc.Data, "media_url")
	return s, nil
}

// ParseQuestions parses every document, dropping and logging malformed ones.
func ParseQuestions(docs []Document, logger *slog.Logger) ([]model.Question, []error) {
	return parseAll(docs, ParseQuestion, logger, "question")
}

// ParseScenarios parses every document, dropping and logging malformed ones.
func ParseScenarios(docs []Document, logger *slog.Logger) ([]model.Scenario, []error) {
	return parseAll(docs, ParseScenario, logger, "scenario")
}

func parseAll[T any](docs []Document, parse func(Document) (T, error), logger *slog.Logger, kind string) ([]T, []error) {
	out := make([]T, 0, len(docs))
	var rejected []error
	for _, doc := range docs {
		v, err := parse(doc)
		if err != nil {
			if logger != nil {
				logger.Warn("dropping malformed record", "kind", kind, "id", doc.ID, "error", err)
			}
			rejected = append(rejected, err)
			continue
		}
		out = append(out, v)
	}
	return out, rejected
}

func missing(doc Document, field string) error {
	return &ParseError{DocID: doc.ID, Field: field, Reason: "missing or wrong type"}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

func intField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
