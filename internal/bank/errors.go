package bank

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the provider is unreachable or misconfigured.
	ErrDataUnavailable = errors.New("question data unavailable")
	// ErrNoData means a fetch returned nothing where content was expected.
	ErrNoData = errors.New("no data found")
)

// ParseError describes a fetched record that is missing required fields.
type ParseError struct {
	DocID  string
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	id := e.DocID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("parse %s: field %q: %s", id, e.Field, e.Reason)
}

// InsufficientQuestionsError is returned when an exam cannot meet its quota.
type InsufficientQuestionsError struct {
	Available int
	Required  int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("not enough questions available: need %d but only %d found", e.Required, e.Available)
}

// UserMessage returns a short, displayable description of err.
func UserMessage(err error) string {
	var insufficient *InsufficientQuestionsError
	var parseErr *ParseError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Not enough questions available. Need %d but only %d found.", insufficient.Required, insufficient.Available)
	case errors.Is(err, ErrNoData):
		return "No data found in the question bank."
	case errors.Is(err, ErrDataUnavailable):
		return "The question bank is unavailable. Check the bank source settings."
	case errors.As(err, &parseErr):
		return "Failed to parse data from the question bank."
	default:
		return err.Error()
	}
}
