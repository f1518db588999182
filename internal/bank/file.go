package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/rapiddent/internal/model"
)

// Bundle is the content of a bank file.
type Bundle struct {
	Questions []Document
	Scenarios []Document
}

type bankFile struct {
	Questions []map[string]any `json:"questions" yaml:"questions"`
	Scenarios []map[string]any `json:"scenarios" yaml:"scenarios"`
}

// Format names accepted by Decode.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatForPath derives the bank file format from its extension.
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported bank file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads a JSON or YAML bank file.
func LoadFile(path string) (Bundle, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return Bundle{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return Bundle{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()
	bundle, err := Decode(file, format)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return bundle, nil
}

// Decode reads a bank file in the given format.
func Decode(r io.Reader, format string) (Bundle, error) {
	var raw bankFile
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return Bundle{}, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return Bundle{}, err
		}
	default:
		return Bundle{}, fmt.Errorf("unsupported bank file format %q", format)
	}
	bundle := Bundle{
		Questions: make([]Document, 0, len(raw.Questions)),
		Scenarios: make([]Document, 0, len(raw.Scenarios)),
	}
	for _, data := range raw.Questions {
		bundle.Questions = append(bundle.Questions, NewDocument(data))
	}
	for _, data := range raw.Scenarios {
		bundle.Scenarios = append(bundle.Scenarios, NewDocument(data))
	}
	return bundle, nil
}

// Sink receives parsed bank records.
type Sink interface {
	UpsertQuestions(ctx context.Context, questions []model.Question) error
	UpsertScenarios(ctx context.Context, scenarios []model.Scenario) error
}

// ImportReport summarizes an import.
type ImportReport struct {
	Questions int
	Scenarios int
	Rejected  []error
}

// Import parses a bundle and writes the valid records to sink. Malformed
// records are reported, not fatal.
func Import(ctx context.Context, sink Sink, bundle Bundle, logger *slog.Logger) (ImportReport, error) {
	questions, rejectedQuestions := ParseQuestions(bundle.Questions, logger)
	scenarios, rejectedScenarios := ParseScenarios(bundle.Scenarios, logger)
	if err := sink.UpsertScenarios(ctx, scenarios); err != nil {
		return ImportReport{}, fmt.Errorf("failed to store scenarios: %w", err)
	}
	if err := sink.UpsertQuestions(ctx, questions); err != nil {
		return ImportReport{}, fmt.Errorf("failed to store questions: %w", err)
	}
	return ImportReport{
		Questions: len(questions),
		Scenarios: len(scenarios),
		Rejected:  append(rejectedQuestions, rejectedScenarios...),
	}, nil
}
