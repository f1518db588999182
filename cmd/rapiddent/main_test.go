package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/rapiddent/internal/applog"
	"github.com/verte-zerg/rapiddent/internal/config"
	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/progress"
	"github.com/verte-zerg/rapiddent/internal/stats"
	"github.com/verte-zerg/rapiddent/internal/store"
)

var commentedKey = regexp.MustCompile(`(?m)^# ([a-z]+ = )`)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	uncommented := commentedKey.ReplaceAllString(defaultConfigTemplate(), "$1")
	var cfg config.FileConfig
	if _, err := toml.Decode(uncommented, &cfg); err != nil {
		t.Fatalf("decode uncommented template: %v\n%s", err, uncommented)
	}
	if cfg.Exam.Questions == nil || *cfg.Exam.Questions != 30 {
		t.Fatalf("unexpected exam questions: %v", cfg.Exam.Questions)
	}
	if cfg.Exam.Duration == nil {
		t.Fatalf("expected exam duration")
	}
	if d, err := time.ParseDuration(*cfg.Exam.Duration); err != nil || d != 15*time.Minute {
		t.Fatalf("unexpected duration %q: %v", *cfg.Exam.Duration, err)
	}
	if cfg.Bank.Source == nil || *cfg.Bank.Source != sourceSQLite {
		t.Fatalf("unexpected source: %v", cfg.Bank.Source)
	}

	// As shipped every key is commented out.
	if _, err := toml.Decode(defaultConfigTemplate(), &config.FileConfig{}); err != nil {
		t.Fatalf("decode template: %v", err)
	}
}

func TestApplyConfigRespectsChangedFlags(t *testing.T) {
	var questions int
	var duration time.Duration
	cmd := &cobra.Command{Use: "exam"}
	cmd.Flags().IntVar(&questions, "questions", 30, "")
	cmd.Flags().DurationVar(&duration, "duration", 15*time.Minute, "")
	if err := cmd.Flags().Parse([]string{"--questions", "10"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	fromFile := 50
	applyIntConfig(cmd, "questions", &questions, &fromFile)
	if questions != 10 {
		t.Fatalf("flag should win over config, got %d", questions)
	}

	fileDuration := "20m"
	if err := applyDurationConfig(cmd, "duration", &duration, &fileDuration); err != nil {
		t.Fatalf("apply duration: %v", err)
	}
	if duration != 20*time.Minute {
		t.Fatalf("config should fill unset flag, got %s", duration)
	}
	bad := "soon"
	if err := applyDurationConfig(cmd, "duration", &duration, &bad); err == nil {
		t.Fatalf("expected invalid duration error")
	}
}

func TestQuestionType(t *testing.T) {
	cases := map[string]string{
		"rapid":      model.TypeRapidFire,
		"RAPID_FIRE": model.TypeRapidFire,
		"scenario":   model.TypeScenario,
		"all":        "",
	}
	for in, want := range cases {
		got, err := questionType(in)
		if err != nil || got != want {
			t.Fatalf("questionType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := questionType("essay"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestValidateExamConfig(t *testing.T) {
	ok := model.ExamConfig{Questions: 30, Duration: 15 * time.Minute, PassPercent: 75}
	if err := validateExamConfig(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []model.ExamConfig{
		{Questions: 0, Duration: time.Minute, PassPercent: 75},
		{Questions: 5, Duration: 0, PassPercent: 75},
		{Questions: 5, Duration: time.Minute, PassPercent: 101},
	}
	for _, cfg := range bad {
		if err := validateExamConfig(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
	if err := validateSource("mongo"); err == nil {
		t.Fatalf("expected source error")
	}
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	yes, err := confirm(strings.NewReader("Yes\n"), &out, "Reset? ")
	if err != nil || !yes {
		t.Fatalf("expected yes, got %v %v", yes, err)
	}
	if out.String() != "Reset? " {
		t.Fatalf("unexpected prompt: %q", out.String())
	}
	no, err := confirm(strings.NewReader(""), &out, "Reset? ")
	if err != nil || no {
		t.Fatalf("empty input should decline, got %v %v", no, err)
	}
}

func TestWritePlainReportWithoutHistory(t *testing.T) {
	var buf bytes.Buffer
	report := stats.Report{}
	if err := writePlainReport(&buf, report, model.StatsConfig{CurveWindow: 5}, 75); err != nil {
		t.Fatalf("write report: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No exam attempts yet.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestResetProgressLogsOnce(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "rapiddent.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	var logs bytes.Buffer
	prog := progress.New(st, applog.New(&logs, false))
	prog.MarkAnswered("q1", false)

	var out bytes.Buffer
	if err := resetProgress(&out, prog); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if prog.CompletedCount() != 0 || prog.WrongCount() != 0 {
		t.Fatalf("expected empty progress")
	}
	if got := strings.Count(logs.String(), `"msg":"progress reset"`); got != 1 {
		t.Fatalf("expected one reset record, got %d:\n%s", got, logs.String())
	}
	if out.String() != "Progress cleared.\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
