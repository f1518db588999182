// Package main provides the CLI entrypoint for rapiddent.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/rapiddent/internal/applog"
	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/config"
	"github.com/verte-zerg/rapiddent/internal/exam"
	"github.com/verte-zerg/rapiddent/internal/generator"
	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/progress"
	"github.com/verte-zerg/rapiddent/internal/stats"
	"github.com/verte-zerg/rapiddent/internal/statsui"
	"github.com/verte-zerg/rapiddent/internal/store"
	"github.com/verte-zerg/rapiddent/internal/tui"
)

const (
	sourceSQLite   = "sqlite"
	sourcePostgres = "postgres"

	defaultCurveWindow = 5
	setupTimeout       = 30 * time.Second
	syncTimeout        = 2 * time.Minute
)

var (
	globalSource string
	globalConfig string
	globalDB     string
	globalDebug  bool

	practiceReview bool
	practiceLimit  int

	examQuestions int
	examDuration  time.Duration
	examPass      int
	examType      string

	dashboardLast        int
	dashboardCurveWindow int
	dashboardPlain       bool

	syncURL string

	resetYes bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rapiddent",
		Short:         "Dental exam trainer: rapid fire cards, clinical scenarios and mock exams",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&globalSource, "source", sourceSQLite, "question bank source: sqlite or postgres")
	rootCmd.PersistentFlags().StringVar(&globalConfig, "config", "", "config file (default: $XDG_CONFIG_HOME/rapiddent/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalDB, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "log debug records")

	rootCmd.Flags().BoolVar(&practiceReview, "review", false, "practice only questions that need review")
	rootCmd.Flags().IntVar(&practiceLimit, "limit", 0, "cards per round (0: whole deck)")

	rootCmd.AddCommand(newScenarioCmd())
	rootCmd.AddCommand(newExamCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// app holds the resources shared by every command.
type app struct {
	cfg      config.FileConfig
	logger   *slog.Logger
	logFile  io.Closer
	store    *store.Store
	provider bank.Provider
	pg       *bank.PostgresProvider
	progress *progress.Store
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfgPath := globalConfig
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	fileCfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.LoadEnv(&fileCfg, ".env", config.DefaultEnvPath()); err != nil {
		return nil, err
	}
	applyStringConfig(cmd, "source", &globalSource, fileCfg.Bank.Source)
	applyBoolConfig(cmd, "debug", &globalDebug, fileCfg.Log.Debug)
	if err := validateSource(globalSource); err != nil {
		return nil, err
	}

	a := &app{cfg: fileCfg}
	logger, logFile, err := applog.Open(config.DefaultLogPath(), globalDebug)
	if err != nil {
		logErrf("failed to open log file: %v\n", err)
		logger = applog.Discard()
	}
	a.logger = logger
	a.logFile = logFile

	dbPath := globalDB
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	a.store = st
	a.progress = progress.New(st, logger)

	switch globalSource {
	case sourcePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		pg, err := bank.OpenPostgres(ctx, stringValue(fileCfg.Bank.DSN), logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open postgres bank: %w", err)
		}
		a.pg = pg
		a.provider = pg
	default:
		a.provider = bank.NewLocalProvider(st)
	}
	logger.Debug("app ready", "command", cmd.Name(), "source", globalSource, "db", dbPath)
	return a, nil
}

func (a *app) Close() {
	if a.pg != nil {
		a.pg.Close()
	}
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
	if a.logFile != nil {
		if cerr := a.logFile.Close(); cerr != nil {
			// Best-effort close of the log file.
			_ = cerr
		}
	}
}

func runProgram(m tea.Model, what string) error {
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run %s: %w", what, err)
	}
	return nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	applyBoolConfig(cmd, "review", &practiceReview, a.cfg.Practice.Review)
	applyIntConfig(cmd, "limit", &practiceLimit, a.cfg.Practice.Limit)
	if practiceLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}

	cfg := model.PracticeConfig{Review: practiceReview, Limit: practiceLimit}
	m := tui.NewPracticeModel(a.provider, a.progress, generator.New(), cfg, a.logger)
	unsubscribe := a.progress.Subscribe(m.OnProgress)
	defer unsubscribe()
	return runProgram(m, "practice TUI")
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Work through a random clinical scenario",
		Args:  cobra.NoArgs,
		RunE:  runScenarioCmd,
	}
}

func runScenarioCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	m := tui.NewScenarioModel(a.provider, a.progress, generator.New(), a.logger)
	return runProgram(m, "scenario TUI")
}

func newExamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Take a timed mock exam",
		Args:  cobra.NoArgs,
		RunE:  runExamCmd,
	}
	cmd.Flags().IntVar(&examQuestions, "questions", exam.DefaultQuestions, "number of questions")
	cmd.Flags().DurationVar(&examDuration, "duration", exam.DefaultDuration, "time limit")
	cmd.Flags().IntVar(&examPass, "pass", exam.DefaultPassPercent, "pass mark in percent")
	cmd.Flags().StringVar(&examType, "type", "rapid", "question type: rapid, scenario or all")
	return cmd
}

func runExamCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	applyIntConfig(cmd, "questions", &examQuestions, a.cfg.Exam.Questions)
	applyIntConfig(cmd, "pass", &examPass, a.cfg.Exam.PassPercent)
	applyStringConfig(cmd, "type", &examType, a.cfg.Exam.QuestionType)
	if err := applyDurationConfig(cmd, "duration", &examDuration, a.cfg.Exam.Duration); err != nil {
		return err
	}
	qType, err := questionType(examType)
	if err != nil {
		return err
	}
	cfg := model.ExamConfig{
		Questions:    examQuestions,
		Duration:     examDuration,
		PassPercent:  examPass,
		QuestionType: qType,
	}
	if err := validateExamConfig(cfg); err != nil {
		return err
	}

	m := tui.NewExamModel(a.provider, a.store, generator.New(), cfg, a.logger)
	return runProgram(m, "exam TUI")
}

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"stats"},
		Short:   "Show progress and exam history",
		Args:    cobra.NoArgs,
		RunE:    runDashboardCmd,
	}
	cmd.Flags().IntVar(&dashboardLast, "last", 0, "limit exam history to last N attempts")
	cmd.Flags().IntVar(&dashboardCurveWindow, "curve-window", defaultCurveWindow, "moving average window for the exam curve")
	cmd.Flags().BoolVar(&dashboardPlain, "plain", false, "print to stdout instead of opening the dashboard")
	return cmd
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	if dashboardLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if dashboardCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	passPercent := exam.DefaultPassPercent
	if a.cfg.Exam.PassPercent != nil {
		passPercent = *a.cfg.Exam.PassPercent
	}
	cfg := model.StatsConfig{LastAttempts: dashboardLast, CurveWindow: dashboardCurveWindow}

	if dashboardPlain {
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		report, err := stats.BuildReport(ctx, a.store, a.provider, a.progress, cfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return writePlainReport(cmd.OutOrStdout(), report, cfg, passPercent)
	}

	deps := statsui.Deps{Attempts: a.store, Provider: a.provider, Progress: a.progress, Logger: a.logger}
	return runProgram(statsui.NewModel(deps, cfg, passPercent), "dashboard TUI")
}

func writePlainReport(w io.Writer, report stats.Report, cfg model.StatsConfig, passPercent int) error {
	if err := stats.RenderSummary(w, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(report.Breakdown) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderBreakdown(w, report.Breakdown); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if len(report.NeedsReview) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderQuestionTable(w, "Needs Review", report.NeedsReview); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if len(report.MostMissed) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderMostMissed(w, report.MostMissed); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if len(report.Attempts) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderExamCurve(w, report.Attempts, cfg.CurveWindow, passPercent); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON or YAML question bank file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	bundle, err := bank.LoadFile(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	return importBundle(ctx, cmd.OutOrStdout(), a, bundle, args[0])
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download a remote question bank and import it",
		Args:  cobra.NoArgs,
		RunE:  runSyncCmd,
	}
	cmd.Flags().StringVar(&syncURL, "url", "", "bank file URL (default: [bank] url or "+config.EnvBankURL+")")
	return cmd
}

func runSyncCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	applyStringConfig(cmd, "url", &syncURL, a.cfg.Bank.URL)
	if strings.TrimSpace(syncURL) == "" {
		return fmt.Errorf("no bank URL: pass --url or set [bank] url")
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	dl, err := bank.DownloadBank(ctx, syncURL, config.DefaultBankCacheDir())
	if err != nil {
		return fmt.Errorf("failed to download bank: %w", err)
	}
	if dl.Stale {
		logErrf("warning: could not reach %s, importing cached copy %s\n", syncURL, dl.Path)
		a.logger.Warn("using cached bank", "url", syncURL, "path", dl.Path)
	}
	bundle, err := bank.LoadFile(dl.Path)
	if err != nil {
		return err
	}
	return importBundle(ctx, cmd.OutOrStdout(), a, bundle, syncURL)
}

func importBundle(ctx context.Context, out io.Writer, a *app, bundle bank.Bundle, origin string) error {
	var (
		report bank.ImportReport
		err    error
	)
	if a.pg != nil {
		report, err = a.pg.Publish(ctx, bundle)
	} else {
		report, err = bank.Import(ctx, a.store, bundle, a.logger)
	}
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", origin, err)
	}
	a.logger.Info("bank imported", "origin", origin, "source", globalSource,
		"questions", report.Questions, "scenarios", report.Scenarios, "rejected", len(report.Rejected))
	for _, rejected := range report.Rejected {
		logErrf("skipped: %v\n", rejected)
	}
	if _, err := fmt.Fprintf(out, "Imported %d questions and %d scenarios from %s (%d skipped)\n",
		report.Questions, report.Scenarios, origin, len(report.Rejected)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if a.pg != nil {
		return nil
	}
	rapid, err := a.store.CountQuestions(ctx, model.TypeRapidFire)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	scenario, err := a.store.CountQuestions(ctx, model.TypeScenario)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if _, err := fmt.Fprintf(out, "Bank now holds %d rapid fire and %d scenario questions\n", rapid, scenario); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear practice progress (exam history is kept)",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetYes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if !resetYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
			fmt.Sprintf("Reset %d answered questions? [y/N] ", a.progress.CompletedCount()))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return resetProgress(cmd.OutOrStdout(), a.progress)
}

// resetProgress clears progress; the store logs the reset itself.
func resetProgress(out io.Writer, prog *progress.Store) error {
	prog.Reset()
	if _, err := fmt.Fprintln(out, "Progress cleared."); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, fmt.Errorf("failed to write output: %w", err)
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := globalConfig
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	if cmd.Flags().Changed(name) {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid exam duration %q in config: %w", *value, err)
	}
	*target = d
	return nil
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# rapiddent configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# review = false          # Practice only questions that need review
# limit = 0               # Cards per round (0: whole deck)

[exam]
# questions = %d          # Questions per mock exam
# duration = %q        # Time limit
# pass = %d               # Pass mark in percent
# type = "rapid"          # rapid, scenario or all

[bank]
# source = %q         # sqlite or postgres
# dsn = ""                # Postgres DSN, or set %s
# url = ""                # Remote bank file for "rapiddent sync", or set %s

[log]
# debug = false           # Log debug records to %s
`,
		exam.DefaultQuestions,
		exam.DefaultDuration.String(),
		exam.DefaultPassPercent,
		sourceSQLite,
		config.EnvBankDSN,
		config.EnvBankURL,
		config.DefaultLogPath(),
	)
}

func validateSource(source string) error {
	switch source {
	case sourceSQLite, sourcePostgres:
		return nil
	}
	return fmt.Errorf("--source must be %q or %q", sourceSQLite, sourcePostgres)
}

func questionType(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rapid", "rapid_fire", "rapid-fire":
		return model.TypeRapidFire, nil
	case "scenario":
		return model.TypeScenario, nil
	case "all", "":
		return "", nil
	}
	return "", fmt.Errorf("--type must be rapid, scenario or all")
}

func validateExamConfig(cfg model.ExamConfig) error {
	if cfg.Questions <= 0 {
		return fmt.Errorf("--questions must be > 0")
	}
	if cfg.Duration < time.Second {
		return fmt.Errorf("--duration must be at least 1s")
	}
	if cfg.PassPercent <= 0 || cfg.PassPercent > 100 {
		return fmt.Errorf("--pass must be between 1 and 100")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
