package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Exam.Questions != nil {
		t.Fatalf("expected empty config")
	}
}

func TestLoadConfigTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[practice]
review = true

[exam]
questions = 20
duration = "10m"
pass = 80

[bank]
source = "postgres"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Practice.Review == nil || !*cfg.Practice.Review {
		t.Fatalf("expected review=true")
	}
	if cfg.Exam.Questions == nil || *cfg.Exam.Questions != 20 {
		t.Fatalf("unexpected questions: %v", cfg.Exam.Questions)
	}
	if cfg.Exam.Duration == nil || *cfg.Exam.Duration != "10m" {
		t.Fatalf("unexpected duration: %v", cfg.Exam.Duration)
	}
	if cfg.Exam.PassPercent == nil || *cfg.Exam.PassPercent != 80 {
		t.Fatalf("unexpected pass: %v", cfg.Exam.PassPercent)
	}
	if cfg.Bank.Source == nil || *cfg.Bank.Source != "postgres" {
		t.Fatalf("unexpected source: %v", cfg.Bank.Source)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[exam\nquestions = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadEnvOverridesBank(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("RAPIDDENT_BANK_URL=https://example.com/bank.json\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv(EnvBankDSN, "postgres://user@localhost/bank")
	t.Setenv(EnvBankURL, "")
	t.Setenv(EnvBankSource, "")
	// dotenv never overrides variables that already exist, even empty ones.
	_ = os.Unsetenv(EnvBankURL)
	_ = os.Unsetenv(EnvBankSource)

	var cfg FileConfig
	if err := LoadEnv(&cfg, envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if cfg.Bank.DSN == nil || *cfg.Bank.DSN != "postgres://user@localhost/bank" {
		t.Fatalf("expected dsn from environment, got %v", cfg.Bank.DSN)
	}
	if cfg.Bank.URL == nil || *cfg.Bank.URL != "https://example.com/bank.json" {
		t.Fatalf("expected url from dotenv, got %v", cfg.Bank.URL)
	}
}

func TestLoadEnvMalformedFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("RAPIDDENT-BANK-DSN postgres://user@localhost/bank\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	var cfg FileConfig
	err := LoadEnv(&cfg, envPath)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), envPath) {
		t.Fatalf("error should name the file: %v", err)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_STATE_HOME", "/state")
	if got := DefaultDBPath(); got != filepath.Join("/data", "rapiddent", "rapiddent.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "rapiddent", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/state", "rapiddent", "rapiddent.log") {
		t.Fatalf("unexpected log path %q", got)
	}
}
