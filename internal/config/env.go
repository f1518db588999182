package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the [bank] table.
const (
	EnvBankDSN    = "RAPIDDENT_BANK_DSN"
	EnvBankURL    = "RAPIDDENT_BANK_URL"
	EnvBankSource = "RAPIDDENT_BANK_SOURCE"
)

// LoadEnv loads dotenv files if they exist and applies bank overrides.
// Variables already present in the environment win over file values. A file
// that exists but cannot be parsed is an error.
func LoadEnv(cfg *FileConfig, paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	if v := os.Getenv(EnvBankDSN); v != "" {
		cfg.Bank.DSN = &v
	}
	if v := os.Getenv(EnvBankURL); v != "" {
		cfg.Bank.URL = &v
	}
	if v := os.Getenv(EnvBankSource); v != "" {
		cfg.Bank.Source = &v
	}
	return nil
}
