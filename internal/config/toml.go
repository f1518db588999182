// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Exam     ExamConfig     `toml:"exam"`
	Bank     BankConfig     `toml:"bank"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps rapid fire practice settings.
type PracticeConfig struct {
	Review *bool `toml:"review"`
	Limit  *int  `toml:"limit"`
}

// ExamConfig maps mock exam settings.
type ExamConfig struct {
	Questions    *int    `toml:"questions"`
	Duration     *string `toml:"duration"`
	PassPercent  *int    `toml:"pass"`
	QuestionType *string `toml:"type"`
}

// BankConfig maps question bank source settings.
type BankConfig struct {
	Source *string `toml:"source"`
	DSN    *string `toml:"dsn"`
	URL    *string `toml:"url"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Debug *bool `toml:"debug"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
