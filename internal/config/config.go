package config

import (
	"os"
	"time"

	"timed-quiz/internal/domain"
	"timed-quiz/internal/engine"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Banks struct {
		File string `yaml:"file"`
		TTL  string `yaml:"ttl"`
	} `yaml:"banks"`
	Quiz QuizConfig `yaml:"quiz"`
}

// QuizConfig holds session defaults. Omitted fields fall back to engine
// defaults; passThreshold and hintPenalty accept an explicit 0.
type QuizConfig struct {
	DurationSeconds int    `yaml:"durationSeconds"`
	PassThreshold   *int   `yaml:"passThreshold"`
	HintPenalty     *int   `yaml:"hintPenalty"`
	Policy          string `yaml:"policy"`
	Retention       string `yaml:"retention"`
	OptionCount     int    `yaml:"optionCount"`
	TickInterval    string `yaml:"tickInterval"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Engine converts the quiz section into a validated engine config.
func (q QuizConfig) Engine() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if q.DurationSeconds != 0 {
		cfg.DurationSeconds = q.DurationSeconds
	}
	if q.PassThreshold != nil {
		cfg.PassThreshold = *q.PassThreshold
	}
	if q.HintPenalty != nil {
		cfg.HintPenalty = *q.HintPenalty
	}
	if q.Policy != "" {
		cfg.Policy = domain.Policy(q.Policy)
	}
	if q.Retention != "" {
		cfg.Retention = domain.Retention(q.Retention)
	}
	if q.TickInterval == "0" {
		cfg.TickInterval = 0
	} else {
		cfg.TickInterval = TTLDuration(q.TickInterval, time.Second)
	}
	return cfg.Normalize()
}

// Options returns the number of options a custom choice question needs.
func (q QuizConfig) Options() int {
	if q.OptionCount >= 2 {
		return q.OptionCount
	}
	return engine.DefaultOptionCount
}
