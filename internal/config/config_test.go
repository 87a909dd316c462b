package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"timed-quiz/internal/domain"
)

func TestLoadQuizSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  port: "9090"
banks:
  file: banks.yaml
quiz:
  durationSeconds: 240
  policy: sequential
  retention: drop
  optionCount: 5
  tickInterval: 500ms
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Banks.File != "banks.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	eng, err := cfg.Quiz.Engine()
	if err != nil {
		t.Fatalf("engine config: %v", err)
	}
	if eng.DurationSeconds != 240 || eng.Policy != domain.PolicySequential || eng.Retention != domain.DropCustom {
		t.Fatalf("unexpected engine config %+v", eng)
	}
	if eng.PassThreshold != 70 || eng.HintPenalty != 1 || eng.TickInterval != 500*time.Millisecond {
		t.Fatalf("expected defaults, got %+v", eng)
	}
	if cfg.Quiz.Options() != 5 {
		t.Fatalf("expected 5 options, got %d", cfg.Quiz.Options())
	}
}

func TestQuizDefaults(t *testing.T) {
	eng, err := QuizConfig{}.Engine()
	if err != nil {
		t.Fatalf("engine config: %v", err)
	}
	if eng.DurationSeconds != 1220 || eng.Policy != domain.PolicyRandom || eng.TickInterval != time.Second {
		t.Fatalf("unexpected defaults %+v", eng)
	}
	if (QuizConfig{}).Options() != 4 {
		t.Fatalf("expected 4 options by default")
	}
	if _, err := (QuizConfig{Policy: "shuffle"}).Engine(); err == nil {
		t.Fatalf("expected unknown policy to fail")
	}
	manual, err := QuizConfig{TickInterval: "0"}.Engine()
	if err != nil || manual.TickInterval != 0 {
		t.Fatalf("expected manual ticking, got %+v err=%v", manual, err)
	}
}

func TestQuizExplicitZeroes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `quiz:
  passThreshold: 0
  hintPenalty: 0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	eng, err := cfg.Quiz.Engine()
	if err != nil {
		t.Fatalf("engine config: %v", err)
	}
	if eng.PassThreshold != 0 || eng.HintPenalty != 0 {
		t.Fatalf("expected explicit zeroes to survive, got %+v", eng)
	}

	negative := -1
	if _, err := (QuizConfig{HintPenalty: &negative}).Engine(); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for negative penalty, got %v", err)
	}
}
