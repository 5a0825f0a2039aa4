package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ANALYSIS_BATCH_SIZE", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Analysis.BatchSize != 5 {
		t.Errorf("expected batch size 5 from env, got %d", cfg.Analysis.BatchSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9090
analysis:
  batch_size: 4
  backoff_unit: 500ms
download:
  max_images: 20
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"port from file", cfg.Server.Port, 9090},
		{"batch size from file", cfg.Analysis.BatchSize, 4},
		{"backoff from file", cfg.Analysis.BackoffUnit, 500 * time.Millisecond},
		{"max images from file", cfg.Download.MaxImages, 20},
		{"default attempts", cfg.Analysis.MaxAttempts, 3},
		{"default batch timeout", cfg.Analysis.BatchTimeout, 60 * time.Second},
		{"default pacing", cfg.Download.Pacing, 500 * time.Millisecond},
		{"default model", cfg.VLM.Model, "gpt-4o"},
		{"default max tokens", cfg.VLM.MaxTokens, 1000},
		{"default storage", cfg.Storage.Type, "local"},
		{"default retention", cfg.Jobs.Retention, 24 * time.Hour},
		{"default liveness", cfg.Inspiration.LivenessTimeout, 3 * time.Second},
		{"default buffer", cfg.Progress.BufferSize, 32},
		{"library disabled", cfg.Sources.Library.Enabled, false},
		{"default library path", cfg.Sources.Library.Path, "./data/library"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}
}

func TestLoadSecretsFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  mode: release\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("UNSPLASH_API_KEY", "unsplash-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.VLM.APIKey != "sk-test" {
		t.Errorf("expected vlm key from env, got %q", cfg.VLM.APIKey)
	}
	if cfg.Sources.Unsplash.APIKey != "unsplash-key" {
		t.Errorf("expected unsplash key from env, got %q", cfg.Sources.Unsplash.APIKey)
	}
	if cfg.Inspiration.APIKey != "gemini-key" {
		t.Errorf("expected gemini key from env, got %q", cfg.Inspiration.APIKey)
	}
}

func TestDatabaseDSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/x.db"}
	if got := sqlite.DSN(); got != "./data/x.db" {
		t.Errorf("expected sqlite path, got %q", got)
	}

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := pg.DSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
