package common

import (
	"errors"
	"testing"
	"time"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", "file:reports.db")
	t.Setenv("GCS_BUCKET", "site-audio")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadConfigDefaults(t *testing.T) {
	setValidEnv(t)
	cfg := LoadConfig()

	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.STT.Model != "whisper-1" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("models = %q / %q", cfg.STT.Model, cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", cfg.LLM.Temperature)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.QueueSize != 256 {
		t.Fatalf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Storage.UploadURLTTL != 15*time.Minute {
		t.Fatalf("upload ttl = %v", cfg.Storage.UploadURLTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("PIPELINE_WORKERS", "12")
	t.Setenv("STT_TIMEOUT", "30s")
	t.Setenv("LLM_TEMPERATURE", "bogus")

	cfg := LoadConfig()
	if cfg.Pipeline.Workers != 12 {
		t.Fatalf("workers = %d", cfg.Pipeline.Workers)
	}
	if cfg.STT.Timeout != 30*time.Second {
		t.Fatalf("stt timeout = %v", cfg.STT.Timeout)
	}
	// unparsable values fall back to the default
	if cfg.LLM.Temperature != 0 {
		t.Fatalf("temperature = %v", cfg.LLM.Temperature)
	}
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"missing bucket", func(c *Config) { c.Storage.Bucket = "" }},
		{"missing api keys", func(c *Config) { c.STT.APIKey = ""; c.LLM.APIKey = "" }},
		{"missing addr", func(c *Config) { c.Server.HTTPAddr = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setValidEnv(t)
			cfg := LoadConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}
