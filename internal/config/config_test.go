package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.TickInterval != 15*time.Minute {
		t.Errorf("expected 15m tick interval, got %s", cfg.TickInterval)
	}
	if cfg.TickWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.TickWorkers)
	}
	if cfg.PushDriver != PushDriverLog {
		t.Errorf("expected log push driver by default, got %q", cfg.PushDriver)
	}
	if cfg.AIEnabled {
		t.Error("AI should be disabled without an API key")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TICK_INTERVAL", "5m")
	t.Setenv("TICK_WORKERS", "2")
	t.Setenv("PUSH_DRIVER", "sns")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.TickInterval != 5*time.Minute {
		t.Errorf("expected 5m interval, got %s", cfg.TickInterval)
	}
	if cfg.TickWorkers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.TickWorkers)
	}
	if cfg.PushDriver != PushDriverSNS {
		t.Errorf("expected sns driver, got %q", cfg.PushDriver)
	}
	if cfg.SQSRegion != "eu-west-1" {
		t.Errorf("SQS region should default to AWS region, got %q", cfg.SQSRegion)
	}
	if !cfg.AIEnabled {
		t.Error("API key should enable AI")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":          "not-a-port",
		"TICK_INTERVAL": "soon",
		"TICK_WORKERS":  "-1",
		"PUSH_DRIVER":   "carrier-pigeon",
	}

	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", key, val)
			}
		})
	}
}
