package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.InputDir != "data/newdata" {
		t.Errorf("InputDir = %q", cfg.InputDir)
	}
	if cfg.OutputDir != "data/output" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.AlertThreshold != 0.65 {
		t.Errorf("AlertThreshold = %v, want 0.65", cfg.AlertThreshold)
	}
	if cfg.ConfidenceFloor != 0.55 {
		t.Errorf("ConfidenceFloor = %v, want 0.55", cfg.ConfidenceFloor)
	}
	if cfg.IndexPattern != "rtarf-events-beat-*" {
		t.Errorf("IndexPattern = %q", cfg.IndexPattern)
	}
	if cfg.FetchWindow != 15*time.Minute {
		t.Errorf("FetchWindow = %v, want 15m", cfg.FetchWindow)
	}
	if cfg.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", cfg.Workers)
	}
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("RAMPART_ALERT_THRESHOLD", "0.8")
	t.Setenv("RAMPART_INPUT_DIR", "/var/lib/rampart/in")
	t.Setenv("RAMPART_FETCH_WINDOW_MIN", "60")
	t.Setenv("RAMPART_DEBUG", "true")
	t.Setenv("RAMPART_WORKERS", "100000")

	cfg := New()
	if cfg.AlertThreshold != 0.8 {
		t.Errorf("AlertThreshold = %v, want 0.8", cfg.AlertThreshold)
	}
	if cfg.InputDir != "/var/lib/rampart/in" {
		t.Errorf("InputDir = %q", cfg.InputDir)
	}
	if cfg.FetchWindow != time.Hour {
		t.Errorf("FetchWindow = %v, want 1h", cfg.FetchWindow)
	}
	if !cfg.Debug {
		t.Error("Debug not enabled")
	}
	if cfg.Workers != 256 {
		t.Errorf("Workers = %d, want clamped to 256", cfg.Workers)
	}
}

func TestKibanaFallbacks(t *testing.T) {
	t.Setenv("KIBANA_URL", "https://es.internal:9200")
	t.Setenv("KIBANA_USER", "elastic")

	cfg := New()
	if cfg.ElasticURL != "https://es.internal:9200" {
		t.Errorf("ElasticURL = %q, want legacy KIBANA_URL honored", cfg.ElasticURL)
	}
	if cfg.ElasticUser != "elastic" {
		t.Errorf("ElasticUser = %q", cfg.ElasticUser)
	}

	t.Run("prefixed variable wins", func(t *testing.T) {
		t.Setenv("RAMPART_ES_URL", "https://other:9200")
		if got := New().ElasticURL; got != "https://other:9200" {
			t.Errorf("ElasticURL = %q, want prefixed override", got)
		}
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"threshold above one", func(c *Config) { c.AlertThreshold = 1.5 }, true},
		{"threshold negative", func(c *Config) { c.AlertThreshold = -0.1 }, true},
		{"floor above one", func(c *Config) { c.ConfidenceFloor = 2 }, true},
		{"floor above threshold is allowed", func(c *Config) {
			c.AlertThreshold = 0.40
			c.ConfidenceFloor = 0.55
		}, false},
		{"empty model path", func(c *Config) { c.ModelPath = "" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tc.wantErr)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "value")
	t.Setenv("X_BOOL", "true")
	t.Setenv("X_BOOL_BAD", "maybe")
	t.Setenv("X_FLOAT", "0.75")
	t.Setenv("X_INT", "42")
	t.Setenv("X_INT_BAD", "forty-two")

	if got := GetEnv("X_STR", "d"); got != "value" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("X_UNSET", "d"); got != "d" {
		t.Errorf("GetEnv default = %q", got)
	}
	if !GetEnvBool("X_BOOL", false) {
		t.Error("GetEnvBool did not parse true")
	}
	if GetEnvBool("X_BOOL_BAD", false) {
		t.Error("GetEnvBool should fall back on unparseable value")
	}
	if got := GetEnvFloat("X_FLOAT", 0); got != 0.75 {
		t.Errorf("GetEnvFloat = %v", got)
	}
	if got := GetEnvInt("X_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %v", got)
	}
	if got := GetEnvInt("X_INT_BAD", 7); got != 7 {
		t.Errorf("GetEnvInt fallback = %v", got)
	}
}
