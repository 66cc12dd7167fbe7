package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"DETECTION_API_URL", "ALERT_POLL_INTERVAL", "OUTPUT_DIR", "METRICS_ADDR", "REQUEST_TIMEOUT", "MOCK_BACKEND_ADDR", "MOCK_MODEL_LOAD_DELAY"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.APIURL != "http://localhost:5000" {
		t.Fatalf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.AlertPollInterval != 30*time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.AlertPollInterval)
	}
	if cfg.OutputDir != "." || cfg.MetricsAddr != "" || cfg.MockBackendAddr != ":5000" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Fatalf("unexpected request timeout %v", cfg.RequestTimeout)
	}
	if cfg.MockModelLoadDelay != 0 {
		t.Fatalf("mock model should load immediately by default, got %v", cfg.MockModelLoadDelay)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DETECTION_API_URL", "http://detector:8000")
	t.Setenv("ALERT_POLL_INTERVAL", "5s")
	t.Setenv("METRICS_ADDR", ":9090")
	t.Setenv("MOCK_MODEL_LOAD_DELAY", "3s")

	cfg := FromEnv()
	if cfg.APIURL != "http://detector:8000" || cfg.AlertPollInterval != 5*time.Second || cfg.MetricsAddr != ":9090" || cfg.MockModelLoadDelay != 3*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestFromEnv_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("ALERT_POLL_INTERVAL", "soon")
	t.Setenv("REQUEST_TIMEOUT", "-1s")

	cfg := FromEnv()
	if cfg.AlertPollInterval != 30*time.Second || cfg.RequestTimeout != 60*time.Second {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
