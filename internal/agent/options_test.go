package agent

import "testing"

func TestConfigSanitizedDefaults(t *testing.T) {
	cfg := Config{}.sanitized()

	if cfg.MaxIterations != DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want %d", cfg.MaxIterations, DefaultMaxIterations)
	}
	if cfg.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", cfg.Temperature, DefaultTemperature)
	}
	if cfg.Logger == nil {
		t.Error("Logger should default to a non-nil logger")
	}
	if cfg.Tracer == nil {
		t.Error("Tracer should default to a non-nil no-op tracer")
	}
	if cfg.Executor.Timeout != DefaultToolTimeout {
		t.Errorf("Executor.Timeout = %v, want %v", cfg.Executor.Timeout, DefaultToolTimeout)
	}
}

func TestConfigSanitizedPreservesExplicitValues(t *testing.T) {
	cfg := Config{MaxIterations: 3, Temperature: 0.9}.sanitized()
	if cfg.MaxIterations != 3 {
		t.Errorf("MaxIterations = %d, want 3", cfg.MaxIterations)
	}
	if cfg.Temperature != 0.9 {
		t.Errorf("Temperature = %v, want 0.9", cfg.Temperature)
	}
}
