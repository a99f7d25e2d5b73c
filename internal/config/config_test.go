package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, Prefix+"_") {
			// t.Setenv restores the previous value when the test ends
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if config == nil {
		t.Fatal("Load() returned nil config")
	}

	if config.OutputDir != "./out" {
		t.Errorf("Expected default OutputDir = ./out, got %s", config.OutputDir)
	}
	if config.Workers != 4 {
		t.Errorf("Expected default Workers = 4, got %d", config.Workers)
	}
	if config.SpacingMeters != 16.666666666667 {
		t.Errorf("Expected default SpacingMeters = 16.666666666667, got %v", config.SpacingMeters)
	}
	if config.UTMZone != 15 || config.Southern || config.Datum != "WGS84" {
		t.Errorf("Unexpected default projection: zone %d southern %v datum %s", config.UTMZone, config.Southern, config.Datum)
	}
	if config.FillValue != "0" {
		t.Errorf("Expected default FillValue = 0, got %q", config.FillValue)
	}
	if config.DatabaseURL != "" || config.RedisAddr != "" || config.NATSURL != "" {
		t.Error("Expected sinks to be disabled by default")
	}
	if config.LogLevel != "info" || config.LogFormat != "text" {
		t.Errorf("Unexpected logging defaults: %s %s", config.LogLevel, config.LogFormat)
	}
	if config.LedgerTTL != 30*24*time.Hour || config.Reprocess {
		t.Errorf("Unexpected ledger defaults: ttl %s reprocess %v", config.LedgerTTL, config.Reprocess)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NAVQC_OUTPUT_DIR", "/test/output")
	t.Setenv("NAVQC_WORKERS", "8")
	t.Setenv("NAVQC_STRICT", "true")
	t.Setenv("NAVQC_UTM_ZONE", "31")
	t.Setenv("NAVQC_DATABASE_URL", "postgres://localhost/navqc")
	t.Setenv("NAVQC_LOG_FORMAT", "json")
	t.Setenv("NAVQC_LEDGER_TTL", "48h")
	t.Setenv("NAVQC_REPROCESS", "true")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if config.OutputDir != "/test/output" {
		t.Errorf("Expected OutputDir = /test/output, got %s", config.OutputDir)
	}
	if config.Workers != 8 {
		t.Errorf("Expected Workers = 8, got %d", config.Workers)
	}
	if !config.Strict {
		t.Error("Expected Strict = true")
	}
	if config.UTMZone != 31 {
		t.Errorf("Expected UTMZone = 31, got %d", config.UTMZone)
	}
	if config.DatabaseURL != "postgres://localhost/navqc" {
		t.Errorf("Unexpected DatabaseURL %s", config.DatabaseURL)
	}
	if config.LedgerTTL != 48*time.Hour || !config.Reprocess {
		t.Errorf("Unexpected ledger settings: ttl %s reprocess %v", config.LedgerTTL, config.Reprocess)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero workers", "NAVQC_WORKERS", "0"},
		{"negative spacing", "NAVQC_SPACING_METERS", "-1"},
		{"zone out of range", "NAVQC_UTM_ZONE", "61"},
		{"unknown log format", "NAVQC_LOG_FORMAT", "xml"},
		{"not a number", "NAVQC_WORKERS", "many"},
		{"negative ledger ttl", "NAVQC_LEDGER_TTL", "-1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			config, err := Load()
			if err == nil {
				t.Fatalf("Expected error, got config %+v", config)
			}
		})
	}
}
