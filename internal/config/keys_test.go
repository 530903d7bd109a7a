package config

import (
	"errors"
	"testing"
	"time"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		key     string
		raw     string
		want    any
		wantErr bool
	}{
		{"full_suite.workers", "8", 8, false},
		{"full_suite.workers", "many", nil, true},
		{"logging.verbose", "true", true, false},
		{"availability.cache_ttl", "90s", "1m30s", false},
		{"availability.cache_ttl", "soon", nil, true},
		{"backend.kind", "desktop", "desktop", false},
		{"backend.kind", "mobile", nil, true},
		{"git.base_ref", "origin/main", "origin/main", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			got, err := ParseValue(tt.key, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseValue(%q, %q) error = %v, wantErr %v", tt.key, tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseValue(%q, %q) = %v, want %v", tt.key, tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseValue_List(t *testing.T) {
	got, err := ParseValue("full_suite.environments", "chromium, webkit,")
	if err != nil {
		t.Fatalf("ParseValue() error = %v", err)
	}
	list, ok := got.([]string)
	if !ok || len(list) != 2 || list[1] != "webkit" {
		t.Errorf("ParseValue() = %v, want [chromium webkit]", got)
	}
}

func TestParseValue_UnknownKey(t *testing.T) {
	_, err := ParseValue("anthropic.api_key", "x")
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("ParseValue() error = %v, want ErrUnknownKey", err)
	}
}

func TestSetUserValue(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SetUserValue("full_suite.workers", "3"); err != nil {
		t.Fatalf("SetUserValue() error = %v", err)
	}
	if err := SetUserValue("availability.cache_ttl", "2m"); err != nil {
		t.Fatalf("SetUserValue() error = %v", err)
	}

	cfg, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.FullSuite.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.FullSuite.Workers)
	}
	if cfg.Availability.CacheTTL != 2*time.Minute {
		t.Errorf("cache ttl = %v, want 2m", cfg.Availability.CacheTTL)
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", "(not set)"},
		{"short", "*****"},
		{"abcd12345678wxyz", "abcd********wxyz"},
	}
	for _, tt := range tests {
		if got := MaskToken(tt.token); got != tt.want {
			t.Errorf("MaskToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}
