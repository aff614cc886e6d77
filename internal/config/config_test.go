package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "commitrogue.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "99999")
	if _, err := Load(); err == nil {
		t.Fatalf("port 99999 accepted")
	}
}

func TestLoadRejectsZeroRate(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("zero rate limit accepted")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("DB_PATH", "/tmp/runs.db")
	t.Setenv("AUTH_SECRET", "sekrit")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9001 || cfg.DBPath != "/tmp/runs.db" || cfg.AuthSecret != "sekrit" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
