package config

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CLINIC_SERVICES", "")
	t.Setenv("PORT", "")
	t.Setenv("MAX_APPTS_PER_DAY", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("REFRESH_TOKEN_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("expected default port 5000, got %s", cfg.Port)
	}
	if cfg.GRPCPort != "50051" {
		t.Errorf("expected default grpc port 50051, got %s", cfg.GRPCPort)
	}
	if cfg.MaxApptsPerDay != 10 {
		t.Errorf("expected 10 per day, got %d", cfg.MaxApptsPerDay)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("expected 15m access ttl, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("expected 168h refresh ttl, got %s", cfg.RefreshTokenTTL)
	}
	if len(cfg.ClinicServices) == 0 {
		t.Error("expected default clinic services")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("MAX_APPTS_PER_DAY", "3")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("CLINIC_SERVICES", " X-Ray , ,Physio")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxApptsPerDay != 3 {
		t.Errorf("expected 3, got %d", cfg.MaxApptsPerDay)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("expected 5m, got %s", cfg.AccessTokenTTL)
	}
	if got := strings.Join(cfg.ClinicServices, "|"); got != "X-Ray|Physio" {
		t.Errorf("unexpected services %q", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DBDriver: "sqlite", SQLitePath: "x.db", JWTSecret: "s",
			AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour,
			MaxApptsPerDay: 10, AuthRateRPS: 5, AuthRateBurst: 10, LogLevel: "info",
		}
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"no secret", func(c *Config) { c.JWTSecret = "" }, false},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, false},
		{"postgres without url", func(c *Config) { c.DBDriver = "postgres" }, false},
		{"postgres with url", func(c *Config) { c.DBDriver = "postgres"; c.DatabaseURL = "postgres://x" }, true},
		{"zero capacity", func(c *Config) { c.MaxApptsPerDay = 0 }, false},
		{"zero ttl", func(c *Config) { c.AccessTokenTTL = 0 }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := &Config{Env: "production", LogLevel: "warn"}
	log := c.NewLogger(&buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"message":"shown"`) {
		t.Fatalf("unexpected output %q", out)
	}
}
