package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("CLIPCAST_AUTH__ACCESS_SECRET", "access")
	t.Setenv("CLIPCAST_AUTH__REFRESH_SECRET", "refresh")
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	setSecrets(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Mongo.Database != "clipcast" {
		t.Errorf("Mongo.Database = %q, want clipcast", cfg.Mongo.Database)
	}
	if cfg.Auth.AccessTTL != 15*time.Minute {
		t.Errorf("Auth.AccessTTL = %v, want 15m", cfg.Auth.AccessTTL)
	}
	if cfg.Pagination.MaxLimit != 100 {
		t.Errorf("Pagination.MaxLimit = %d, want 100", cfg.Pagination.MaxLimit)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	setSecrets(t)
	t.Setenv("CLIPCAST_SERVER__PORT", "9090")
	t.Setenv("CLIPCAST_MONGO__URI", "mongodb://db:27017")
	t.Setenv("CLIPCAST_AUTH__REFRESH_TTL", "48h")
	t.Setenv("CLIPCAST_SERVER__CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CLIPCAST_MEDIA__DRIVER", "minio")
	t.Setenv("CLIPCAST_MEDIA__ENDPOINT", "minio:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("Mongo.URI = %q", cfg.Mongo.URI)
	}
	if cfg.Auth.RefreshTTL != 48*time.Hour {
		t.Errorf("Auth.RefreshTTL = %v, want 48h", cfg.Auth.RefreshTTL)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Media.Driver != MediaDriverMinIO {
		t.Errorf("Media.Driver = %q, want minio", cfg.Media.Driver)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	setSecrets(t)

	path := filepath.Join(dir, "custom.yaml")
	content := "server:\n  port: 7000\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CLIPCAST_LOG__LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000 from file", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want env override warn", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	base := *defaultConfig()
	base.Auth.AccessSecret = "a"
	base.Auth.RefreshSecret = "r"

	if err := base.Validate(); err != nil {
		t.Fatalf("expected defaults with secrets to validate, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing secret", func(c *Config) { c.Auth.RefreshSecret = "" }, "refresh_secret"},
		{"unknown driver", func(c *Config) { c.Media.Driver = "gcs" }, "media.driver"},
		{"minio without endpoint", func(c *Config) { c.Media.Driver = MediaDriverMinIO }, "media.endpoint"},
		{"bad transactions", func(c *Config) { c.Mongo.Transactions = "maybe" }, "mongo.transactions"},
		{"bad search", func(c *Config) { c.Search.Mode = "regex" }, "search.mode"},
		{"bad limits", func(c *Config) { c.Pagination.MaxLimit = 1; c.Pagination.DefaultLimit = 5 }, "pagination"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"CLIPCAST_MONGO__URI":           "mongo.uri",
		"CLIPCAST_AUTH__ACCESS_TTL":     "auth.access_ttl",
		"CLIPCAST_SERVER__CORS_ORIGINS": "server.cors_origins",
		ConfigPathEnvVar:                "",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
