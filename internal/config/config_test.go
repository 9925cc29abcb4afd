package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "mayday.yaml", `
collector:
  listen: ":9090"
  rate_limit: 2.5
  rate_burst: 10
database:
  type: pgx
  conn: postgres://localhost/mayday
retention:
  days: 7
notification:
  smtp_host: mail.example.com
  smtp_port: 587
  email: oncall@example.com
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Collector.Listen != ":9090" {
		t.Errorf("Listen = %q, want :9090", cfg.Collector.Listen)
	}
	if cfg.Collector.RateLimit != 2.5 || cfg.Collector.RateBurst != 10 {
		t.Errorf("rate = %v/%d, want 2.5/10", cfg.Collector.RateLimit, cfg.Collector.RateBurst)
	}
	if cfg.Database.Type != "pgx" {
		t.Errorf("Database.Type = %q, want pgx", cfg.Database.Type)
	}
	if cfg.Retention.Days != 7 {
		t.Errorf("Retention.Days = %d, want 7", cfg.Retention.Days)
	}
	if cfg.Notification.SMTPHost != "mail.example.com" || cfg.Notification.SMTPPort != 587 {
		t.Errorf("unexpected SMTP settings: %+v", cfg.Notification)
	}
	// Untouched sections keep their defaults.
	if cfg.Collector.MaxBodyBytes != 16<<20 {
		t.Errorf("MaxBodyBytes = %d, want default", cfg.Collector.MaxBodyBytes)
	}
	if cfg.Retention.Schedule != "0 3 * * *" {
		t.Errorf("Schedule = %q, want default", cfg.Retention.Schedule)
	}
}

func TestLoadConfig_JSONFallback(t *testing.T) {
	path := writeConfig(t, "mayday.json", `{"collector":{"listen":":7070"},"database":{"type":"mysql","conn":"root@/mayday"}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Collector.Listen != ":7070" {
		t.Errorf("Listen = %q, want :7070", cfg.Collector.Listen)
	}
	if cfg.Database.Type != "mysql" {
		t.Errorf("Database.Type = %q, want mysql", cfg.Database.Type)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "broken.yaml", "collector: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for undecodable config")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Collector.Listen != ":8080" || cfg.Database.Type != "sqlite" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MAYDAY_DB_TYPE", "mongodb")
	t.Setenv("MAYDAY_DB_CONN", "mongodb://localhost:27017")
	t.Setenv("MAYDAY_LISTEN", ":6060")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Type != "mongodb" || cfg.Database.Conn != "mongodb://localhost:27017" {
		t.Errorf("env override not applied: %+v", cfg.Database)
	}
	if cfg.Collector.Listen != ":6060" {
		t.Errorf("Listen = %q, want :6060", cfg.Collector.Listen)
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("MAYDAY_TEST_SECRET", "hunter2")

	got := SubstituteEnvVars("postgres://mayday:${MAYDAY_TEST_SECRET}@db/mayday")
	want := "postgres://mayday:hunter2@db/mayday"
	if got != want {
		t.Errorf("SubstituteEnvVars = %q, want %q", got, want)
	}

	// Unset variables collapse to empty, plain $ is left alone.
	if got := SubstituteEnvVars("a ${MAYDAY_TEST_UNSET_VAR} b $HOME"); got != "a  b $HOME" {
		t.Errorf("unexpected expansion: %q", got)
	}
}

func TestSubstituteEnvVarsInConfigFile(t *testing.T) {
	t.Setenv("MAYDAY_TEST_DSN", "file:secret.db")
	path := writeConfig(t, "mayday.yaml", "database:\n  conn: ${MAYDAY_TEST_DSN}\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Conn != "file:secret.db" {
		t.Errorf("Conn = %q, want file:secret.db", cfg.Database.Conn)
	}
}
