package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Collector    CollectorConfig    `json:"collector" yaml:"collector"`
	Database     DatabaseConfig     `json:"database" yaml:"database"`
	Retention    RetentionConfig    `json:"retention" yaml:"retention"`
	Notification NotificationConfig `json:"notification" yaml:"notification"`
	OTLP         OTLPConfig         `json:"otlp" yaml:"otlp"`
}

type CollectorConfig struct {
	Listen          string  `json:"listen" yaml:"listen"`
	MaxBodyBytes    int64   `json:"max_body_bytes" yaml:"max_body_bytes"`
	MaxArchiveBytes int64   `json:"max_archive_bytes" yaml:"max_archive_bytes"`
	RateLimit       float64 `json:"rate_limit" yaml:"rate_limit"`
	RateBurst       int     `json:"rate_burst" yaml:"rate_burst"`
	CORSOrigin      string  `json:"cors_origin" yaml:"cors_origin"`
}

type DatabaseConfig struct {
	Type string `json:"type" yaml:"type"`
	Conn string `json:"conn" yaml:"conn"`
	Name string `json:"name" yaml:"name"`
}

type RetentionConfig struct {
	Days     int    `json:"days" yaml:"days"`
	Schedule string `json:"schedule" yaml:"schedule"`
}

type NotificationConfig struct {
	SMTPHost     string `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int    `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser     string `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string `json:"smtp_password" yaml:"smtp_password"`
	SMTPFrom     string `json:"smtp_from" yaml:"smtp_from"`
	SMTPSSL      bool   `json:"smtp_ssl" yaml:"smtp_ssl"`
	Email        string `json:"email" yaml:"email"`
	WebhookURL   string `json:"webhook_url" yaml:"webhook_url"`
	BaseURL      string `json:"base_url" yaml:"base_url"`
}

type OTLPConfig struct {
	Endpoint    string            `json:"endpoint" yaml:"endpoint"`
	Protocol    string            `json:"protocol" yaml:"protocol"`
	ServiceName string            `json:"service_name" yaml:"service_name"`
	Insecure    bool              `json:"insecure" yaml:"insecure"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Collector: CollectorConfig{
			Listen:          ":8080",
			MaxBodyBytes:    16 << 20,
			MaxArchiveBytes: 64 << 20,
			RateLimit:       1,
			RateBurst:       5,
			CORSOrigin:      "*",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Conn: "mayday.db",
			Name: "mayday",
		},
		Retention: RetentionConfig{
			Days:     30,
			Schedule: "0 3 * * *",
		},
		OTLP: OTLPConfig{
			ServiceName: "mayday",
		},
	}
}

// LoadConfig reads path on top of the defaults. The file is parsed as YAML
// first and as JSON if that fails. ${VAR} references are expanded from the
// environment before parsing, and MAYDAY_* variables override the database
// section afterwards.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		content := []byte(SubstituteEnvVars(string(data)))
		if err := yaml.Unmarshal(content, cfg); err != nil {
			// Try JSON if YAML fails
			if jsonErr := json.Unmarshal(content, cfg); jsonErr != nil {
				return nil, fmt.Errorf("failed to decode config file (tried YAML and JSON): %w", err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MAYDAY_LISTEN"); v != "" {
		c.Collector.Listen = v
	}
	if v := os.Getenv("MAYDAY_DB_TYPE"); v != "" {
		c.Database.Type = v
	}
	if v := os.Getenv("MAYDAY_DB_CONN"); v != "" {
		c.Database.Conn = v
	}
	if v := os.Getenv("MAYDAY_DB_NAME"); v != "" {
		c.Database.Name = v
	}
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// SubstituteEnvVars expands ${VAR} references from the process environment.
// Unset variables expand to the empty string.
func SubstituteEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}
