// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN builds the lib/pq connection string.
func (c DBConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, sslMode)
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	CronSecret string `yaml:"cron_secret"`
}

// AMQPConfig selects the broker; an empty URL runs delivery in-process.
type AMQPConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type WorkflowConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Secret     string        `yaml:"secret"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// SchedulingConfig holds the send-time generator and launch poller knobs.
type SchedulingConfig struct {
	MinGap           time.Duration `yaml:"min_gap"`
	MaxGap           time.Duration `yaml:"max_gap"`
	BusinessHours    bool          `yaml:"business_hours"`
	BusinessStart    int           `yaml:"business_start_hour"`
	BusinessEnd      int           `yaml:"business_end_hour"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	WaitTimeout      time.Duration `yaml:"wait_timeout"`
	MatchWindow      time.Duration `yaml:"match_window"`
	LaunchCron       string        `yaml:"launch_cron"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
	DispatchBatch    int           `yaml:"dispatch_batch"`
}

type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Server     ServerConfig     `yaml:"server"`
	DB         DBConfig         `yaml:"db"`
	Auth       AuthConfig       `yaml:"auth"`
	AMQP       AMQPConfig       `yaml:"amqp"`
	Redis      RedisConfig      `yaml:"redis"`
	Google     GoogleConfig     `yaml:"google"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server:   ServerConfig{Port: "8080", AllowedOrigins: []string{"*"}},
		DB:       DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "pipeshark", SSLMode: "disable"},
		Redis:    RedisConfig{},
		Workflow: WorkflowConfig{Timeout: 30 * time.Second, MaxRetries: 3},
		Scheduling: SchedulingConfig{
			MinGap:           15 * time.Minute,
			MaxGap:           20 * time.Minute,
			BusinessHours:    true,
			BusinessStart:    9,
			BusinessEnd:      18,
			PollInterval:     15 * time.Second,
			WaitTimeout:      15 * time.Minute,
			MatchWindow:      time.Minute,
			LaunchCron:       "* * * * *",
			DispatchInterval: 30 * time.Second,
			DispatchBatch:    100,
		},
	}
}

// Load reads .env (if any), then the YAML file at path (if it exists) over the
// defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	overrideFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at runtime.
func (c *Config) Validate() error {
	s := c.Scheduling
	if s.MinGap <= 0 || s.MaxGap < s.MinGap {
		return fmt.Errorf("scheduling: invalid gap range %s..%s", s.MinGap, s.MaxGap)
	}
	if s.BusinessStart < 0 || s.BusinessEnd > 24 || s.BusinessStart >= s.BusinessEnd {
		return fmt.Errorf("scheduling: invalid business hours %d..%d", s.BusinessStart, s.BusinessEnd)
	}
	if s.PollInterval <= 0 || s.WaitTimeout <= 0 {
		return fmt.Errorf("scheduling: poll interval and wait timeout must be positive")
	}
	return nil
}

func overrideFromEnv(cfg *Config) {
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.DB.Host, "DB_HOST")
	setInt(&cfg.DB.Port, "DB_PORT")
	setString(&cfg.DB.User, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASSWORD")
	setString(&cfg.DB.Name, "DB_NAME")
	setString(&cfg.DB.SSLMode, "DB_SSLMODE")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.CronSecret, "CRON_SECRET")
	setString(&cfg.AMQP.URL, "AMQP_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Workflow.WebhookURL, "WORKFLOW_WEBHOOK_URL")
	setString(&cfg.Workflow.Secret, "WORKFLOW_WEBHOOK_SECRET")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
