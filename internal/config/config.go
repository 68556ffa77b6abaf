package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Admin struct {
		Email  string `yaml:"email"`
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Sender   string `yaml:"sender"`
		Password string `yaml:"password"`
		// Messages per second; sends beyond the rate wait their turn.
		RatePerSecond float64 `yaml:"rate_per_second"`
	} `yaml:"smtp"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
	} `yaml:"sheets"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		SubmitPerHour int `yaml:"submit_per_hour"`
	} `yaml:"ratelimit"`

	Booking struct {
		MaxAdvanceDays int `yaml:"max_advance_days"`
	} `yaml:"booking"`

	Reminders struct {
		Enabled  bool   `yaml:"enabled"`
		Timezone string `yaml:"timezone"`
		Hour     int    `yaml:"hour"`
		Minute   int    `yaml:"minute"`
	} `yaml:"reminders"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/meetroom.db"
	}
	if cfg.Admin.Email == "" {
		return nil, fmt.Errorf("admin.email is required")
	}
	if cfg.Sheets.Enabled && cfg.Sheets.SheetName == "" {
		cfg.Sheets.SheetName = "Bookings"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SMTPRate returns the outgoing mail rate, defaulting to one message per
// second.
func (c *Config) SMTPRate() float64 {
	if c.SMTP.RatePerSecond <= 0 {
		return 1.0
	}
	return c.SMTP.RatePerSecond
}

// SubmitLimit returns the per-requester submission limit and window.
func (c *Config) SubmitLimit() (int, time.Duration) {
	if c.RateLimit.SubmitPerHour <= 0 {
		return 0, 0
	}
	return c.RateLimit.SubmitPerHour, time.Hour
}

// ReminderTimezone returns the timezone the daily reminder time is read in.
func (c *Config) ReminderTimezone() string {
	if c.Reminders.Timezone == "" {
		return "UTC"
	}
	return c.Reminders.Timezone
}

// BackupInterval returns the backup period, defaulting to daily.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// BackupRetention returns how long backups are kept, defaulting to 14 days.
func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}
