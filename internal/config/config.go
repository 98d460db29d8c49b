// Package config loads megadrop settings from an optional YAML file, a
// .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Mega     MegaConfig     `yaml:"mega"`
	Download DownloadConfig `yaml:"download"`
	Health   HealthConfig   `yaml:"health"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Workers bounds concurrent downloads, uploads and folder listings.
	Workers int `yaml:"workers"`
	// SessionTTL drops idle sessions; "0" keeps them until the flow ends.
	SessionTTL string `yaml:"session_ttl"`
}

type TelegramConfig struct {
	Token    string `yaml:"token"`
	PageSize int    `yaml:"page_size"`
	// ProgressInterval is the minimum gap between progress edits.
	ProgressInterval string `yaml:"progress_interval"`
	Debug            bool   `yaml:"debug"`
}

type MegaConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type DownloadConfig struct {
	Dir         string   `yaml:"dir"`
	Binary      string   `yaml:"binary"`
	Format      string   `yaml:"format"`
	Quality     string   `yaml:"quality"`
	CookiesFile string   `yaml:"cookies_file"`
	ExtraArgs   []string `yaml:"extra_args"`
	Timeout     string   `yaml:"timeout"`
}

type HealthConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PageSize:         20,
			ProgressInterval: "3s",
		},
		Download: DownloadConfig{
			Dir:     "temp_downloads",
			Binary:  "yt-dlp",
			Format:  "mp3",
			Quality: "192K",
			Timeout: "30m",
		},
		Health: HealthConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Workers:    4,
		SessionTTL: "1h",
	}
}

// Load reads path (if non-empty), then .env (if present), then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Mega.Email, "MEGA_EMAIL")
	setString(&c.Mega.Password, "MEGA_PASSWORD")
	setString(&c.Download.Dir, "DOWNLOAD_DIR")
	setString(&c.Download.Binary, "YTDLP_PATH")
	setString(&c.Download.CookiesFile, "YTDLP_COOKIES")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.SessionTTL, "SESSION_TTL")
	if err := setInt(&c.Health.Port, "PORT"); err != nil {
		return err
	}
	return setInt(&c.Workers, "WORKERS")
}

// Validate checks what every command needs. The bot token is checked by
// the serve command alone, after the health listener is up.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Health.Port <= 0 || c.Health.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid health port %d", c.Health.Port))
	}
	if c.Telegram.PageSize <= 0 || c.Telegram.PageSize > 90 {
		errs = append(errs, fmt.Errorf("page_size must be in 1..90, got %d", c.Telegram.PageSize))
	}
	for name, v := range map[string]string{
		"session_ttl":                c.SessionTTL,
		"download.timeout":           c.Download.Timeout,
		"telegram.progress_interval": c.Telegram.ProgressInterval,
	} {
		if _, err := parseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) SessionTTLDuration() time.Duration {
	d, _ := parseDuration(c.SessionTTL)
	return d
}

func (c *Config) DownloadTimeout() time.Duration {
	d, _ := parseDuration(c.Download.Timeout)
	return d
}

func (c *Config) ProgressInterval() time.Duration {
	d, _ := parseDuration(c.Telegram.ProgressInterval)
	if d <= 0 {
		return 3 * time.Second
	}
	return d
}

func (c *Config) HealthAddr() string {
	return fmt.Sprintf("%s:%d", c.Health.Host, c.Health.Port)
}

// parseDuration accepts Go durations; empty and "0" mean zero.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
