// Package config loads the application configuration from a YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WatchedCourse is one course entry from the courses_to_monitor list.
type WatchedCourse struct {
	Code              string `yaml:"code"`
	NotifyWhenSeatsGT int    `yaml:"notify_when_seats_gt"`
}

// TelegramConfig holds the bot credentials and notification targets.
type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
}

// MonitoringConfig controls the polling schedule and target site.
type MonitoringConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes"`
	TargetURL       string `yaml:"target_url"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScraperConfig holds scraper tuning knobs.
type ScraperConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Config is the full application configuration.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Database   DatabaseConfig   `yaml:"database"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Courses    []WatchedCourse  `yaml:"courses_to_monitor"`
}

// Load reads the YAML configuration at path, fills in defaults and
// applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	// Bot tokens are usually referenced as ${VAR} in the YAML so the
	// file can be committed without credentials.
	cfg.Telegram.BotToken = expandEnvRef(cfg.Telegram.BotToken)

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Monitoring.IntervalMinutes <= 0 {
		c.Monitoring.IntervalMinutes = 5
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/courses.db"
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		c.Scraper.TimeoutSeconds = 30
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_IDS"); v != "" {
		ids, err := parseChatIDs(v)
		if err != nil {
			log.Printf("Warning: ignoring TELEGRAM_CHAT_IDS override: %v", err)
		} else {
			c.Telegram.ChatIDs = ids
		}
	}
	if v := os.Getenv("MONITORING_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Monitoring.IntervalMinutes = n
		} else {
			log.Printf("Warning: ignoring invalid MONITORING_INTERVAL_MINUTES value %q", v)
		}
	}
	if v := os.Getenv("MONITORING_TARGET_URL"); v != "" {
		c.Monitoring.TargetURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SCRAPER_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scraper.TimeoutSeconds = n
		} else {
			log.Printf("Warning: ignoring invalid SCRAPER_TIMEOUT value %q", v)
		}
	}
}

// ScrapeTimeout returns the scraper HTTP timeout as a duration.
func (c *Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// Interval returns the polling interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Monitoring.IntervalMinutes) * time.Minute
}

func parseChatIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// expandEnvRef resolves a ${VAR} reference against the environment.
// Plain values pass through unchanged.
func expandEnvRef(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}
