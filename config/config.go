package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds service configuration.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	AllowedDomain   string        `mapstructure:"allowed_domain"`
	UserAgent       string        `mapstructure:"user_agent"`
	AcceptLanguage  string        `mapstructure:"accept_language"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
	OutputFile      string        `mapstructure:"output_file"`
	BackupDir       string        `mapstructure:"backup_dir"`
	BackupRetention int           `mapstructure:"backup_retention"` // 0 keeps every snapshot
	QueueSize       int           `mapstructure:"queue_size"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	PostgresDSN     string        `mapstructure:"postgres_dsn"`
	PostgresTable   string        `mapstructure:"postgres_table"`
	Verbose         bool          `mapstructure:"verbose"`
	LogFormat       string        `mapstructure:"log_format"` // auto, text or json
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":5000",
		AllowedDomain:   "books.toscrape.com",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		AcceptLanguage:  "en-US,en;q=0.9",
		Timeout:         15 * time.Second,
		RateLimit:       0,
		RateBurst:       1,
		OutputFile:      "scraped_data.csv",
		BackupDir:       "backups",
		BackupRetention: 100,
		QueueSize:       16,
		CORSOrigins:     []string{"*"},
		PostgresDSN:     "",
		PostgresTable:   "scraped_books",
		Verbose:         false,
		LogFormat:       "auto",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.AllowedDomain == "" {
		return fmt.Errorf("allowed domain cannot be empty")
	}
	parsed, err := url.Parse("https://" + c.AllowedDomain)
	if err != nil || parsed.Hostname() != c.AllowedDomain {
		return fmt.Errorf("allowed domain must be a bare host name, got %q", c.AllowedDomain)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("rate burst must be positive when rate limit is set")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.BackupDir == "" {
		return fmt.Errorf("backup dir cannot be empty")
	}
	if c.BackupRetention < 0 {
		return fmt.Errorf("backup retention cannot be negative")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.PostgresDSN != "" && c.PostgresTable == "" {
		return fmt.Errorf("postgres table cannot be empty when a DSN is set")
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("log format must be auto, text, or json")
	}

	return nil
}
