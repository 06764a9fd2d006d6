package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SCRAPER_TIMEOUT.
const EnvPrefix = "SCRAPER"

// Load builds a validated Config. Environment variables (including any
// loaded from .env) override the config file at path, which overrides
// DefaultConfig.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("allowed_domain", cfg.AllowedDomain)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("accept_language", cfg.AcceptLanguage)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("rate_limit", cfg.RateLimit)
	v.SetDefault("rate_burst", cfg.RateBurst)
	v.SetDefault("output_file", cfg.OutputFile)
	v.SetDefault("backup_dir", cfg.BackupDir)
	v.SetDefault("backup_retention", cfg.BackupRetention)
	v.SetDefault("queue_size", cfg.QueueSize)
	v.SetDefault("cors_origins", cfg.CORSOrigins)
	v.SetDefault("postgres_dsn", cfg.PostgresDSN)
	v.SetDefault("postgres_table", cfg.PostgresTable)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("log_format", cfg.LogFormat)
}
