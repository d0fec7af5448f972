// Package config loads server configuration from a YAML file and the
// environment. Every key can be overridden with a VARSPACE_ variable, e.g.
// VARSPACE_LISTEN_ADDR.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Providers holds annotation tool settings. A tool with no configuration is
// simply not registered.
type Providers struct {
	SpliceCommand    string        `mapstructure:"splice_command"`
	SpliceFasta      string        `mapstructure:"splice_fasta"`
	SpliceAnnotation string        `mapstructure:"splice_annotation"`
	SpliceWorkDir    string        `mapstructure:"splice_workdir"`
	CaddEndpoint     string        `mapstructure:"cadd_endpoint"`
	RevelPath        string        `mapstructure:"revel_path"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// Config is the full server configuration.
type Config struct {
	WorkspaceRoot string    `mapstructure:"workspace_root"`
	ListenAddr    string    `mapstructure:"listen_addr"`
	LogLevel      string    `mapstructure:"log_level"`
	SeqURL        string    `mapstructure:"seq_url"`
	SchemaFile    string    `mapstructure:"schema_file"`
	JournalFile   string    `mapstructure:"journal_file"`
	LiftoverMap   string    `mapstructure:"liftover_map"`
	Providers     Providers `mapstructure:"providers"`
}

// Load reads configuration from the given file (optional) and the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VARSPACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workspace_root", "data")
	v.SetDefault("listen_addr", ":8090")
	v.SetDefault("log_level", "info")
	v.SetDefault("journal_file", "data/operations.log")
	v.SetDefault("providers.cache_ttl", time.Hour)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// SlogLevel maps the configured level name to a slog level, defaulting to
// info for anything unrecognized.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
