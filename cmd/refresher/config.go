package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"

	"github.com/spf13/viper"
)

const (
	defaultAffordanceHeight  = model.DefaultAffordanceHeight
	defaultAnimationDuration = model.DefaultAnimationDuration
	defaultItemsPerRefresh   = model.DefaultItemsPerRefresh
	defaultFeedLimit         = model.DefaultFeedLimit
	defaultSkin              = model.DefaultSkin
	defaultQueryTimeout      = 30 * time.Second
	defaultLogLevel          = "info"
	defaultSource            = sourceSynthetic
)

// Feed sources selectable with the source key.
const (
	sourceSynthetic = "synthetic"
	sourceStdin     = "stdin"
)

type config struct {
	AffordanceHeight   float64       `mapstructure:"affordance-height"`
	AnimationDuration  time.Duration `mapstructure:"animation-duration"`
	DBPath             string        `mapstructure:"db-path"`
	QueryTimeout       time.Duration `mapstructure:"query-timeout"`
	ItemsPerRefresh    int           `mapstructure:"items-per-refresh"`
	FeedLimit          int           `mapstructure:"feed-limit"`
	ReverseScrollWheel bool          `mapstructure:"reverse-scroll-wheel"`
	RefreshOnStart     bool          `mapstructure:"refresh-on-start"`
	Source             string        `mapstructure:"source"`
	Skin               string        `mapstructure:"skin"`
	LogFile            string        `mapstructure:"log-file"`
	LogLevel           string        `mapstructure:"log-level"`
}

// configDir is where config.yml and skins/ live.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "refresher"), nil
}

func loadConfig(configPath string) (config, error) {
	var cfg config

	dir, err := configDir()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetEnvPrefix("REFRESHER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("affordance-height", defaultAffordanceHeight)
	v.SetDefault("animation-duration", defaultAnimationDuration)
	v.SetDefault("db-path", filepath.Join(dir, "feed.duckdb"))
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("items-per-refresh", defaultItemsPerRefresh)
	v.SetDefault("feed-limit", defaultFeedLimit)
	v.SetDefault("reverse-scroll-wheel", false)
	v.SetDefault("refresh-on-start", false)
	v.SetDefault("source", defaultSource)
	v.SetDefault("skin", defaultSkin)
	v.SetDefault("log-file", filepath.Join(dir, "refresher.log"))
	v.SetDefault("log-level", defaultLogLevel)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(dir, "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.AffordanceHeight <= 0 {
		return fmt.Errorf("affordance-height must be positive, got %v", c.AffordanceHeight)
	}
	if c.AnimationDuration < 0 {
		return fmt.Errorf("animation-duration must not be negative, got %v", c.AnimationDuration)
	}
	if c.ItemsPerRefresh <= 0 {
		return fmt.Errorf("items-per-refresh must be positive, got %d", c.ItemsPerRefresh)
	}
	if c.FeedLimit <= 0 {
		return fmt.Errorf("feed-limit must be positive, got %d", c.FeedLimit)
	}
	switch c.Source {
	case sourceSynthetic, sourceStdin:
	default:
		return fmt.Errorf("source must be %q or %q, got %q", sourceSynthetic, sourceStdin, c.Source)
	}
	if _, err := c.slogLevel(); err != nil {
		return err
	}
	return nil
}

func (c config) slogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log-level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
