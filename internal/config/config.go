package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rewired-gh/vietoracle/internal/forecast"
	"github.com/rewired-gh/vietoracle/internal/models"
	"github.com/rewired-gh/vietoracle/internal/predictor"
	"github.com/rewired-gh/vietoracle/internal/report"
)

// EnvPrefix prefixes every environment override, e.g. VIETORACLE_TELEGRAM_BOT_TOKEN.
const EnvPrefix = "VIETORACLE"

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	Games     []string         `mapstructure:"games"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Forecast  forecast.Config  `mapstructure:"forecast"`
	Predictor predictor.Config `mapstructure:"predictor"`
	Report    report.Config    `mapstructure:"report"`
	Telegram  TelegramConfig   `mapstructure:"telegram"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Schedule  string           `mapstructure:"schedule"` // cron expression, empty runs once
	Logging   LoggingConfig    `mapstructure:"logging"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	Backend     string        `mapstructure:"backend"`
	DataDir     string        `mapstructure:"data_dir"`
	OutputDir   string        `mapstructure:"output_dir"`
	DBPath      string        `mapstructure:"db_path"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken   string        `mapstructure:"bot_token"`
	ChatID     string        `mapstructure:"chat_id"`
	Enabled    bool          `mapstructure:"enabled"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"` // empty disables export
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags is Load with command line overrides. Recognized flags are
// game (string slice), schedule and log-level; unchanged flags are ignored.
// An empty path skips the config file.
func LoadWithFlags(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	}

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"games":         "game",
		"schedule":      "schedule",
		"logging.level": "log-level",
	} {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	games := make([]string, len(models.Games))
	for i, g := range models.Games {
		games[i] = string(g)
	}
	v.SetDefault("games", games)

	// Storage defaults
	v.SetDefault("storage.backend", BackendJSON)
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.output_dir", "./data/output")
	v.SetDefault("storage.db_path", "./data/vietoracle.db")
	v.SetDefault("storage.lock_timeout", "10s")

	// Forecast defaults
	f := forecast.DefaultConfig()
	v.SetDefault("forecast.period_size", f.PeriodSize)
	v.SetDefault("forecast.min_periods", f.MinPeriods)
	v.SetDefault("forecast.prediction_count", f.PredictionCount)
	v.SetDefault("forecast.hot_cold_size", f.HotColdSize)

	// Predictor defaults
	p := predictor.DefaultConfig()
	v.SetDefault("predictor.weights.comeback", p.Weights.Comeback)
	v.SetDefault("predictor.weights.continuous", p.Weights.Continuous)
	v.SetDefault("predictor.weights.frequency", p.Weights.Frequency)
	v.SetDefault("predictor.weights.trend", p.Weights.Trend)
	v.SetDefault("predictor.comeback_tolerance", p.ComebackTolerance)
	v.SetDefault("predictor.comeback_cap", p.ComebackCap)
	v.SetDefault("predictor.continuous_strict", p.ContinuousStrict)
	v.SetDefault("predictor.overdue_scale", p.OverdueScale)
	v.SetDefault("predictor.overdue_cap", p.OverdueCap)
	v.SetDefault("predictor.fresh_base", p.FreshBase)
	v.SetDefault("predictor.fresh_slope", p.FreshSlope)
	v.SetDefault("predictor.fresh_floor", p.FreshFloor)
	v.SetDefault("predictor.trend_window", p.TrendWindow)
	v.SetDefault("predictor.trend_base", p.TrendBase)
	v.SetDefault("predictor.trend_slope", p.TrendSlope)
	v.SetDefault("predictor.day_measure", p.DayMeasure)
	for game, m := range p.DayMultipliers {
		v.SetDefault("predictor.day_multipliers."+game, m)
	}
	v.SetDefault("predictor.confidence.appearances", p.Confidence.Appearances)
	v.SetDefault("predictor.confidence.intervals", p.Confidence.Intervals)
	v.SetDefault("predictor.confidence.activity", p.Confidence.Activity)
	v.SetDefault("predictor.confidence.std_dev", p.Confidence.StdDev)
	v.SetDefault("predictor.confidence.cap", p.Confidence.Cap)
	v.SetDefault("predictor.high_threshold", p.HighThreshold)
	v.SetDefault("predictor.medium_threshold", p.MediumThreshold)
	v.SetDefault("predictor.top_count", p.TopCount)

	// Report defaults
	r := report.DefaultConfig()
	v.SetDefault("report.top_templates", r.TopTemplates)
	v.SetDefault("report.top_numbers", r.TopNumbers)
	v.SetDefault("report.recent_draws", r.RecentDraws)
	v.SetDefault("report.frequent_templates", r.FrequentTemplates)
	v.SetDefault("report.compare_top", r.CompareTop)
	v.SetDefault("report.similarity_threshold", r.SimilarityThreshold)
	v.SetDefault("report.focus_threshold", r.FocusThreshold)
	v.SetDefault("report.high_appearance", r.HighAppearance)
	v.SetDefault("report.low_appearance", r.LowAppearance)
	v.SetDefault("report.correlation_top", r.CorrelationTop)

	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay", "2s")

	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("schedule", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GameList returns the configured games in order.
func (c *Config) GameList() ([]models.Game, error) {
	games := make([]models.Game, 0, len(c.Games))
	seen := make(map[models.Game]bool, len(c.Games))
	for _, name := range c.Games {
		g, err := models.ParseGame(name)
		if err != nil {
			return nil, fmt.Errorf("games: %w", err)
		}
		if seen[g] {
			return nil, fmt.Errorf("games: %s listed twice", g)
		}
		seen[g] = true
		games = append(games, g)
	}
	return games, nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if len(c.Games) == 0 {
		return fmt.Errorf("games must contain at least one game")
	}
	if _, err := c.GameList(); err != nil {
		return err
	}

	// Validate Storage config
	switch c.Storage.Backend {
	case BackendJSON:
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: json, sqlite")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}
	if c.Storage.LockTimeout < 0 {
		return fmt.Errorf("storage.lock_timeout must not be negative")
	}

	if err := c.Forecast.Validate(); err != nil {
		return err
	}
	if err := c.Predictor.Validate(); err != nil {
		return err
	}
	if err := c.Report.Validate(); err != nil {
		return err
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.MaxRetries < 1 {
			return fmt.Errorf("telegram.max_retries must be at least 1")
		}
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("schedule must be a cron expression: %w", err)
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
