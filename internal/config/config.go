package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type FetchConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	MaxBodyMB         int           `mapstructure:"max_body_mb"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type ScheduleConfig struct {
	Tick             time.Duration `mapstructure:"tick"`
	DefaultInterval  time.Duration `mapstructure:"default_interval"`
	MisfireGrace     time.Duration `mapstructure:"misfire_grace"`
	Timezone         string        `mapstructure:"timezone"`
	ActiveHoursStart int           `mapstructure:"active_hours_start"`
	ActiveHoursEnd   int           `mapstructure:"active_hours_end"`
}

type DeliveryConfig struct {
	MaxFileMB        int    `mapstructure:"max_file_mb"`
	ManifestMaxChars int    `mapstructure:"manifest_max_chars"`
	Concurrency      int    `mapstructure:"concurrency"`
	TempDir          string `mapstructure:"temp_dir"`
}

type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	OwnerID int64  `mapstructure:"owner_id"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate checks the configuration for a runnable daemon. It is called by
// serve, not by config init, so a freshly generated file may still miss the
// telegram credentials.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Fetch.Validate(); err != nil {
		return err
	}
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	if err := c.Delivery.Validate(); err != nil {
		return err
	}
	if err := c.Telegram.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

func (c *FetchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.UserAgent, validation.Required),
		validation.Field(&c.MaxBodyMB, validation.Required, validation.Min(1)),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
	)
}

func (c *ScheduleConfig) Validate() error {
	if c.ActiveHoursStart > c.ActiveHoursEnd {
		return fmt.Errorf("schedule: active_hours_start %d is after active_hours_end %d",
			c.ActiveHoursStart, c.ActiveHoursEnd)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("schedule: invalid timezone %q: %w", c.Timezone, err)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Tick, validation.Required),
		validation.Field(&c.DefaultInterval, validation.Required),
		validation.Field(&c.MisfireGrace, validation.Required),
		validation.Field(&c.Timezone, validation.Required),
		validation.Field(&c.ActiveHoursStart, validation.Min(0), validation.Max(23)),
		validation.Field(&c.ActiveHoursEnd, validation.Min(0), validation.Max(23)),
	)
}

func (c *DeliveryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxFileMB, validation.Required, validation.Min(1)),
		validation.Field(&c.ManifestMaxChars, validation.Required, validation.Min(1)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1)),
	)
}

func (c *TelegramConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.OwnerID, validation.Required),
	)
}

func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".pagewatch.db")

	return &Config{
		Storage: StorageConfig{
			Path: dbPath,
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "pagewatch/1.0 (+https://github.com/pagewatch/pagewatch)",
			MaxBodyMB:         10,
			RequestsPerSecond: 1,
		},
		Schedule: ScheduleConfig{
			Tick:             30 * time.Second,
			DefaultInterval:  30 * time.Minute,
			MisfireGrace:     1 * time.Hour,
			Timezone:         "Asia/Kolkata",
			ActiveHoursStart: 6,
			ActiveHoursEnd:   22,
		},
		Delivery: DeliveryConfig{
			MaxFileMB:        45,
			ManifestMaxChars: 4096,
			Concurrency:      3,
		},
		Telegram: TelegramConfig{},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults are registered per leaf key so environment overrides
	// resolve for every key, including ones absent from the file.
	cfg := defaultConfig()
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.max_body_mb", cfg.Fetch.MaxBodyMB)
	v.SetDefault("fetch.requests_per_second", cfg.Fetch.RequestsPerSecond)
	v.SetDefault("schedule.tick", cfg.Schedule.Tick)
	v.SetDefault("schedule.default_interval", cfg.Schedule.DefaultInterval)
	v.SetDefault("schedule.misfire_grace", cfg.Schedule.MisfireGrace)
	v.SetDefault("schedule.timezone", cfg.Schedule.Timezone)
	v.SetDefault("schedule.active_hours_start", cfg.Schedule.ActiveHoursStart)
	v.SetDefault("schedule.active_hours_end", cfg.Schedule.ActiveHoursEnd)
	v.SetDefault("delivery.max_file_mb", cfg.Delivery.MaxFileMB)
	v.SetDefault("delivery.manifest_max_chars", cfg.Delivery.ManifestMaxChars)
	v.SetDefault("delivery.concurrency", cfg.Delivery.Concurrency)
	v.SetDefault("delivery.temp_dir", cfg.Delivery.TempDir)
	v.SetDefault("telegram.token", cfg.Telegram.Token)
	v.SetDefault("telegram.owner_id", cfg.Telegram.OwnerID)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.path", cfg.Log.Path)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("log.max_age_days", cfg.Log.MaxAgeDays)
	v.SetDefault("log.compress", cfg.Log.Compress)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "pagewatch")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PAGEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand paths after loading
	expandPaths(&config)

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand tilde
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	// Convert to absolute path if not already absolute
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

// expandPaths expands all paths in the config
func expandPaths(cfg *Config) {
	cfg.Storage.Path = expandPath(cfg.Storage.Path)
	if cfg.Log.Path != "" {
		cfg.Log.Path = expandPath(cfg.Log.Path)
	}
	if cfg.Delivery.TempDir != "" {
		cfg.Delivery.TempDir = expandPath(cfg.Delivery.TempDir)
	}
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Convert durations to strings for TOML readability
	fetchCfg := map[string]interface{}{
		"timeout":             config.Fetch.Timeout.String(),
		"user_agent":          config.Fetch.UserAgent,
		"max_body_mb":         config.Fetch.MaxBodyMB,
		"requests_per_second": config.Fetch.RequestsPerSecond,
	}

	scheduleCfg := map[string]interface{}{
		"tick":               config.Schedule.Tick.String(),
		"default_interval":   config.Schedule.DefaultInterval.String(),
		"misfire_grace":      config.Schedule.MisfireGrace.String(),
		"timezone":           config.Schedule.Timezone,
		"active_hours_start": config.Schedule.ActiveHoursStart,
		"active_hours_end":   config.Schedule.ActiveHoursEnd,
	}

	deliveryCfg := map[string]interface{}{
		"max_file_mb":        config.Delivery.MaxFileMB,
		"manifest_max_chars": config.Delivery.ManifestMaxChars,
		"concurrency":        config.Delivery.Concurrency,
		"temp_dir":           config.Delivery.TempDir,
	}

	logCfg := map[string]interface{}{
		"level":        config.Log.Level,
		"path":         config.Log.Path,
		"max_size_mb":  config.Log.MaxSizeMB,
		"max_backups":  config.Log.MaxBackups,
		"max_age_days": config.Log.MaxAgeDays,
		"compress":     config.Log.Compress,
	}

	v.Set("storage", map[string]interface{}{"path": config.Storage.Path})
	v.Set("fetch", fetchCfg)
	v.Set("schedule", scheduleCfg)
	v.Set("delivery", deliveryCfg)
	v.Set("telegram", map[string]interface{}{
		"token":    config.Telegram.Token,
		"owner_id": config.Telegram.OwnerID,
	})
	v.Set("log", logCfg)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
