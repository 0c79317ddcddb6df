package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/nvidiamon/internal/errors"
)

const (
	DefaultInterval      = 1
	DefaultTempThreshold = 70.0
	DefaultTempMax       = 90.0
	DefaultHysteresis    = 0.0
	DefaultPadding       = 4
	DefaultClearInterval = 10
	DefaultLogLevel      = "info"
	DefaultTelemetryDB   = "/var/lib/nvidiamon/telemetry.db"

	configEnv    = "NVIDIAMON_CONFIG"
	envPrefix    = "NVIDIAMON"
	configName   = "nvidiamon"
	systemConfig = "/etc"
)

type Config struct {
	Interval         int     `mapstructure:"interval"`
	MemTemp          bool    `mapstructure:"memtemp"`
	FanTempThreshold float64 `mapstructure:"fan_temp_threshold"`
	FanTempMax       float64 `mapstructure:"fan_temp_max"`
	Hysteresis       float64 `mapstructure:"hysteresis"`
	Padding          int     `mapstructure:"padding"`
	ClearInterval    int     `mapstructure:"clear_interval"`
	ZeroLockUnlocked bool    `mapstructure:"zero_lock_unlocked"`
	Telemetry        bool    `mapstructure:"telemetry"`
	TelemetryDB      string  `mapstructure:"database"`
	LogLevel         string  `mapstructure:"log_level"`
}

// Load reads configuration from flags, environment and an optional TOML
// file, in that order of precedence, and validates the result.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("memtemp", false)
	v.SetDefault("fan_temp_threshold", DefaultTempThreshold)
	v.SetDefault("fan_temp_max", DefaultTempMax)
	v.SetDefault("hysteresis", DefaultHysteresis)
	v.SetDefault("padding", DefaultPadding)
	v.SetDefault("clear_interval", DefaultClearInterval)
	v.SetDefault("zero_lock_unlocked", true)
	v.SetDefault("telemetry", false)
	v.SetDefault("database", DefaultTelemetryDB)
	v.SetDefault("log_level", DefaultLogLevel)

	flags := pflag.NewFlagSet("nvidiamon", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Int("interval", DefaultInterval, "Sampling interval in seconds")
	flags.Bool("memtemp", false, "Read GDDR6 memory temperatures and drive fans (requires root)")
	flags.Float64("fan-temp-threshold", DefaultTempThreshold, "Memory temperature at which fan ramp starts (°C)")
	flags.Float64("fan-temp-max", DefaultTempMax, "Memory temperature at which fans reach 100% (°C)")
	flags.Float64("hysteresis", DefaultHysteresis, "Temperature band below the threshold before reverting to auto (°C)")
	flags.Int("padding", DefaultPadding, "Spaces between dashboard columns")
	flags.Int("clear-interval", DefaultClearInterval, "Seconds between full terminal clears")
	flags.Bool("telemetry", false, "Record per-tick telemetry to SQLite")
	flags.String("database", DefaultTelemetryDB, "Path to the telemetry database")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")

	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	bindings := map[string]string{
		"interval":           "interval",
		"memtemp":            "memtemp",
		"fan_temp_threshold": "fan-temp-threshold",
		"fan_temp_max":       "fan-temp-max",
		"hysteresis":         "hysteresis",
		"padding":            "padding",
		"clear_interval":     "clear-interval",
		"telemetry":          "telemetry",
		"database":           "database",
		"log_level":          "log-level",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(configEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(systemConfig)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file: "+err.Error())
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks invariants that must hold before the sampling loop starts.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval < 1 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	if c.FanTempThreshold >= c.FanTempMax {
		return errFactory.WithData(errors.ErrInvalidThresholds, struct {
			Threshold float64
			Max       float64
		}{c.FanTempThreshold, c.FanTempMax})
	}

	if c.Hysteresis < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "hysteresis must not be negative")
	}

	if c.Padding < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "padding must not be negative")
	}

	if c.ClearInterval < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "clear_interval must be at least 1")
	}

	if c.Telemetry && c.TelemetryDB == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "telemetry enabled without database path")
	}

	if !ValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// ValidLogLevel reports whether level names a supported log level.
func ValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}
