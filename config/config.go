// Package config loads process settings for the server and CLI.
//
// Settings come from an optional YAML file, then PLAN_* environment
// variables (PLAN_SERVER_PORT overrides server.port), on top of defaults.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "memory"
	Path   string `mapstructure:"path"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// EngineConfig supplies defaults for plans that leave them unset.
type EngineConfig struct {
	HorizonMonths int     `mapstructure:"horizon_months"`
	TaxRate       float64 `mapstructure:"tax_rate"`
}

// SchedulerConfig drives the periodic re-run of stored plans.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"` // standard 5-field cron or @descriptor
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads path (YAML) over the defaults. With an empty path only the
// environment is consulted.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", "projections.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", true)
	v.SetDefault("engine.horizon_months", 72)
	v.SetDefault("engine.tax_rate", 0.2517)
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.spec", "@daily")
	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	})

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.DB.Driver != "sqlite" && c.DB.Driver != "memory" {
		return errors.New("db.driver must be sqlite or memory")
	}
	if c.Engine.HorizonMonths < 0 {
		return errors.New("engine.horizon_months must not be negative")
	}
	if c.Engine.TaxRate < 0 || c.Engine.TaxRate > 1 {
		return errors.New("engine.tax_rate must be between 0 and 1")
	}
	return nil
}
