// Package config loads datagrid configuration from defaults, an optional
// config.yaml and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"datagrid/internal/domain/query"
	"datagrid/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. DATAGRID_TABLE_PAGE_SIZE.
const EnvPrefix = "DATAGRID"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Query    QueryConfig    `mapstructure:"query"`
	Table    TableConfig    `mapstructure:"table"`
	Export   ExportConfig   `mapstructure:"export"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Env   string `mapstructure:"env"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	// ReloadDelay coalesces change notifications before a table reload.
	ReloadDelay time.Duration `mapstructure:"reload_delay"`
}

// Dataset sources.
const (
	SourceGenerated = "generated"
	SourcePostgres  = "postgres"
)

type DatasetConfig struct {
	Source string `mapstructure:"source"`
	Seed   uint64 `mapstructure:"seed"`
	Count  int    `mapstructure:"count"`
	Users  int    `mapstructure:"users"`
}

type QueryConfig struct {
	Debounce      time.Duration `mapstructure:"debounce"`
	Throttle      time.Duration `mapstructure:"throttle"`
	CompressAbove int           `mapstructure:"compress_above"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

type TableConfig struct {
	PageSize    int    `mapstructure:"page_size"`
	MaxPageSize int    `mapstructure:"max_page_size"`
	Timezone    string `mapstructure:"timezone"`
}

type ExportConfig struct {
	Filename  string `mapstructure:"filename"`
	SheetName string `mapstructure:"sheet_name"`
}

// GetDefaults returns a Config with all default values.
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log:      LogConfig{Level: "info", Env: "development"},
		Database: DatabaseConfig{MaxConns: 10, MinConns: 1, ReloadDelay: 500 * time.Millisecond},
		Dataset:  DatasetConfig{Source: SourceGenerated, Seed: 42, Count: 500, Users: 20},
		Query: QueryConfig{
			Debounce:      300 * time.Millisecond,
			Throttle:      time.Second,
			CompressAbove: 1024,
		},
		Table:  TableConfig{PageSize: 10, MaxPageSize: 1000, Timezone: "UTC"},
		Export: ExportConfig{Filename: "export", SheetName: "Data"},
	}
}

// envBindings keeps the plain variable names deployments already set.
var envBindings = map[string]string{
	"server.port":  "APP_PORT",
	"log.level":    "LOG_LEVEL",
	"log.env":      "APP_ENV",
	"database.url": "DATABASE_URL",
}

// Load reads configuration. path names an explicit config file; when empty,
// config.yaml is looked up in the working directory and ./config. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v, GetDefaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.env", d.Log.Env)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.min_conns", d.Database.MinConns)
	v.SetDefault("database.reload_delay", d.Database.ReloadDelay)
	v.SetDefault("dataset.source", d.Dataset.Source)
	v.SetDefault("dataset.seed", d.Dataset.Seed)
	v.SetDefault("dataset.count", d.Dataset.Count)
	v.SetDefault("dataset.users", d.Dataset.Users)
	v.SetDefault("query.debounce", d.Query.Debounce)
	v.SetDefault("query.throttle", d.Query.Throttle)
	v.SetDefault("query.compress_above", d.Query.CompressAbove)
	v.SetDefault("query.key_prefix", d.Query.KeyPrefix)
	v.SetDefault("table.page_size", d.Table.PageSize)
	v.SetDefault("table.max_page_size", d.Table.MaxPageSize)
	v.SetDefault("table.timezone", d.Table.Timezone)
	v.SetDefault("export.filename", d.Export.Filename)
	v.SetDefault("export.sheet_name", d.Export.SheetName)
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	switch c.Dataset.Source {
	case SourceGenerated:
	case SourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("dataset source %q requires database.url", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown dataset source %q", c.Dataset.Source)
	}
	if c.Table.PageSize < 1 {
		return fmt.Errorf("table.page_size must be positive, got %d", c.Table.PageSize)
	}
	if c.Table.MaxPageSize > 0 && c.Table.MaxPageSize < c.Table.PageSize {
		return fmt.Errorf("table.max_page_size %d is below table.page_size %d", c.Table.MaxPageSize, c.Table.PageSize)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the table timezone used for date filters.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Table.Timezone)
	if err != nil {
		return nil, fmt.Errorf("table.timezone: %w", err)
	}
	return loc, nil
}

// Development reports whether logs should be human-readable.
func (c *Config) Development() bool { return c.Log.Env == "development" }

// Logger returns the logger configuration.
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.Log.Level, Development: c.Development()}
}

// QueryDefaults returns the default query state of every table.
func (c *Config) QueryDefaults(sorts []query.Sort) query.Defaults {
	d := query.DefaultDefaults()
	d.PageSize = c.Table.PageSize
	d.MaxPageSize = c.Table.MaxPageSize
	d.Sorts = sorts
	return d
}

// QueryKeys returns the parameter names, prefixed when configured.
func (c *Config) QueryKeys() query.Keys {
	return query.DefaultKeys().WithPrefix(c.Query.KeyPrefix)
}

// SyncConfig returns the synchronizer cadence.
func (c *Config) SyncConfig(log *logger.Logger) query.SyncConfig {
	sc := query.DefaultSyncConfig()
	sc.Debounce = c.Query.Debounce
	sc.Throttle = c.Query.Throttle
	sc.Logger = log
	return sc
}
