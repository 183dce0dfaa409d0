// Package config loads server settings from a YAML file and TABSERVE_*
// environment variables, environment taking precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Version is stamped by the build via -ldflags.
var Version = "dev"

// Drivers accepted in the database section.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds application-wide configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
	BaseURL    string `mapstructure:"baseURL"`
}

// DatabaseConfig describes one database. Either set connString, or set the
// individual fields and let DSN assemble the driver-native string.
type DatabaseConfig struct {
	Driver         string         `mapstructure:"driver"`
	Host           string         `mapstructure:"host"`
	Port           int            `mapstructure:"port"`
	User           string         `mapstructure:"user"`
	Password       string         `mapstructure:"password"`
	DBName         string         `mapstructure:"dbname"`
	Schema         string         `mapstructure:"schema"`
	SSLMode        string         `mapstructure:"sslmode"`
	ConnString     string         `mapstructure:"connString"`
	ExcludedTables string         `mapstructure:"excludedTables"`
	Options        map[string]any `mapstructure:"options"`
}

// PoolOptions holds connection pool tuning decoded from the free-form
// database.options map. Each driver applies only the knobs it supports.
type PoolOptions struct {
	MaxConns        int           `mapstructure:"maxConns"`
	MinConns        int           `mapstructure:"minConns"`
	MaxConnLifetime time.Duration `mapstructure:"maxConnLifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"maxConnIdleTime"`
}

// PoolOptions decodes the database.options map, accepting durations as
// strings like "30m".
func (d DatabaseConfig) PoolOptions() (PoolOptions, error) {
	var opts PoolOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &opts,
	})
	if err != nil {
		return opts, err
	}
	if err := decoder.Decode(d.Options); err != nil {
		return opts, fmt.Errorf("invalid database.options: %w", err)
	}
	return opts, nil
}

type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listenAddr"`
}

// DSN returns the driver-native connection string. An explicit connString
// wins over the individual fields.
func (d DatabaseConfig) DSN() string {
	if d.ConnString != "" {
		return d.ConnString
	}

	switch d.Driver {
	case DriverMySQL:
		port := d.Port
		if port == 0 {
			port = 3306
		}
		// parseTime makes the driver scan DATE/DATETIME into time.Time
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, port, d.DBName)
	default:
		port := d.Port
		if port == 0 {
			port = 5432
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   fmt.Sprintf("%s:%d", d.Host, port),
			Path:   "/" + d.DBName,
		}
		if d.User != "" {
			u.User = url.User(d.User)
			if d.Password != "" {
				u.User = url.UserPassword(d.User, d.Password)
			}
		}
		if d.SSLMode != "" {
			u.RawQuery = "sslmode=" + d.SSLMode
		}
		return u.String()
	}
}

// Validate rejects settings that would only fail later with a worse message.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Database.ConnString == "" && c.Database.DBName == "" {
		return fmt.Errorf("database.dbname or database.connString must be set")
	}
	return nil
}

// Load reads config from file or environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("tabserve")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	// defaults register the keys so environment overrides decode too
	v.SetDefault("server.listenAddr", ":8080")
	v.SetDefault("server.baseURL", "")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.connString", "")
	v.SetDefault("database.excludedTables", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listenAddr", ":9100")

	v.SetEnvPrefix("TABSERVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}
