package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/wesm/outboundview/internal/db"
)

// Environment variables read by Load.
const (
	EnvDataDir  = "OUTBOUNDVIEW_DATA_DIR"
	EnvDBDriver = "OUTBOUNDVIEW_DB_DRIVER"
	EnvDSN      = "OUTBOUNDVIEW_DSN"
	EnvCacheTTL = "OUTBOUNDVIEW_CACHE_TTL"
	EnvLogLevel = "OUTBOUNDVIEW_LOG_LEVEL"
)

const (
	configFileName = "config.yaml"
	dbFileName     = "outbound.db"
)

// Config holds all application configuration.
type Config struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	NoBrowser        bool          `yaml:"no_browser"`
	DataDir          string        `yaml:"-"`
	DBDriver         string        `yaml:"db_driver"`
	DSN              string        `yaml:"dsn"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	LogLevel         string        `yaml:"log_level"`
	OptionWindowDays int           `yaml:"option_window_days"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return Config{
		Host:             "127.0.0.1",
		Port:             8080,
		DataDir:          filepath.Join(home, ".outboundview"),
		DBDriver:         db.DriverSQLite,
		CacheTTL:         5 * time.Minute,
		WriteTimeout:     30 * time.Second,
		LogLevel:         "info",
		OptionWindowDays: 90,
	}, nil
}

// Load builds a Config by layering: defaults < config file <
// env < flags. The provided FlagSet must already be parsed by
// the caller. Only flags that were explicitly set override the
// lower layers. A nil FlagSet skips the flag layer.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	// The data dir locates the config file, so its env and
	// flag overrides apply before the file is read.
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if fs != nil && fs.Changed("data-dir") {
		cfg.DataDir, _ = fs.GetString("data-dir")
	}

	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	if err := cfg.loadEnv(); err != nil {
		return cfg, err
	}
	if err := applyFlags(&cfg, fs); err != nil {
		return cfg, err
	}

	if cfg.DSN == "" && cfg.DBDriver == db.DriverSQLite {
		cfg.DSN = filepath.Join(cfg.DataDir, dbFileName)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.DBDriver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required for the %s driver", c.DBDriver)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative: %s", c.CacheTTL)
	}
	if c.OptionWindowDays <= 0 {
		return fmt.Errorf(
			"option window must be positive: %d", c.OptionWindowDays,
		)
	}
	return nil
}

// ConfigPath returns the location of the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.DataDir, configFileName)
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.ConfigPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	// Keys absent from the file keep their current values.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvDBDriver); v != "" {
		c.DBDriver = v
	}
	if v := os.Getenv(EnvDSN); v != "" {
		c.DSN = v
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvCacheTTL, err)
		}
		c.CacheTTL = d
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// RegisterStoreFlags registers the flags shared by every
// command that opens the store.
func RegisterStoreFlags(fs *pflag.FlagSet) {
	fs.String("data-dir", "", "Directory holding config.yaml and the SQLite database")
	fs.String("db-driver", db.DriverSQLite, "Store driver: sqlite or postgres")
	fs.String("dsn", "", "SQLite path or Postgres connection URL")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
}

// RegisterServeFlags registers serve-command flags on fs.
func RegisterServeFlags(fs *pflag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8080, "Port to listen on")
	fs.Bool(
		"no-browser", false,
		"Don't open browser on startup",
	)
	fs.Duration("cache-ttl", 5*time.Minute, "How long query results are reused")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	var err error
	fs.Visit(func(f *pflag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "host":
			cfg.Host = v
		case "port":
			// pflag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(v)
		case "no-browser":
			cfg.NoBrowser = v == "true"
		case "data-dir":
			cfg.DataDir = v
		case "db-driver":
			cfg.DBDriver = v
		case "dsn":
			cfg.DSN = v
		case "log-level":
			cfg.LogLevel = v
		case "cache-ttl":
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("parsing --cache-ttl: %w", perr)
				return
			}
			cfg.CacheTTL = d
		}
	})
	return err
}
