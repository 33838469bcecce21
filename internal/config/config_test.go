package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/wesm/outboundview/internal/db"
)

// setupConfigDir creates a temp data dir, sets the env var,
// and returns (dir, configPath).
func setupConfigDir(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	return dir, filepath.Join(dir, configFileName)
}

// writeConfigRaw writes raw string content to config.yaml.
func writeConfigRaw(
	t *testing.T, dir string, content string,
) {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(
		path, []byte(content), 0o600,
	); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func loadConfigFromFlags(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterStoreFlags(fs)
	RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return Load(fs)
}

func TestLoad_DefaultsWithoutFlags(t *testing.T) {
	dir, _ := setupConfigDir(t)
	cfg, err := loadConfigFromFlags(t)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf(
			"Host = %q, want default %q",
			cfg.Host, "127.0.0.1",
		)
	}
	if cfg.Port != 8080 {
		t.Errorf(
			"Port = %d, want default %d", cfg.Port, 8080,
		)
	}
	if cfg.DBDriver != db.DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, db.DriverSQLite)
	}
	if want := filepath.Join(dir, "outbound.db"); cfg.DSN != want {
		t.Errorf("DSN = %q, want %q", cfg.DSN, want)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %s, want 5m", cfg.CacheTTL)
	}
	if cfg.OptionWindowDays != 90 {
		t.Errorf("OptionWindowDays = %d, want 90", cfg.OptionWindowDays)
	}
}

func TestLoad_NilFlagSet(t *testing.T) {
	setupConfigDir(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want %q", cfg.Host, "127.0.0.1")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir, _ := setupConfigDir(t)
	writeConfigRaw(t, dir, `
port: 9000
cache_ttl: 90s
log_level: debug
option_window_days: 30
`)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %s, want 1m30s", cfg.CacheTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.OptionWindowDays != 30 {
		t.Errorf("OptionWindowDays = %d, want 30", cfg.OptionWindowDays)
	}
	// Untouched keys keep defaults.
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want default", cfg.Host)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir, _ := setupConfigDir(t)
	writeConfigRaw(t, dir, "cache_ttl: 1m\ndsn: /from/file.db\n")
	t.Setenv(EnvCacheTTL, "10s")
	t.Setenv(EnvDSN, "/from/env.db")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheTTL != 10*time.Second {
		t.Errorf("CacheTTL = %s, want 10s", cfg.CacheTTL)
	}
	if cfg.DSN != "/from/env.db" {
		t.Errorf("DSN = %q, want env value", cfg.DSN)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	setupConfigDir(t)
	t.Setenv(EnvCacheTTL, "10s")

	cfg, err := loadConfigFromFlags(t,
		"--host", "0.0.0.0", "--port", "9090",
		"--cache-ttl", "2m", "--no-browser")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want %q", cfg.Host, "0.0.0.0")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want %d", cfg.Port, 9090)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %s, want 2m", cfg.CacheTTL)
	}
	if !cfg.NoBrowser {
		t.Error("NoBrowser = false, want true")
	}
}

func TestLoad_DataDirFlagLocatesConfigFile(t *testing.T) {
	setupConfigDir(t)
	other := t.TempDir()
	writeConfigRaw(t, other, "port: 7000\n")

	cfg, err := loadConfigFromFlags(t, "--data-dir", other)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != other {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, other)
	}
	if cfg.Port != 7000 {
		t.Errorf("Port = %d, want 7000 from %s", cfg.Port, other)
	}
	if want := filepath.Join(other, "outbound.db"); cfg.DSN != want {
		t.Errorf("DSN = %q, want %q", cfg.DSN, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		file  string
		flags []string
	}{
		{name: "BadYAML", file: "port: [unclosed"},
		{name: "BadEnvTTL", env: map[string]string{EnvCacheTTL: "soon"}},
		{name: "UnknownDriver", flags: []string{"--db-driver", "oracle"}},
		{name: "PostgresWithoutDSN", flags: []string{"--db-driver", "postgres"}},
		{name: "NegativeWindow", file: "option_window_days: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, _ := setupConfigDir(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				writeConfigRaw(t, dir, tt.file)
			}
			if _, err := loadConfigFromFlags(t, tt.flags...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
