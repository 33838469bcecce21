package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/wesm/outboundview/internal/config"
)

// run executes the root command with args against a temp data
// dir and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "outboundview dev"), out)
}

func TestSeedThenReport(t *testing.T) {
	t.Setenv(config.EnvDataDir, t.TempDir())

	out, err := run(t, "seed", "--days", "5", "--end", "2024-06-30")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 3 accounts")

	out, err = run(t, "report",
		"--from", "2024-06-26", "--to", "2024-06-30",
		"--account", "acme", "--format", "json")
	require.NoError(t, err)

	var v struct {
		Days    int  `json:"days"`
		Empty   bool `json:"empty"`
		Summary struct {
			Sent int64 `json:"total_sent"`
		} `json:"summary"`
		Accounts []struct {
			Name string `json:"name"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	assert.Equal(t, 5, v.Days)
	assert.False(t, v.Empty)
	assert.Positive(t, v.Summary.Sent)
	require.Len(t, v.Accounts, 1)
	assert.Equal(t, "acme", v.Accounts[0].Name)

	out, err = run(t, "report", "--from", "2024-06-26", "--to", "2024-06-30")
	require.NoError(t, err)
	assert.Contains(t, out, "Key metrics")
	assert.Contains(t, out, "2024-06-26 to 2024-06-30 (5 days)")
}

func TestReportErrors(t *testing.T) {
	t.Setenv(config.EnvDataDir, t.TempDir())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			"UnknownFormat",
			[]string{"report", "--format", "xml"},
			`unknown format "xml"`,
		},
		{
			"ReversedDates",
			[]string{"report", "--from", "2024-06-30", "--to", "2024-06-01"},
			"Start date must be on or before the end date.",
		},
		{
			"BadDriver",
			[]string{"report", "--db-driver", "oracle"},
			`unsupported db driver "oracle"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeedInvalidEnd(t *testing.T) {
	t.Setenv(config.EnvDataDir, t.TempDir())
	_, err := run(t, "seed", "--end", "tomorrow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --end")
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, lvl, err := newLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, l)
		assert.Equal(t, level, lvl.Level().String())
	}
	_, _, err := newLogger("loud")
	assert.Error(t, err)
}

func TestReloadLogLevel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvDataDir, dir)

	cmd := newServeCmd()
	config.RegisterStoreFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse(nil))

	logger, level, err := newLogger("info")
	require.NoError(t, err)
	e := &env{logger: logger, level: level}

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.yaml"),
		[]byte("log_level: debug\n"), 0o600,
	))
	reloadLogLevel(cmd, e)
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	// A broken file keeps the current level.
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.yaml"),
		[]byte("log_level: [\n"), 0o600,
	))
	reloadLogLevel(cmd, e)
	assert.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{"", "", nil, false},
		{"firefox", "firefox", []string{}, true},
		{`firefox --new-tab`, "firefox", []string{"--new-tab"}, true},
		{`"/opt/My Browser/bin" -x`, "/opt/My Browser/bin", []string{"-x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, args, ok := browserCommand(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			if tt.wantOK {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}
