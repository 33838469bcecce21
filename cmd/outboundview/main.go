package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wesm/outboundview/internal/cache"
	"github.com/wesm/outboundview/internal/config"
	"github.com/wesm/outboundview/internal/dashboard"
	"github.com/wesm/outboundview/internal/db"
	"github.com/wesm/outboundview/internal/server"
	"github.com/wesm/outboundview/internal/watch"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	browserPollInterval = 100 * time.Millisecond
	browserPollAttempts = 60
	shutdownTimeout     = 10 * time.Second
	configDebounce      = 500 * time.Millisecond
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "outboundview",
		Short: "Dashboard for outbound marketing activity",
		Long: `outboundview reads daily send and reply statistics from SQLite
or Postgres and serves a dashboard of delivery, reply and
conversion rates per account, origin and activity.

Configuration is read from config.yaml in the data directory
(~/.outboundview by default), then OUTBOUNDVIEW_* environment
variables, then flags.`,
		SilenceUsage: true,
	}
	config.RegisterStoreFlags(root.PersistentFlags())
	root.AddCommand(
		newServeCmd(),
		newSeedCmd(),
		newReportCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(),
				"outboundview %s (commit %s, built %s)\n",
				version, commit, buildDate)
		},
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

// env is the state shared by every command that opens the
// store.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	level  zap.AtomicLevel
	db     *db.DB
}

func (e *env) Close() {
	e.db.Close()
	_ = e.logger.Sync()
}

func setupEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger, level, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	if cfg.DBDriver == db.DriverSQLite {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}
	database, err := db.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &env{
		cfg: cfg, logger: logger, level: level, db: database,
	}, nil
}

// newLogger builds a production logger at the named level. The
// returned level can be changed while the logger is in use.
func newLogger(level string) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, zap.AtomicLevel{},
			fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{},
			fmt.Errorf("initializing logger: %w", err)
	}
	return logger, zcfg.Level, nil
}

// watchConfig re-reads config.yaml when it changes and applies
// its log level. Other settings take effect on restart.
func watchConfig(cmd *cobra.Command, e *env) func() {
	if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
		e.logger.Warn("config watcher unavailable", zap.Error(err))
		return func() {}
	}
	w, err := watch.New(
		e.cfg.DataDir, []string{filepath.Base(e.cfg.ConfigPath())},
		configDebounce, e.logger,
		func(_ []string) { reloadLogLevel(cmd, e) },
	)
	if err != nil {
		e.logger.Warn("config watcher unavailable", zap.Error(err))
		return func() {}
	}
	w.Start()
	return w.Stop
}

func reloadLogLevel(cmd *cobra.Command, e *env) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		e.logger.Warn("reloading config", zap.Error(err))
		return
	}
	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		e.logger.Warn("reloading config", zap.Error(err))
		return
	}
	if lvl != e.level.Level() {
		e.level.SetLevel(lvl)
		e.logger.Info("log level changed",
			zap.String("level", lvl.String()))
	}
}

func newService(e *env, reg prometheus.Registerer) *dashboard.Service {
	opts := []dashboard.Option{
		dashboard.WithTTL(e.cfg.CacheTTL),
		dashboard.WithLogger(e.logger),
		dashboard.WithOptionWindow(e.cfg.OptionWindowDays),
	}
	if reg != nil {
		opts = append(opts,
			dashboard.WithCacheMetrics(cache.NewMetrics(reg)))
	}
	return dashboard.New(e.db, opts...)
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	cfg := e.cfg

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		e.logger.Info("port in use",
			zap.Int("requested", cfg.Port), zap.Int("using", port))
	}
	cfg.Port = port

	stopWatcher := watchConfig(cmd, e)
	defer stopWatcher()

	srv := server.New(cfg, e.db, newService(e, reg),
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
		server.WithLogger(e.logger),
		server.WithRegistry(reg),
	)

	url := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	fmt.Fprintf(cmd.OutOrStdout(),
		"outboundview %s listening at %s\n", version, url)
	if !cfg.NoBrowser {
		go openBrowser(url)
	}

	ctx, stop := signal.NotifyContext(
		cmd.Context(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	e.logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(
		context.Background(), shutdownTimeout,
	)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func openBrowser(url string) {
	for range browserPollAttempts {
		time.Sleep(browserPollInterval)
		resp, err := http.Get(url + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
	}

	if name, args, ok := browserCommand(os.Getenv("BROWSER")); ok {
		_ = exec.Command(name, append(args, url)...).Run()
		return
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32",
			"url.dll,FileProtocolHandler", url)
	default:
		return
	}
	_ = cmd.Run()
}

// browserCommand splits a $BROWSER value such as
// `firefox --new-tab` into a program and its arguments.
func browserCommand(v string) (string, []string, bool) {
	parts, err := shlex.Split(v)
	if err != nil || len(parts) == 0 {
		return "", nil, false
	}
	return parts[0], parts[1:], true
}
