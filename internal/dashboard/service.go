// Package dashboard runs one validate, fetch and recompute
// cycle per filter change and assembles the view every
// renderer consumes.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/outboundview/internal/cache"
	"github.com/wesm/outboundview/internal/db"
	"github.com/wesm/outboundview/internal/insight"
	"github.com/wesm/outboundview/internal/metrics"
)

// Store is the read side of the data layer.
type Store interface {
	Sends(ctx context.Context, f db.Filter) ([]metrics.SendRecord, error)
	Replies(ctx context.Context, f db.Filter) ([]metrics.ReplyRecord, error)
	MetricRows(ctx context.Context, f db.Filter) ([]metrics.Row, error)
	Accounts(ctx context.Context, since string) ([]string, error)
	Origins(ctx context.Context, since, account string) ([]string, error)
	Funnels(ctx context.Context, since, account string) ([]string, error)
}

// Defaults for Service options.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultOptionDays = 90

	originTableLimit = 20
	topOriginsLimit  = 10
)

type config struct {
	ttl        time.Duration
	clock      cache.Clock
	logger     *zap.Logger
	metrics    *cache.Metrics
	optionDays int
}

// Option configures a Service.
type Option func(*config)

// WithTTL sets how long fetched datasets are reused.
func WithTTL(d time.Duration) Option {
	return func(c *config) { c.ttl = d }
}

// WithClock sets the clock for cache expiry and date defaults.
func WithClock(clk cache.Clock) Option {
	return func(c *config) { c.clock = clk }
}

// WithLogger sets the logger for degraded fetches.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCacheMetrics records cache activity in m.
func WithCacheMetrics(m *cache.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithOptionWindow sets how many days back filter option
// lists look.
func WithOptionWindow(days int) Option {
	return func(c *config) { c.optionDays = days }
}

// Service owns the query caches and builds views.
type Service struct {
	store      Store
	clock      cache.Clock
	logger     *zap.Logger
	optionDays int

	rows    *cache.Cache[[]metrics.Row]
	sends   *cache.Cache[[]metrics.SendRecord]
	replies *cache.Cache[[]metrics.ReplyRecord]
	options *cache.Cache[[]string]
}

// New returns a Service reading from store.
func New(store Store, opts ...Option) *Service {
	cfg := config{
		ttl:        DefaultTTL,
		clock:      cache.SystemClock{},
		logger:     zap.NewNop(),
		optionDays: DefaultOptionDays,
	}
	for _, fn := range opts {
		fn(&cfg)
	}
	copts := []cache.Option{
		cache.WithClock(cfg.clock),
		cache.WithMetrics(cfg.metrics),
	}
	return &Service{
		store:      store,
		clock:      cfg.clock,
		logger:     cfg.logger,
		optionDays: cfg.optionDays,
		rows: cache.New[[]metrics.Row](
			"metric_rows", cfg.ttl, copts...),
		sends: cache.New[[]metrics.SendRecord](
			"sends", cfg.ttl, copts...),
		replies: cache.New[[]metrics.ReplyRecord](
			"replies", cfg.ttl, copts...),
		options: cache.New[[]string](
			"options", cfg.ttl, copts...),
	}
}

// Today returns the clock's current date as midnight UTC.
func (s *Service) Today() time.Time {
	now := s.clock.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Resolve validates q against the service clock.
func (s *Service) Resolve(q Query) (db.Filter, error) {
	return Resolve(q, s.Today())
}

// Options holds the filter choices offered to the user.
type Options struct {
	Accounts []string `json:"accounts"`
	Origins  []string `json:"origins"`
	Funnels  []string `json:"funnels"`
}

// Summary is the global aggregate with its tiers.
type Summary struct {
	metrics.Aggregate
	Tiers metrics.Tiers `json:"tiers"`
}

// View is everything a renderer needs for one filter.
type View struct {
	Query        Query                  `json:"query"`
	Filter       db.Filter              `json:"filter"`
	Days         int                    `json:"days"`
	Errors       []string               `json:"errors"`
	Empty        bool                   `json:"empty"`
	Summary      Summary                `json:"summary"`
	Funnel       metrics.Funnel         `json:"funnel"`
	Accounts     []metrics.Named        `json:"accounts"`
	Origins      []metrics.OriginStat   `json:"origins"`
	TopOrigins   []metrics.OriginStat   `json:"top_origins"`
	Channels     []metrics.ChannelShare `json:"channels"`
	DailySends   []metrics.SendDay      `json:"daily_sends"`
	DailyReplies []metrics.ReplyDay     `json:"daily_replies"`
	Hierarchy    metrics.Hierarchy      `json:"hierarchy"`
	Report       insight.Report         `json:"report"`
	Options      Options                `json:"options"`
	GeneratedAt  time.Time              `json:"generated_at"`
}

// Build validates q, fetches the three datasets and derives
// the view. Validation failures return a *ValidationError and
// fetch nothing. A failed dataset is logged, reported in
// View.Errors and treated as empty; only cancellation of ctx
// aborts the build.
func (s *Service) Build(ctx context.Context, q Query) (View, error) {
	f, err := s.Resolve(q)
	if err != nil {
		return View{}, err
	}

	var (
		rows    []metrics.Row
		sends   []metrics.SendRecord
		replies []metrics.ReplyRecord
		opts    Options
		errs    errorList
	)
	key := f.Key()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.rows.Get(gctx, key,
			func(ctx context.Context) ([]metrics.Row, error) {
				return s.store.MetricRows(ctx, f)
			})
		rows = v
		return errs.degrade(s.logger, "metrics", err)
	})
	g.Go(func() error {
		v, err := s.sends.Get(gctx, key,
			func(ctx context.Context) ([]metrics.SendRecord, error) {
				return s.store.Sends(ctx, f)
			})
		sends = v
		return errs.degrade(s.logger, "send activity", err)
	})
	g.Go(func() error {
		v, err := s.replies.Get(gctx, key,
			func(ctx context.Context) ([]metrics.ReplyRecord, error) {
				return s.store.Replies(ctx, f)
			})
		replies = v
		return errs.degrade(s.logger, "replies", err)
	})
	g.Go(func() error {
		var err error
		opts, err = s.loadOptions(gctx, f.Account, &errs)
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	v := Compute(f, rows, sends, replies)
	v.Query = q
	v.Options = opts
	v.Errors = errs.list()
	v.GeneratedAt = s.clock.Now()
	return v, nil
}

// Options returns the filter choices for account, which may be
// empty for all accounts. Failed lists degrade to empty.
func (s *Service) Options(
	ctx context.Context, account string,
) (Options, []string, error) {
	var errs errorList
	opts, err := s.loadOptions(ctx, selection(account), &errs)
	if err != nil {
		return Options{}, nil, err
	}
	return opts, errs.list(), nil
}

func (s *Service) loadOptions(
	ctx context.Context, account string, errs *errorList,
) (Options, error) {
	since := s.Today().
		AddDate(0, 0, -s.optionDays).Format(time.DateOnly)

	list := func(
		kind, key string,
		load func(context.Context) ([]string, error),
	) ([]string, error) {
		v, err := s.options.Get(ctx, kind+"\x1f"+key, load)
		if err := errs.degrade(s.logger, kind, err); err != nil {
			return nil, err
		}
		if v == nil {
			v = []string{}
		}
		return v, nil
	}

	var o Options
	var err error
	if o.Accounts, err = list("accounts", since,
		func(ctx context.Context) ([]string, error) {
			return s.store.Accounts(ctx, since)
		}); err != nil {
		return Options{}, err
	}
	if o.Origins, err = list("origins", since+"\x1f"+account,
		func(ctx context.Context) ([]string, error) {
			return s.store.Origins(ctx, since, account)
		}); err != nil {
		return Options{}, err
	}
	if o.Funnels, err = list("funnels", since+"\x1f"+account,
		func(ctx context.Context) ([]string, error) {
			return s.store.Funnels(ctx, since, account)
		}); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Refresh drops every cached dataset so the next Build
// queries the store again.
func (s *Service) Refresh() {
	s.rows.InvalidateAll()
	s.sends.InvalidateAll()
	s.replies.InvalidateAll()
	s.options.InvalidateAll()
	s.logger.Info("dashboard caches invalidated")
}

// Compute derives a view from fetched datasets. It performs
// no I/O.
func Compute(
	f db.Filter,
	rows []metrics.Row,
	sends []metrics.SendRecord,
	replies []metrics.ReplyRecord,
) View {
	total := metrics.Total(rows)
	v := View{
		Filter:  f,
		Days:    f.Days(),
		Errors:  []string{},
		Empty:   len(rows) == 0,
		Summary: Summary{Aggregate: total, Tiers: metrics.TiersOf(total)},
		Funnel:  metrics.BuildFunnel(total.Totals),

		Accounts:     metrics.SortedByVolume(metrics.ByAccount(rows)),
		Origins:      metrics.SortedOrigins(rows, originTableLimit),
		TopOrigins:   metrics.SortedOrigins(rows, topOriginsLimit),
		Channels:     metrics.ChannelShares(rows),
		DailySends:   metrics.DailySends(sends),
		DailyReplies: metrics.DailyReplies(replies),
		Hierarchy:    metrics.BuildHierarchy(rows),
	}
	if !v.Empty {
		v.Report = insight.Evaluate(rows)
	}
	return v
}

// errorList collects user-visible messages from concurrent
// fetches.
type errorList struct {
	mu   sync.Mutex
	msgs []string
}

// degrade records err as a message and returns nil so the
// remaining datasets still load. Cancellation is returned
// unchanged.
func (l *errorList) degrade(
	logger *zap.Logger, dataset string, err error,
) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Error("dataset fetch failed",
		zap.String("dataset", dataset), zap.Error(err))
	l.mu.Lock()
	l.msgs = append(l.msgs,
		fmt.Sprintf("Could not load %s: %v", dataset, err))
	l.mu.Unlock()
	return nil
}

func (l *errorList) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.msgs))
	copy(out, l.msgs)
	sort.Strings(out)
	return out
}
