package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matheuskafuri/stocktracker/internal/api"
	"github.com/matheuskafuri/stocktracker/internal/cache"
	"github.com/matheuskafuri/stocktracker/internal/config"
	"github.com/matheuskafuri/stocktracker/internal/format"
	"github.com/matheuskafuri/stocktracker/internal/logging"
	"github.com/matheuskafuri/stocktracker/internal/notify"
	"github.com/matheuskafuri/stocktracker/internal/stocks"
	"github.com/matheuskafuri/stocktracker/internal/store"
	"github.com/matheuskafuri/stocktracker/internal/tui"
)

// env is everything a command needs, built from the config file.
type env struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *cache.Cache
	svc      *stocks.Service
	fmt      *format.Formatter
	notifier *notify.Center
}

func newEnv() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, config.LogPath())
	if err != nil {
		// Logging is diagnostics only.
		log = zap.NewNop()
	}

	client, err := api.New(cfg.Client(),
		api.WithLogger(log),
		api.WithUserAgent("stocktracker/"+version),
	)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("configuring api client: %w", err)
	}

	f, err := format.New(cfg.Display.Locale, cfg.Display.Currency)
	if err != nil {
		log.Warn("falling back to default display format", zap.Error(err))
		f = format.Default()
	}

	db, err := cache.Open(config.CachePath())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	return &env{
		cfg:      cfg,
		log:      log,
		db:       db,
		svc:      stocks.NewService(client),
		fmt:      f,
		notifier: notify.New(),
	}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.log.Warn("closing cache", zap.Error(err))
	}
	_ = e.log.Sync()
}

// ratingsStore builds the rating events store, seeded from the cache. The
// server is asked to pre-filter by server; only unfiltered lists are written
// back to the cache.
func (e *env) ratingsStore(server stocks.Filter) *tui.RatingsStore {
	opts := store.Options[stocks.RatingEvent, stocks.Filter]{
		Name: "rating events",
		Fetch: func(ctx context.Context) ([]stocks.RatingEvent, error) {
			return e.svc.FetchItems(ctx, server)
		},
		Normalize: stocks.NormalizeEvents,
		Match:     stocks.MatchEvent,
		Logger:    e.log,
		Notifier:  e.notifier,
	}
	if server.IsZero() {
		opts.Persist = e.db.ReplaceEvents
	}

	s := store.New(opts)
	cached, err := e.db.Events()
	if err != nil {
		e.log.Warn("reading cached rating events", zap.Error(err))
	}
	s.Seed(cached)
	return s
}

func (e *env) recommendationsStore() *tui.RecommendationsStore {
	s := store.New(store.Options[stocks.Recommendation, stocks.Filter]{
		Name:      "recommendations",
		Fetch:     e.svc.FetchRecommendations,
		Normalize: stocks.NormalizeRecommendations,
		Match:     stocks.MatchRecommendation,
		Logger:    e.log,
		Notifier:  e.notifier,
		Persist:   e.db.ReplaceRecommendations,
	})
	cached, err := e.db.Recommendations(0)
	if err != nil {
		e.log.Warn("reading cached recommendations", zap.Error(err))
	}
	s.Seed(cached)
	return s
}

// autoPrune drops cache rows past the retention window after a refresh.
func (e *env) autoPrune() {
	n, err := e.db.Prune(e.cfg.RetentionDuration())
	if err != nil {
		e.log.Warn("auto prune failed", zap.Error(err))
		return
	}
	if n > 0 {
		e.log.Info("auto pruned cache", zap.Int64("rows", n))
	}
}

func filterFromFlags() stocks.Filter {
	return stocks.Filter{
		Ticker:    strings.TrimSpace(flagTicker),
		Brokerage: strings.TrimSpace(flagBrokerage),
		Company:   strings.TrimSpace(flagCompany),
	}
}
