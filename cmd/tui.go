package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/stocktracker/internal/stocks"
	"github.com/matheuskafuri/stocktracker/internal/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	last, err := e.db.LastRefresh()
	if err != nil {
		e.log.Warn("reading last refresh", zap.Error(err))
	}
	force := flagRefresh || e.db.NeedsRefresh(e.cfg.RefreshDuration())
	if force {
		e.autoPrune()
	}

	e.log.Info("starting",
		zap.String("version", version),
		zap.String("base_url", e.cfg.API.BaseURL),
		zap.String("screen", flagScreen),
		zap.Bool("force_refresh", force),
	)

	return tui.Run(tui.RunOpts{
		Ratings:         e.ratingsStore(stocks.Filter{}),
		Recommendations: e.recommendationsStore(),
		Notifier:        e.notifier,
		Formatter:       e.fmt,
		Logger:          e.log,
		QuoteURL:        e.cfg.Display.QuoteURL,
		RefreshInterval: e.cfg.RefreshDuration(),
		Screen:          flagScreen,
		Filter:          filterFromFlags(),
		ForceRefresh:    force,
		LastRefresh:     last,
	})
}
