package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/stocktracker/internal/browser"
	"github.com/matheuskafuri/stocktracker/internal/config"
)

var openCmd = &cobra.Command{
	Use:   "open TICKER",
	Short: "Open a ticker's quote page in the browser",
	Long:  "Open the quote page for TICKER using the display.quote_url template from the config.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		ticker := strings.ToUpper(strings.TrimSpace(args[0]))
		if ticker == "" {
			return fmt.Errorf("ticker must not be empty")
		}
		if err := browser.OpenQuote(cfg.Display.QuoteURL, ticker); err != nil {
			return fmt.Errorf("opening quote for %s: %w", ticker, err)
		}
		return nil
	},
}
