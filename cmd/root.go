package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/stocktracker/internal/api"
	"github.com/matheuskafuri/stocktracker/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig    string
	flagRefresh   bool
	flagScreen    string
	flagTicker    string
	flagBrokerage string
	flagCompany   string
)

var rootCmd = &cobra.Command{
	Use:   "stocktracker",
	Short: "Terminal dashboard for analyst ratings",
	Long:  "stocktracker lists analyst rating events and scored recommendations from a ratings API, cached locally for offline use.",
	RunE:  runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")

	rootCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "fetch fresh data before showing the cache")
	rootCmd.Flags().StringVar(&flagScreen, "screen", "ratings", "screen to open: ratings or recommendations")
	addFilterFlags(rootCmd)

	versionCmd.Flags().BoolVar(&flagCheck, "check", false, "also check for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ratingsCmd)
	rootCmd.AddCommand(recommendationsCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagTicker, "ticker", "", "only show tickers containing this text")
	c.Flags().StringVar(&flagBrokerage, "brokerage", "", "only show brokerages containing this text")
	c.Flags().StringVar(&flagCompany, "company", "", "only show companies containing this text")
}

var flagCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "stocktracker %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagCheck {
			return
		}
		client, err := update.NewClient(api.WithUserAgent("stocktracker/" + version))
		if err != nil {
			return
		}
		if res := update.Check(cmd.Context(), client, version); res != nil {
			fmt.Fprintf(out, "A newer release is available: %s\n", res.LatestVersion)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
