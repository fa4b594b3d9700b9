package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matheuskafuri/stocktracker/internal/format"
	"github.com/matheuskafuri/stocktracker/internal/stocks"
)

var (
	flagOffline bool
	flagLimit   int
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Print rating events as a table",
	Long: `Fetch the latest rating events and print them, newest first.

With --offline, or when the ratings service cannot be reached, the cached list is printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		filter := filterFromFlags()
		var server stocks.Filter
		if !flagOffline {
			server = filter
		}
		s := e.ratingsStore(server)
		if !flagOffline {
			if err := s.Load(cmd.Context(), false); err != nil {
				if len(s.Items()) == 0 {
					return fmt.Errorf("loading rating events: %w", err)
				}
				warnStale(cmd.ErrOrStderr(), s.Err())
			} else if filter.IsZero() {
				e.autoPrune()
			}
		}
		s.SetFilter(filter)

		events := s.Filtered()
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), emptyMessage("rating events", filter))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderEventTable(events, e.fmt))
		return nil
	},
}

var recommendationsCmd = &cobra.Command{
	Use:     "recommendations",
	Aliases: []string{"recs"},
	Short:   "Print the best scored recommendations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		s := e.recommendationsStore()
		if !flagOffline {
			if err := s.Load(cmd.Context(), false); err != nil {
				if len(s.Items()) == 0 {
					return fmt.Errorf("loading recommendations: %w", err)
				}
				warnStale(cmd.ErrOrStderr(), s.Err())
			}
		}

		filter := filterFromFlags()
		s.SetFilter(filter)
		recs := s.Filtered()
		if flagLimit > 0 && len(recs) > flagLimit {
			recs = recs[:flagLimit]
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), emptyMessage("recommendations", filter))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderRecommendationTable(recs, e.fmt))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{ratingsCmd, recommendationsCmd} {
		c.Flags().BoolVar(&flagOffline, "offline", false, "print the cached list without fetching")
		addFilterFlags(c)
	}
	recommendationsCmd.Flags().IntVar(&flagLimit, "limit", 10, "number of recommendations to print, 0 for all")
}

func warnStale(w io.Writer, msg string) {
	if msg == "" {
		msg = "Could not refresh."
	}
	fmt.Fprintf(w, "[warn] %s Showing cached data.\n", msg)
}

func emptyMessage(noun string, f stocks.Filter) string {
	if f.IsZero() {
		return "No " + noun + " yet."
	}
	return fmt.Sprintf("No %s match %s.", noun, f.Label())
}

func renderEventTable(events []stocks.RatingEvent, f *format.Formatter) string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		change := ""
		if pct, ok := e.TargetDelta(); ok {
			change = f.Percentage(pct)
		}
		rows = append(rows, []string{
			e.Ticker,
			e.Company,
			e.Brokerage,
			e.Action,
			e.RatingChange(),
			f.Currency(e.TargetTo),
			change,
			f.DateString(e.Time),
		})
	}
	return newTable("Ticker", "Company", "Brokerage", "Action", "Rating", "Target", "Change", "Time").
		Rows(rows...).
		String()
}

func renderRecommendationTable(recs []stocks.Recommendation, f *format.Formatter) string {
	rows := make([][]string, 0, len(recs))
	for i, r := range recs {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Ticker,
			r.Company,
			r.Score,
			r.Label,
			r.RatingChange(),
			f.Currency(r.TargetTo),
		})
	}
	return newTable("#", "Ticker", "Company", "Score", "Verdict", "Rating", "Target").
		Rows(rows...).
		String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		StyleFunc(tableStyle)
}

// headerRow is the header's index in lipgloss v0.13 tables; data rows start at 1.
const headerRow = 0

func tableStyle(row, col int) lipgloss.Style {
	if row == headerRow {
		return headerStyle
	}
	return cellStyle
}
