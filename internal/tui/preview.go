package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/matheuskafuri/stocktracker/internal/browser"
	"github.com/matheuskafuri/stocktracker/internal/format"
	"github.com/matheuskafuri/stocktracker/internal/stocks"
)

// detailPane shows the selected row in a scrollable viewport.
type detailPane struct {
	vp  viewport.Model
	key string
}

func newDetailPane() detailPane {
	return detailPane{vp: viewport.New(0, 0)}
}

func (d *detailPane) resize(width, height int) {
	if d.vp.Width != width || d.vp.Height != height {
		d.vp.Width = width
		d.vp.Height = height
		d.key = ""
	}
}

// show swaps the content when key changes. Scroll resets with it.
func (d *detailPane) show(key, content string) {
	if key == d.key {
		return
	}
	d.key = key
	d.vp.SetContent(content)
	d.vp.GotoTop()
}

func (d *detailPane) lineDown() { d.vp.LineDown(1) }
func (d *detailPane) lineUp() { d.vp.LineUp(1) }

func (d *detailPane) View() string { return d.vp.View() }

func renderEventDetail(e *stocks.RatingEvent, f *format.Formatter, quoteURL string, width, height int) string {
	if e == nil {
		return lipglossCenter("Select a rating", width, height)
	}
	return strings.Join(eventLines(*e, f, quoteURL, width), "\n")
}

func renderRecommendationDetail(r *stocks.Recommendation, f *format.Formatter, quoteURL string, width, height int) string {
	if r == nil {
		return lipglossCenter("Select a recommendation", width, height)
	}

	lines := eventLines(r.RatingEvent, f, quoteURL, width)
	extra := []string{
		field("Score", upStyle.Render(r.Score)),
		field("Verdict", r.Label),
	}
	// Keep the quote link last.
	out := append([]string{}, lines[:len(lines)-1]...)
	out = append(out, extra...)
	return strings.Join(append(out, lines[len(lines)-1]), "\n")
}

func eventLines(e stocks.RatingEvent, f *format.Formatter, quoteURL string, width int) []string {
	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(e.Company)
	source := previewSourceStyle.Render(e.Ticker + " · " + e.Brokerage)

	delta := format.NotAvailable
	if pct, ok := e.TargetDelta(); ok {
		delta = f.Percentage(pct)
	}

	lines := []string{
		title,
		source,
		field("Action", e.Action),
		field("Rating", e.RatingChange()),
		field("Target from", f.Currency(e.TargetFrom)),
		field("Target to", f.Currency(e.TargetTo)),
		field("Change", delta),
		field("Date", f.DateString(e.Time)),
	}

	link := "(no quote page configured)"
	if u, err := browser.QuoteURL(quoteURL, e.Ticker); err == nil {
		link = "Quote: " + u
	}
	return append(lines, previewLinkStyle.Width(contentWidth).Render(link))
}

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, previewLabelStyle.Render(label), previewBodyStyle.Render(value))
}
