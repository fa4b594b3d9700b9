package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheuskafuri/stocktracker/internal/format"
	"github.com/matheuskafuri/stocktracker/internal/stocks"
)

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// eventAge renders an API timestamp relative to now.
func eventAge(raw string) string {
	t, ok := format.ParseTime(raw)
	if !ok {
		return format.NotAvailable
	}
	return relativeTime(t)
}

func renderEventItem(e stocks.RatingEvent, f *format.Formatter, selected bool, width int) string {
	if width < 10 {
		width = 30
	}

	head := e.Ticker + "  " + e.Company
	var title string
	if selected {
		title = itemSelectedStyle.Render("> " + truncateStr(head, width-4))
	} else {
		title = itemTitleStyle.Render("  " + truncateStr(head, width-4))
	}

	meta := "  " + itemSourceStyle.Render(truncateStr(e.Brokerage, width/3)) +
		" " + itemTimeStyle.Render("· "+e.RatingChange()+" · "+eventAge(e.Time)) +
		" " + targetMove(e, f)

	return title + "\n" + meta
}

func renderRecommendationItem(r stocks.Recommendation, rank int, selected bool, width int) string {
	if width < 10 {
		width = 30
	}

	score := fmt.Sprintf("%s %s", r.Score, r.Label)
	head := fmt.Sprintf("%d. %s  %s", rank, r.Ticker, r.Company)
	head = truncateStr(head, width-4-len(score)-1)

	var title string
	if selected {
		title = itemSelectedStyle.Render("> "+head) + " " + upStyle.Render(score)
	} else {
		title = itemTitleStyle.Render("  "+head) + " " + upStyle.Render(score)
	}

	meta := "  " + itemSourceStyle.Render(truncateStr(r.Brokerage, width/3)) +
		" " + itemTimeStyle.Render("· "+r.RatingChange()+" · "+eventAge(r.Time))

	return title + "\n" + meta
}

// targetMove renders the target price change, colored by direction.
func targetMove(e stocks.RatingEvent, f *format.Formatter) string {
	if e.TargetTo == nil {
		return ""
	}
	s := f.Currency(e.TargetTo)
	pct, ok := e.TargetDelta()
	if !ok {
		return itemTimeStyle.Render("· " + s)
	}
	switch {
	case pct > 0:
		return upStyle.Render("▲ " + s + " " + f.Percentage(pct))
	case pct < 0:
		return downStyle.Render("▼ " + s + " " + f.Percentage(-pct))
	default:
		return itemTimeStyle.Render("= " + s)
	}
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// renderList draws count two-line items, scrolled so cursor stays visible.
func renderList(count, cursor, height, width int, empty string, item func(i int, selected bool) string) string {
	if count == 0 {
		return lipglossCenter(empty, width, height)
	}

	// Each item is 2 lines + 1 blank line = 3 lines
	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > count {
		end = count
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(item(i, i == cursor))
		if i < end-1 {
			b.WriteString("\n\n")
		}
	}

	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	pad := (width - len([]rune(s))) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}
