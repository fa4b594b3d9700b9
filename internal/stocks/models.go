package stocks

import (
	"net/url"
	"strings"

	"github.com/matheuskafuri/stocktracker/internal/format"
)

// RatingEvent is one analyst action on a ticker, as reported by the API.
type RatingEvent struct {
	ID         int64    `json:"id"`
	Ticker     string   `json:"ticker"`
	Company    string   `json:"company"`
	Brokerage  string   `json:"brokerage"`
	Action     string   `json:"action"`
	RatingFrom *string  `json:"rating_from"`
	RatingTo   *string  `json:"rating_to"`
	TargetFrom *float64 `json:"target_from"`
	TargetTo   *float64 `json:"target_to"`
	Time       string   `json:"time"`
}

// Recommendation is a server-scored RatingEvent.
type Recommendation struct {
	RatingEvent
	ScoreValue float64 `json:"score_value"`
	Score      string  `json:"score"`
	Label      string  `json:"recommendation"`
}

// Filter narrows a list by case-insensitive substring. Empty fields match
// everything.
type Filter struct {
	Ticker    string
	Brokerage string
	Company   string
}

func (f Filter) IsZero() bool {
	return f.Ticker == "" && f.Brokerage == "" && f.Company == ""
}

// Query serializes the non-empty fields as GET /stocks parameters.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if v := strings.TrimSpace(f.Ticker); v != "" {
		q.Set("ticker", v)
	}
	if v := strings.TrimSpace(f.Brokerage); v != "" {
		q.Set("brokerage", v)
	}
	if v := strings.TrimSpace(f.Company); v != "" {
		q.Set("company", v)
	}
	return q
}

// Label renders the active fields for the status bar.
func (f Filter) Label() string {
	var parts []string
	if f.Ticker != "" {
		parts = append(parts, "ticker:"+f.Ticker)
	}
	if f.Brokerage != "" {
		parts = append(parts, "brokerage:"+f.Brokerage)
	}
	if f.Company != "" {
		parts = append(parts, "company:"+f.Company)
	}
	if len(parts) == 0 {
		return "All"
	}
	return strings.Join(parts, " ")
}

func MatchEvent(e RatingEvent, f Filter) bool {
	return contains(e.Ticker, f.Ticker) &&
		contains(e.Brokerage, f.Brokerage) &&
		contains(e.Company, f.Company)
}

func MatchRecommendation(r Recommendation, f Filter) bool {
	return MatchEvent(r.RatingEvent, f)
}

func contains(field, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(needle))
}

// Rating renders a nullable rating.
func Rating(r *string) string {
	if r == nil || *r == "" {
		return format.NotAvailable
	}
	return *r
}

// RatingChange renders "from → to", collapsing unchanged ratings.
func (e RatingEvent) RatingChange() string {
	from, to := Rating(e.RatingFrom), Rating(e.RatingTo)
	if from == to {
		return to
	}
	return from + " → " + to
}

// TargetDelta is TargetTo - TargetFrom as a percentage of
// TargetFrom. ok is false when either side is missing or TargetFrom is zero.
func (e RatingEvent) TargetDelta() (pct float64, ok bool) {
	if e.TargetFrom == nil || e.TargetTo == nil || *e.TargetFrom == 0 {
		return 0, false
	}
	return (*e.TargetTo - *e.TargetFrom) / *e.TargetFrom * 100, true
}
