package stocks

import "testing"

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestMatchEvent(t *testing.T) {
	e := RatingEvent{Ticker: "AAPL", Brokerage: "The Goldman Sachs Group", Company: "Apple Inc."}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"ticker lower case", Filter{Ticker: "aa"}, true},
		{"brokerage substring", Filter{Brokerage: "goldman"}, true},
		{"company mixed case", Filter{Company: "APPLE"}, true},
		{"all fields", Filter{Ticker: "apl", Brokerage: "sachs", Company: "inc."}, true},
		{"one field misses", Filter{Ticker: "apl", Brokerage: "morgan"}, false},
		{"no match", Filter{Ticker: "msft"}, false},
		{"whitespace is literal", Filter{Ticker: " aapl"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchEvent(e, tt.filter); got != tt.want {
				t.Errorf("MatchEvent(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestNarrowerFilterNeverMatchesMore(t *testing.T) {
	events := []RatingEvent{
		{Ticker: "AAPL", Company: "Apple Inc.", Brokerage: "Goldman"},
		{Ticker: "MSFT", Company: "Microsoft", Brokerage: "JPMorgan"},
		{Ticker: "AMZN", Company: "Amazon.com", Brokerage: "Morgan Stanley"},
	}
	count := func(f Filter) int {
		n := 0
		for _, e := range events {
			if MatchEvent(e, f) {
				n++
			}
		}
		return n
	}

	if got := count(Filter{}); got != len(events) {
		t.Fatalf("empty filter matched %d of %d", got, len(events))
	}
	steps := []Filter{{Ticker: "a"}, {Ticker: "a", Brokerage: "morgan"}, {Ticker: "a", Brokerage: "morgan", Company: "amazon"}}
	prev := len(events)
	for _, f := range steps {
		n := count(f)
		if n > prev {
			t.Errorf("filter %+v matched %d, more than the broader %d", f, n, prev)
		}
		prev = n
	}
	if prev != 1 {
		t.Errorf("narrowest filter matched %d, want 1", prev)
	}
}

func TestFilterQuery(t *testing.T) {
	q := Filter{Ticker: " aapl ", Company: ""}.Query()
	if got := q.Get("ticker"); got != "aapl" {
		t.Errorf("ticker = %q, want aapl", got)
	}
	if q.Has("company") || q.Has("brokerage") {
		t.Errorf("unexpected params: %v", q)
	}
	if len(Filter{}.Query()) != 0 {
		t.Error("empty filter should produce no params")
	}
}

func TestFilterLabel(t *testing.T) {
	if got := (Filter{}).Label(); got != "All" {
		t.Errorf("Label() = %q, want All", got)
	}
	if got := (Filter{Ticker: "aapl", Company: "apple"}).Label(); got != "ticker:aapl company:apple" {
		t.Errorf("Label() = %q", got)
	}
}

func TestRatingChange(t *testing.T) {
	tests := []struct {
		from, to *string
		want     string
	}{
		{strPtr("Neutral"), strPtr("Buy"), "Neutral → Buy"},
		{strPtr("Buy"), strPtr("Buy"), "Buy"},
		{nil, strPtr("Buy"), "N/A → Buy"},
		{strPtr("Sell"), nil, "Sell → N/A"},
		{nil, nil, "N/A"},
	}
	for _, tt := range tests {
		e := RatingEvent{RatingFrom: tt.from, RatingTo: tt.to}
		if got := e.RatingChange(); got != tt.want {
			t.Errorf("RatingChange() = %q, want %q", got, tt.want)
		}
	}
}

func TestTargetDelta(t *testing.T) {
	e := RatingEvent{TargetFrom: floatPtr(150), TargetTo: floatPtr(160)}
	pct, ok := e.TargetDelta()
	if !ok {
		t.Fatal("expected delta")
	}
	if pct < 6.66 || pct > 6.67 {
		t.Errorf("pct = %v, want ~6.67", pct)
	}

	for _, e := range []RatingEvent{
		{TargetTo: floatPtr(10)},
		{TargetFrom: floatPtr(10)},
		{TargetFrom: floatPtr(0), TargetTo: floatPtr(10)},
	} {
		if _, ok := e.TargetDelta(); ok {
			t.Errorf("TargetDelta(%+v) should not be ok", e)
		}
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{`150`, floatPtr(150)},
		{`150.25`, floatPtr(150.25)},
		{`"$1,150.00"`, floatPtr(1150)},
		{`"42"`, floatPtr(42)},
		{`null`, nil},
		{``, nil},
		{`""`, nil},
		{`"n/a"`, nil},
		{`{}`, nil},
		{`"NaN"`, nil},
		{`"Inf"`, nil},
		{`"-Infinity"`, nil},
		{`"1e400"`, nil},
	}
	for _, tt := range tests {
		got := parseTarget([]byte(tt.raw))
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseTarget(%s) = %v, want nil", tt.raw, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseTarget(%s) = %v, want %v", tt.raw, got, *tt.want)
		}
	}
}

func TestNormalizeEvents(t *testing.T) {
	in := []RatingEvent{
		{ID: 1, Time: "2025-01-10T10:00:00Z"},
		{ID: 2, Time: "garbage"},
		{ID: 3, Time: "2025-01-12T10:00:00Z"},
		{ID: 4, Time: ""},
		{ID: 5, Time: "2025-01-11"},
	}
	got := NormalizeEvents(in)

	want := []int64{3, 5, 1, 2, 4}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
	if in[0].ID != 1 {
		t.Error("input was reordered")
	}
}

func TestNormalizeRecommendations(t *testing.T) {
	in := []Recommendation{
		{RatingEvent: RatingEvent{ID: 1}, ScoreValue: 2},
		{RatingEvent: RatingEvent{ID: 2}, ScoreValue: 9},
		{RatingEvent: RatingEvent{ID: 3}, ScoreValue: 2},
	}
	got := NormalizeRecommendations(in)
	if got[0].ID != 2 || got[1].ID != 1 || got[2].ID != 3 {
		t.Errorf("unexpected order: %d %d %d", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestNormalizeEventsEmpty(t *testing.T) {
	if got := NormalizeEvents(nil); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func ids(events []RatingEvent) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
