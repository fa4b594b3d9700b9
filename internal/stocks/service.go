package stocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matheuskafuri/stocktracker/internal/api"
	"github.com/matheuskafuri/stocktracker/internal/format"
)

const (
	ItemsPath           = "/stocks"
	RecommendationsPath = "/stocks/recommendations"
)

// Service holds the typed calls against the ratings API.
type Service struct {
	client *api.Client
}

func NewService(c *api.Client) *Service {
	return &Service{client: c}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type wireEvent struct {
	ID         int64           `json:"id"`
	Ticker     string          `json:"ticker"`
	Company    string          `json:"company"`
	Brokerage  string          `json:"brokerage"`
	Action     string          `json:"action"`
	RatingFrom *string         `json:"rating_from"`
	RatingTo   *string         `json:"rating_to"`
	TargetFrom json.RawMessage `json:"target_from"`
	TargetTo   json.RawMessage `json:"target_to"`
	Time       string          `json:"time"`
}

type wireRecommendation struct {
	Stock          *wireEvent `json:"stock"`
	Score          *float64   `json:"score"`
	Recommendation string     `json:"recommendation"`
}

// FetchItems lists rating events, letting the server pre-filter by f.
func (s *Service) FetchItems(ctx context.Context, f Filter) ([]RatingEvent, error) {
	env, err := api.Request[envelope](ctx, s.client, ItemsPath, f.Query())
	if err != nil {
		return nil, err
	}
	raw, err := dataArray(ItemsPath, env)
	if err != nil {
		return nil, err
	}

	var items []wireEvent
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &api.InvalidResponseShapeError{Path: ItemsPath, Reason: "malformed rating event", Err: err}
	}

	events := make([]RatingEvent, 0, len(items))
	for _, w := range items {
		events = append(events, w.toEvent())
	}
	return events, nil
}

// FetchRecommendations lists scored events, flattened into Recommendation.
func (s *Service) FetchRecommendations(ctx context.Context) ([]Recommendation, error) {
	env, err := api.Request[envelope](ctx, s.client, RecommendationsPath, nil)
	if err != nil {
		return nil, err
	}
	raw, err := dataArray(RecommendationsPath, env)
	if err != nil {
		return nil, err
	}

	var items []wireRecommendation
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &api.InvalidResponseShapeError{Path: RecommendationsPath, Reason: "malformed recommendation", Err: err}
	}

	recs := make([]Recommendation, 0, len(items))
	for i, w := range items {
		if w.Stock == nil {
			return nil, &api.InvalidResponseShapeError{Path: RecommendationsPath, Reason: fmt.Sprintf("item %d has no stock", i)}
		}
		if w.Score == nil {
			return nil, &api.InvalidResponseShapeError{Path: RecommendationsPath, Reason: fmt.Sprintf("item %d has no score", i)}
		}
		recs = append(recs, Recommendation{
			RatingEvent: w.Stock.toEvent(),
			ScoreValue:  *w.Score,
			Score:       format.Score(*w.Score),
			Label:       w.Recommendation,
		})
	}
	return recs, nil
}

func dataArray(path string, env envelope) (json.RawMessage, error) {
	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 {
		return nil, &api.InvalidResponseShapeError{Path: path, Reason: "missing data field"}
	}
	if raw[0] != '[' {
		return nil, &api.InvalidResponseShapeError{Path: path, Reason: "data is not an array"}
	}
	return raw, nil
}

func (w wireEvent) toEvent() RatingEvent {
	return RatingEvent{
		ID:         w.ID,
		Ticker:     w.Ticker,
		Company:    w.Company,
		Brokerage:  w.Brokerage,
		Action:     w.Action,
		RatingFrom: nonEmpty(w.RatingFrom),
		RatingTo:   nonEmpty(w.RatingTo),
		TargetFrom: parseTarget(w.TargetFrom),
		TargetTo:   parseTarget(w.TargetTo),
		Time:       w.Time,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// parseTarget accepts a JSON number, a price string like "$1,150.00", or null.
// Anything else, including NaN and infinities, is treated as missing.
func parseTarget(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NormalizeEvents orders events newest first. Events with unparsable times
// sort after the rest, keeping their relative order.
func NormalizeEvents(in []RatingEvent) []RatingEvent {
	times := make(map[int]time.Time, len(in))
	idx := make([]int, len(in))
	for i := range in {
		idx[i] = i
		if t, ok := format.ParseTime(in[i].Time); ok {
			times[i] = t
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, okA := times[idx[a]]
		tb, okB := times[idx[b]]
		switch {
		case okA && okB:
			return ta.After(tb)
		case okA != okB:
			return okA
		default:
			return false
		}
	})

	sorted := make([]RatingEvent, len(in))
	for i, j := range idx {
		sorted[i] = in[j]
	}
	return sorted
}

// NormalizeRecommendations orders recommendations by score, highest first.
func NormalizeRecommendations(in []Recommendation) []Recommendation {
	out := make([]Recommendation, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoreValue > out[j].ScoreValue
	})
	return out
}
