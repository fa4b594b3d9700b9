// Package update asks the release feed whether a newer build exists.
package update

import (
	"context"
	"strings"
	"time"

	"github.com/matheuskafuri/stocktracker/internal/api"
)

const (
	ReleasesURL = "https://api.github.com"
	LatestPath  = "/repos/matheuskafuri/stocktracker/releases/latest"
)

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
}

type release struct {
	TagName string `json:"tag_name"`
}

// NewClient builds a client for the release feed with a short timeout and no
// retries.
func NewClient(opts ...api.Option) (*api.Client, error) {
	return api.New(api.Config{BaseURL: ReleasesURL, Timeout: 5 * time.Second}, opts...)
}

// Check reports a newer release than currentVersion. It returns nil when the
// build is current, the feed is unreachable, or its answer is unusable.
func Check(ctx context.Context, c *api.Client, currentVersion string) *Result {
	rel, err := api.Request[release](ctx, c, LatestPath, nil)
	if err != nil {
		return nil
	}

	latest := strings.TrimPrefix(strings.TrimSpace(rel.TagName), "v")
	current := strings.TrimPrefix(currentVersion, "v")
	if latest == "" || latest == current {
		return nil
	}
	return &Result{LatestVersion: latest}
}
