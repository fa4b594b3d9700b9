package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/matheuskafuri/stocktracker/internal/api"
)

func TestCenterLastWriteWins(t *testing.T) {
	c := New()
	if _, ok := c.Current(); ok {
		t.Fatal("new center should be empty")
	}

	c.Set(ErrorRecord{Message: "first"})
	c.Set(ErrorRecord{Message: "second", Code: "network"})

	got, ok := c.Current()
	if !ok {
		t.Fatal("expected a record")
	}
	if got.Message != "second" || got.Code != "network" {
		t.Errorf("Current() = %+v", got)
	}

	c.Clear()
	if _, ok := c.Current(); ok {
		t.Error("Clear did not remove the record")
	}
}

func TestClearSource(t *testing.T) {
	c := New()
	c.Set(ErrorRecord{Message: "ratings down", Source: "rating events"})

	c.ClearSource("recommendations")
	if _, ok := c.Current(); !ok {
		t.Fatal("record from another source was cleared")
	}

	c.ClearSource("rating events")
	if _, ok := c.Current(); ok {
		t.Error("record was not cleared by its source")
	}
}

func TestCentersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Set(ErrorRecord{Message: "boom"})
	if _, ok := b.Current(); ok {
		t.Error("records leaked between centers")
	}
}

func TestCenterConcurrentSet(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Set(ErrorRecord{Message: "x"})
			c.Current()
		}()
	}
	wg.Wait()
	if got, _ := c.Current(); got.Message != "x" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{"network", &api.NetworkError{Path: "/stocks", Err: errors.New("refused")}, "network", "The ratings service could not be reached."},
		{"timeout", &api.TimeoutError{Path: "/stocks"}, "timeout", "The ratings service took too long to answer."},
		{"status", &api.HTTPStatusError{Path: "/stocks", Status: 503}, "http_503", "The ratings service answered with status 503."},
		{"shape", &api.InvalidResponseShapeError{Path: "/stocks", Reason: "missing data field"}, "invalid_response", "The ratings service sent an unexpected response."},
		{"other", errors.New("disk full"), "unknown", "Something went wrong."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
			if got.Details != tt.err {
				t.Errorf("Details = %v, want the original error", got.Details)
			}
		})
	}

	if rec := FromError(nil); rec != (ErrorRecord{}) {
		t.Errorf("FromError(nil) = %+v", rec)
	}
}
