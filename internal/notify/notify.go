// Package notify holds the last error the user should see.
package notify

import (
	"strings"
	"sync"

	"github.com/matheuskafuri/stocktracker/internal/api"
)

// ErrorRecord is one displayable error. Code is a short machine-readable
// class; Details carries the underlying value, if any. Source names whoever
// published it.
type ErrorRecord struct {
	Message string
	Code    string
	Details any
	Source  string
}

// Center keeps a single ErrorRecord. The last Set wins.
type Center struct {
	mu  sync.Mutex
	cur *ErrorRecord
}

func New() *Center {
	return &Center{}
}

func (c *Center) Set(rec ErrorRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = &rec
}

func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = nil
}

// ClearSource clears the held record only if source published it.
func (c *Center) ClearSource(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil && c.cur.Source == source {
		c.cur = nil
	}
}

// Current returns the held record, if there is one.
func (c *Center) Current() (ErrorRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return ErrorRecord{}, false
	}
	return *c.cur, true
}

// FromError builds a record with a generic message for err's class.
func FromError(err error) ErrorRecord {
	if err == nil {
		return ErrorRecord{}
	}
	code := api.Kind(err)
	return ErrorRecord{
		Message: messageFor(code),
		Code:    code,
		Details: err,
	}
}

func messageFor(code string) string {
	switch code {
	case "network":
		return "The ratings service could not be reached."
	case "timeout":
		return "The ratings service took too long to answer."
	case "invalid_response":
		return "The ratings service sent an unexpected response."
	case "unknown":
		return "Something went wrong."
	}
	if status, ok := strings.CutPrefix(code, "http_"); ok {
		return "The ratings service answered with status " + status + "."
	}
	return "Something went wrong."
}
