// Package store caches one fetched list in memory, tracks its load state and
// serves a filtered view of it.
package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheuskafuri/stocktracker/internal/logging"
	"github.com/matheuskafuri/stocktracker/internal/notify"
)

type State int

const (
	Idle State = iota
	Loading
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options wires a Store to its data source. Fetch is required; the rest are
// optional.
type Options[T any, F comparable] struct {
	// Name is used in log fields and in the user-facing error message.
	Name      string
	Fetch     func(ctx context.Context) ([]T, error)
	Normalize func([]T) []T
	Match     func(T, F) bool
	Logger    *zap.Logger
	Notifier  *notify.Center
	// Persist receives every successfully loaded list. Its error is logged.
	Persist func([]T) error
}

// Snapshot is a consistent copy of a store's observable state.
type Snapshot[T any, F comparable] struct {
	State    State
	Items    []T
	Filtered []T
	Filter   F
	Err      string
}

type call struct {
	done chan struct{}
	err  error
}

func (c *call) finish(err error) {
	c.err = err
	close(c.done)
}

// Store is safe for concurrent use. Slices it returns are shared and must
// be treated as read-only.
type Store[T any, F comparable] struct {
	opts Options[T, F]
	log  *zap.Logger

	mu       sync.Mutex
	state    State
	items    []T
	filter   F
	errMsg   string
	gen      uint64
	inflight *call

	view       []T
	viewFilter F
	viewValid  bool

	// persistMu orders writes to Persist; persistedGen is the newest
	// generation written.
	persistMu    sync.Mutex
	persistedGen uint64

	// Test hooks.
	onJoin    func()
	onApplied func(gen uint64)
}

func New[T any, F comparable](opts Options[T, F]) *Store[T, F] {
	if opts.Name == "" {
		opts.Name = "data"
	}
	log := logging.OrNop(opts.Logger)
	return &Store[T, F]{
		opts: opts,
		log:  log.With(zap.String("store", opts.Name)),
	}
}

// Load fetches the list unless it is already loaded. With force it always
// issues exactly one fetch. A non-forced Load during a fetch waits for that
// fetch instead of starting another. Only the newest fetch's result is
// applied.
func (s *Store[T, F]) Load(ctx context.Context, force bool) error {
	s.mu.Lock()
	if !force {
		switch s.state {
		case Loaded:
			s.mu.Unlock()
			return nil
		case Loading:
			c := s.inflight
			s.mu.Unlock()
			if s.onJoin != nil {
				s.onJoin()
			}
			select {
			case <-c.done:
				return c.err
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	s.gen++
	gen := s.gen
	c := &call{done: make(chan struct{})}
	s.inflight = c
	s.state = Loading
	s.errMsg = ""
	s.mu.Unlock()

	items, err := s.opts.Fetch(ctx)
	if err == nil && s.opts.Normalize != nil {
		items = s.opts.Normalize(items)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug("dropping stale load", zap.Uint64("generation", gen), zap.Error(err))
		c.finish(nil)
		return nil
	}
	s.inflight = nil

	if err != nil {
		s.state = Error
		s.errMsg = fmt.Sprintf("Could not load %s. Press r to retry.", s.opts.Name)
		s.mu.Unlock()

		s.log.Warn("load failed", zap.Uint64("generation", gen), zap.Error(err))
		if s.opts.Notifier != nil {
			rec := notify.FromError(err)
			rec.Source = s.opts.Name
			s.opts.Notifier.Set(rec)
		}
		c.finish(err)
		return err
	}

	s.items = items
	s.viewValid = false
	s.state = Loaded
	s.mu.Unlock()

	s.log.Debug("loaded", zap.Uint64("generation", gen), zap.Int("items", len(items)))
	if s.opts.Notifier != nil {
		s.opts.Notifier.ClearSource(s.opts.Name)
	}
	if s.onApplied != nil {
		s.onApplied(gen)
	}
	s.persist(gen, items)
	c.finish(nil)
	return nil
}

// persist writes items unless a newer generation was already written.
func (s *Store[T, F]) persist(gen uint64, items []T) {
	if s.opts.Persist == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if gen <= s.persistedGen {
		s.log.Debug("skipping stale persist", zap.Uint64("generation", gen))
		return
	}
	if err := s.opts.Persist(items); err != nil {
		s.log.Warn("persist failed", zap.Error(err))
		return
	}
	s.persistedGen = gen
}

// Seed fills the list from a stored snapshot without touching the load
// state, so the next Load still fetches.
func (s *Store[T, F]) Seed(items []T) {
	if s.opts.Normalize != nil {
		items = s.opts.Normalize(items)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.viewValid = false
}

// SetFilter replaces the active filter. It never fetches.
func (s *Store[T, F]) SetFilter(f F) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

func (s *Store[T, F]) Filter() F {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Store[T, F]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the user-facing message of the last failed load, or "".
func (s *Store[T, F]) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Store[T, F]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// Filtered returns the items matching the active filter. The result is
// reused until the items or the filter change.
func (s *Store[T, F]) Filtered() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filteredLocked()
}

func (s *Store[T, F]) Snapshot() Snapshot[T, F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot[T, F]{
		State:    s.state,
		Items:    s.items,
		Filtered: s.filteredLocked(),
		Filter:   s.filter,
		Err:      s.errMsg,
	}
}

// Reset returns the store to a fresh idle state. A fetch still in flight
// finishes but its result is dropped.
func (s *Store[T, F]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero F
	s.gen++
	s.state = Idle
	s.items = nil
	s.filter = zero
	s.errMsg = ""
	s.inflight = nil
	s.view = nil
	s.viewValid = false
}

func (s *Store[T, F]) filteredLocked() []T {
	if s.viewValid && s.viewFilter == s.filter {
		return s.view
	}
	view := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if s.opts.Match == nil || s.opts.Match(it, s.filter) {
			view = append(view, it)
		}
	}
	s.view = view
	s.viewFilter = s.filter
	s.viewValid = true
	return view
}
