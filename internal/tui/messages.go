package tui

// loadedMsg reports that a store load finished. The store itself holds the
// result.
type loadedMsg struct {
	screen screen
	err    error
}

type openErrMsg struct {
	err error
}

// refreshTickMsg fires every refresh interval.
type refreshTickMsg struct{}
