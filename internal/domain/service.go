package domain

import "time"

// ChangeFilter decides whether an observed volume change is forwarded.
// It has no side effects; callers keep the returned FilterState.
//
// With a zero Window every change is admitted, so a single hardware press
// observed by both mechanisms is delivered twice.
type ChangeFilter struct {
	Window time.Duration
}

// FilterState is the memory a ChangeFilter needs between calls.
type FilterState struct {
	Last VolumeChange
	Seen bool
}

// NewChangeFilter creates a filter that collapses equal values seen within window.
func NewChangeFilter(window time.Duration) ChangeFilter {
	if window < 0 {
		window = 0
	}
	return ChangeFilter{Window: window}
}

// Admit reports whether change should be forwarded and the state to keep.
func (f ChangeFilter) Admit(state FilterState, change VolumeChange) (bool, FilterState) {
	next := FilterState{Last: change, Seen: true}
	if f.Window == 0 || !state.Seen {
		return true, next
	}
	if change.Volume != state.Last.Volume {
		return true, next
	}
	if change.At.Sub(state.Last.At) >= f.Window {
		return true, next
	}
	// Keep the earlier timestamp so a burst of duplicates cannot extend the window.
	return false, state
}
