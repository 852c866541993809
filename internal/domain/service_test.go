package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChangeFilter_ZeroWindowAdmitsDuplicates(t *testing.T) {
	f := NewChangeFilter(0)
	now := time.Now()

	ok, st := f.Admit(FilterState{}, VolumeChange{Volume: 0.5, Source: SourceObservation, At: now})
	assert.True(t, ok)
	ok, _ = f.Admit(st, VolumeChange{Volume: 0.5, Source: SourceNotification, At: now})
	assert.True(t, ok, "at-least-once delivery keeps both reports")
}

func TestChangeFilter_WindowCollapsesEqualValues(t *testing.T) {
	f := NewChangeFilter(50 * time.Millisecond)
	now := time.Now()

	ok, st := f.Admit(FilterState{}, VolumeChange{Volume: 0.5, At: now})
	assert.True(t, ok)

	ok, st = f.Admit(st, VolumeChange{Volume: 0.5, At: now.Add(10 * time.Millisecond)})
	assert.False(t, ok)

	ok, st = f.Admit(st, VolumeChange{Volume: 0.5, At: now.Add(40 * time.Millisecond)})
	assert.False(t, ok, "duplicates must not slide the window forward")

	ok, st = f.Admit(st, VolumeChange{Volume: 0.5, At: now.Add(60 * time.Millisecond)})
	assert.True(t, ok)

	ok, _ = f.Admit(st, VolumeChange{Volume: 0.6, At: now.Add(61 * time.Millisecond)})
	assert.True(t, ok, "a different value always passes")
}

func TestNewChangeFilter_NegativeWindow(t *testing.T) {
	assert.Equal(t, time.Duration(0), NewChangeFilter(-time.Second).Window)
}
