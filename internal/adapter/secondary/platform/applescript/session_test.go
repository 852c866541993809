package applescript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfect-volume-control/internal/domain"
)

// fakeOS answers the two scripts the session sends.
type fakeOS struct {
	mu      sync.Mutex
	percent int
	fail    error
	scripts []string
}

func (f *fakeOS) run(_ context.Context, script string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, script)
	if f.fail != nil {
		return "", f.fail
	}
	if script == getVolumeScript {
		return fmt.Sprintf("%d\n", f.percent), nil
	}
	var p int
	if _, err := fmt.Sscanf(script, setVolumeScript, &p); err != nil {
		return "", fmt.Errorf("unexpected script %q", script)
	}
	f.percent = p
	return "", nil
}

func (f *fakeOS) setPercent(p int) {
	f.mu.Lock()
	f.percent = p
	f.mu.Unlock()
}

func TestSession_ActivateAndRead(t *testing.T) {
	host := &fakeOS{percent: 40}
	s := NewSession(host.run, nil, time.Hour)

	require.NoError(t, s.Activate(domain.DefaultSessionOptions()))
	assert.InDelta(t, 0.40, s.OutputVolume(), 1e-9)
}

func TestSession_ActivateFailure(t *testing.T) {
	host := &fakeOS{fail: errors.New("osascript: command not found")}
	s := NewSession(host.run, nil, time.Hour)

	err := s.Activate(domain.DefaultSessionOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambient")
}

func TestSession_OutputVolumeFallsBackToLastKnown(t *testing.T) {
	host := &fakeOS{percent: 70}
	s := NewSession(host.run, nil, time.Hour)
	require.NoError(t, s.Activate(domain.DefaultSessionOptions()))

	host.mu.Lock()
	host.fail = errors.New("transient")
	host.mu.Unlock()

	assert.InDelta(t, 0.70, s.OutputVolume(), 1e-9)
}

func TestSession_SetOutputVolumeNotifies(t *testing.T) {
	host := &fakeOS{percent: 50}
	s := NewSession(host.run, nil, time.Hour)
	require.NoError(t, s.Activate(domain.DefaultSessionOptions()))

	var got []float64
	obs, err := s.ObserveOutputVolume(func(old, new float64) { got = append(got, new) })
	require.NoError(t, err)
	defer obs.Invalidate()

	require.NoError(t, s.SetOutputVolume(0.333))
	assert.Equal(t, 33, host.percent)
	assert.Equal(t, []float64{0.33}, got)

	// Writing the same value again is not a change.
	require.NoError(t, s.SetOutputVolume(0.33))
	assert.Len(t, got, 1)
}

func TestSession_PollingDetectsExternalChange(t *testing.T) {
	host := &fakeOS{percent: 20}
	s := NewSession(host.run, nil, 5*time.Millisecond)
	require.NoError(t, s.Activate(domain.DefaultSessionOptions()))

	changes := make(chan float64, 4)
	obs, err := s.ObserveOutputVolume(func(old, new float64) { changes <- new })
	require.NoError(t, err)
	assert.True(t, s.Polling())

	host.setPercent(80)

	select {
	case v := <-changes:
		assert.InDelta(t, 0.80, v, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not report the change")
	}

	obs.Invalidate()
	assert.False(t, s.Polling())
}

func TestSession_ParseError(t *testing.T) {
	s := NewSession(func(context.Context, string) (string, error) {
		return "missing value", nil
	}, nil, time.Hour)

	err := s.Activate(domain.DefaultSessionOptions())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing value"))
}

func TestPlatform_SliderWritesVolume(t *testing.T) {
	host := &fakeOS{percent: 10}
	p := New(host.run, time.Hour)
	require.NoError(t, p.Session.Activate(domain.DefaultSessionOptions()))

	var slider domain.Slider
	for _, sv := range p.View.Subviews() {
		if s, ok := sv.(domain.Slider); ok {
			slider = s
		}
	}
	require.NotNil(t, slider)

	slider.SetValue(0.9, false)
	assert.Equal(t, 90, host.percent)

	_, ok := p.Ports().Application.RootView()
	assert.True(t, ok)
}
