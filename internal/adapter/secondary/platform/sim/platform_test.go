package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfect-volume-control/internal/domain"
)

func TestPlatform_PressVolumeButtonFiresBothMechanisms(t *testing.T) {
	p := New(WithVolume(0.5))

	var observed []float64
	obs, err := p.Session.ObserveOutputVolume(func(old, new float64) {
		observed = append(observed, new)
	})
	require.NoError(t, err)
	defer obs.Invalidate()

	var notified []any
	p.Center.AddObserver(domain.NotificationSystemVolumeDidChange, func(n domain.Notification) {
		notified = append(notified, n.UserInfo[domain.UserInfoAudioVolume])
	})

	got := p.PressVolumeButton(ButtonStep)

	assert.Equal(t, 0.5625, got)
	assert.Equal(t, []float64{0.5625}, observed)
	assert.Equal(t, []any{0.5625}, notified)
	assert.Equal(t, 0.5625, p.Slider.Value(), "slider follows hardware changes")
}

func TestPlatform_PressAtLimitDoesNotNotify(t *testing.T) {
	p := New(WithVolume(1))

	calls := 0
	_, err := p.Session.ObserveOutputVolume(func(old, new float64) { calls++ })
	require.NoError(t, err)

	assert.Equal(t, 1.0, p.PressVolumeButton(ButtonStep))
	assert.Equal(t, 0, calls)
}

func TestPlatform_SliderDrivesSession(t *testing.T) {
	p := New()

	p.Slider.SetValue(0.2, false)
	assert.Equal(t, 0.2, p.Session.OutputVolume())
}

func TestPlatform_WithoutSlider(t *testing.T) {
	p := New(WithoutSlider())
	assert.Nil(t, p.Slider)
	for _, sv := range p.View.Subviews() {
		_, ok := sv.(domain.Slider)
		assert.False(t, ok)
	}
}

func TestSession_ActivationAndObservation(t *testing.T) {
	p := New()

	require.NoError(t, p.Session.Activate(domain.DefaultSessionOptions()))
	assert.True(t, p.Session.Active())
	assert.Equal(t, "ambient", p.Session.Options().Category)

	p.EnterBackground()
	assert.False(t, p.Session.Active())

	p.Session.FailActivation(errors.New("session busy"))
	assert.Error(t, p.Session.Activate(domain.DefaultSessionOptions()))
	assert.Equal(t, 1, p.Session.Activations())

	obs, err := p.Session.ObserveOutputVolume(func(old, new float64) {})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Session.ObserverCount())
	obs.Invalidate()
	obs.Invalidate()
	assert.Equal(t, 0, p.Session.ObserverCount())

	_, err = p.Session.ObserveOutputVolume(nil)
	assert.Error(t, err)
}
