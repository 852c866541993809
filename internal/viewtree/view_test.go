package viewtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfect-volume-control/internal/domain"
)

func TestContainer_AddAndRemove(t *testing.T) {
	root := NewContainer("root")
	child := NewContainer("child")

	root.AddSubview(child)
	require.Len(t, root.Subviews(), 1)
	assert.Equal(t, domain.ViewHost(root), child.Superview())

	child.RemoveFromSuperview()
	assert.Empty(t, root.Subviews())
	assert.Nil(t, child.Superview())

	// Removing a detached view is a no-op.
	child.RemoveFromSuperview()
}

func TestContainer_AddSubviewReparents(t *testing.T) {
	a := NewContainer("a")
	b := NewContainer("b")
	child := NewContainer("child")

	a.AddSubview(child)
	b.AddSubview(child)

	assert.Empty(t, a.Subviews())
	assert.Len(t, b.Subviews(), 1)
	assert.Equal(t, domain.ViewHost(b), child.Superview())

	// Re-adding to the same parent must not duplicate it.
	b.AddSubview(child)
	assert.Len(t, b.Subviews(), 1)
}

func TestContainer_Contains(t *testing.T) {
	root := NewContainer("root")
	mid := NewContainer("mid")
	leaf := NewSlider(nil)
	root.AddSubview(mid)
	mid.AddSubview(leaf)

	assert.True(t, root.Contains(leaf))
	assert.False(t, mid.Contains(root))
}

func TestSlider_ClampsAndReports(t *testing.T) {
	var reported []float64
	s := NewSlider(func(v float64) { reported = append(reported, v) })

	s.SetValue(0.3, false)
	s.SetValue(2, true)
	s.SetValue(-1, false)

	assert.Equal(t, []float64{0.3, 1, 0}, reported)
	assert.Equal(t, 0.0, s.Value())

	s.Sync(0.8)
	assert.Equal(t, 0.8, s.Value())
	assert.Len(t, reported, 3, "Sync must not fire the change hook")
}

func TestVolumeView_Children(t *testing.T) {
	slider := NewSlider(nil)
	v := NewVolumeView(slider)

	var sliders int
	for _, sv := range v.Subviews() {
		if _, ok := sv.(domain.Slider); ok {
			sliders++
		}
	}
	assert.Equal(t, 1, sliders)
	assert.Equal(t, domain.ViewHost(v), slider.Superview())
	assert.True(t, v.ShowsRouteButton())

	empty := NewVolumeView(nil)
	for _, sv := range empty.Subviews() {
		_, ok := sv.(domain.Slider)
		assert.False(t, ok)
	}
}

func TestVolumeView_AttachDetachFromRoot(t *testing.T) {
	app := NewApplication()
	v := NewVolumeView(NewSlider(nil))

	root, ok := app.RootView()
	require.True(t, ok)
	root.AddSubview(v)
	assert.True(t, app.Root().Contains(v))

	v.RemoveFromSuperview()
	assert.Empty(t, root.Subviews())
	assert.Nil(t, v.Superview())
}

func TestApplication_Headless(t *testing.T) {
	app := NewHeadlessApplication()
	_, ok := app.RootView()
	assert.False(t, ok)

	assert.False(t, app.ReceivingRemoteControlEvents())
	app.BeginReceivingRemoteControlEvents()
	assert.True(t, app.ReceivingRemoteControlEvents())
}
