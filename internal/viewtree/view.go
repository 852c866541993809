// Package viewtree is a small retained view hierarchy: containers,
// sliders, the hidden volume view and the application window holding
// the root view. Platform backends build their UI surface from it.
package viewtree

import (
	"sync"

	"perfect-volume-control/internal/domain"
)

// member is implemented by every view in this package so hosts can
// record and clear the parent link.
type member interface {
	domain.View
	setSuperview(domain.ViewHost)
}

// host is implemented by every container in this package.
type host interface {
	removeSubview(domain.View)
}

// link is the parent pointer shared by all views.
type link struct {
	mu        sync.Mutex
	superview domain.ViewHost
}

func (l *link) Superview() domain.ViewHost {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.superview
}

func (l *link) setSuperview(v domain.ViewHost) {
	l.mu.Lock()
	l.superview = v
	l.mu.Unlock()
}

func (l *link) detach(self domain.View) {
	l.mu.Lock()
	parent := l.superview
	l.superview = nil
	l.mu.Unlock()

	if h, ok := parent.(host); ok {
		h.removeSubview(self)
	}
}

// Container is a plain view with children.
type Container struct {
	link
	name string
	self domain.ViewHost

	childMu  sync.Mutex
	subviews []domain.View
}

// NewContainer creates an empty, detached container.
func NewContainer(name string) *Container {
	c := &Container{name: name}
	c.self = c
	return c
}

// Name returns the debugging name given at construction.
func (c *Container) Name() string {
	return c.name
}

// Subviews returns a snapshot of the immediate children.
func (c *Container) Subviews() []domain.View {
	c.childMu.Lock()
	defer c.childMu.Unlock()
	out := make([]domain.View, len(c.subviews))
	copy(out, c.subviews)
	return out
}

// AddSubview appends v, moving it out of its current superview first.
// Adding a view already attached here brings it to the front.
// Views from outside this package are ignored.
func (c *Container) AddSubview(v domain.View) {
	m, ok := v.(member)
	if !ok || v == domain.View(c.self) {
		return
	}
	if v.Superview() != nil {
		v.RemoveFromSuperview()
	}

	c.childMu.Lock()
	c.subviews = append(c.subviews, v)
	c.childMu.Unlock()
	m.setSuperview(c.self)
}

func (c *Container) removeSubview(v domain.View) {
	c.childMu.Lock()
	defer c.childMu.Unlock()
	for i, sv := range c.subviews {
		if sv == v {
			c.subviews = append(c.subviews[:i], c.subviews[i+1:]...)
			return
		}
	}
}

// RemoveFromSuperview detaches the container from its parent, if any.
func (c *Container) RemoveFromSuperview() {
	c.detach(c.self)
}

// Contains reports whether v is somewhere below c.
func (c *Container) Contains(v domain.View) bool {
	for _, sv := range c.Subviews() {
		if sv == v {
			return true
		}
		if h, ok := sv.(interface{ Contains(domain.View) bool }); ok && h.Contains(v) {
			return true
		}
	}
	return false
}

// Slider is a bounded value control. Programmatic SetValue calls the
// change hook, which is how a volume view turns slider moves into OS volume.
type Slider struct {
	link

	valueMu  sync.Mutex
	value    float64
	min, max float64
	onChange func(float64)
}

// NewSlider creates a [0, 1] slider reporting programmatic changes to onChange.
func NewSlider(onChange func(float64)) *Slider {
	return &Slider{min: 0, max: 1, onChange: onChange}
}

// Value returns the current position.
func (s *Slider) Value() float64 {
	s.valueMu.Lock()
	defer s.valueMu.Unlock()
	return s.value
}

// SetValue clamps v to the slider range, stores it and fires the change hook.
func (s *Slider) SetValue(v float64, animated bool) {
	s.valueMu.Lock()
	if v < s.min {
		v = s.min
	}
	if v > s.max {
		v = s.max
	}
	s.value = v
	hook := s.onChange
	s.valueMu.Unlock()

	if hook != nil {
		hook(v)
	}
}

// Sync moves the thumb to reflect an external change without firing the hook.
func (s *Slider) Sync(v float64) {
	s.valueMu.Lock()
	s.value = domain.ClampVolume(v)
	s.valueMu.Unlock()
}

// RemoveFromSuperview detaches the slider from its parent, if any.
func (s *Slider) RemoveFromSuperview() {
	s.detach(s)
}
