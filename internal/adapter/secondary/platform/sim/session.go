package sim

import (
	"errors"
	"sort"
	"sync"

	"perfect-volume-control/internal/domain"
)

// Session is an in-memory audio session. Volume changes fire the
// output-volume observers and then post the system volume notification,
// both on the goroutine that caused the change.
type Session struct {
	center domain.NotificationCenter

	mu          sync.Mutex
	volume      float64
	active      bool
	activations int
	options     domain.SessionOptions
	activateErr error
	observers   map[uint64]func(old, new float64)
	nextID      uint64
}

// NewSession creates a session at the given volume that posts to center.
func NewSession(center domain.NotificationCenter, volume float64) *Session {
	return &Session{
		center:    center,
		volume:    domain.ClampVolume(volume),
		observers: make(map[uint64]func(old, new float64)),
	}
}

func (s *Session) Activate(opts domain.SessionOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activateErr != nil {
		return s.activateErr
	}
	s.active = true
	s.activations++
	s.options = opts
	return nil
}

func (s *Session) OutputVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

type observation struct {
	session *Session
	id      uint64
	once    sync.Once
}

func (o *observation) Invalidate() {
	o.once.Do(func() {
		o.session.mu.Lock()
		delete(o.session.observers, o.id)
		o.session.mu.Unlock()
	})
}

func (s *Session) ObserveOutputVolume(fn func(old, new float64)) (domain.Observation, error) {
	if fn == nil {
		return nil, errors.New("observer func is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.observers[s.nextID] = fn
	return &observation{session: s, id: s.nextID}, nil
}

// SetSystemVolume changes the OS volume as if some other actor did it.
// It returns the clamped value that was applied.
func (s *Session) SetSystemVolume(v float64) float64 {
	v = domain.ClampVolume(v)

	s.mu.Lock()
	old := s.volume
	if old == v {
		s.mu.Unlock()
		return v
	}
	s.volume = v
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(old, new float64), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(old, v)
	}
	if s.center != nil {
		s.center.Post(domain.Notification{
			Name:     domain.NotificationSystemVolumeDidChange,
			UserInfo: map[string]any{domain.UserInfoAudioVolume: v},
		})
	}
	return v
}

// Deactivate marks the session inactive, as the OS does when backgrounding.
func (s *Session) Deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// FailActivation makes subsequent Activate calls return err; nil clears it.
func (s *Session) FailActivation(err error) {
	s.mu.Lock()
	s.activateErr = err
	s.mu.Unlock()
}

// Active reports whether the session is currently active.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Activations returns how many times Activate succeeded.
func (s *Session) Activations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activations
}

// Options returns the options of the last successful activation.
func (s *Session) Options() domain.SessionOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// ObserverCount returns the number of live output-volume observations.
func (s *Session) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}
