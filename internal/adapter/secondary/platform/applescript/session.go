package applescript

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/logging"
)

const (
	getVolumeScript = "output volume of (get volume settings)"
	setVolumeScript = "set volume output volume %d"
)

// Runner executes one AppleScript snippet and returns its trimmed output.
type Runner func(ctx context.Context, script string) (string, error)

// OsascriptRunner runs scripts with the macOS osascript binary.
func OsascriptRunner(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("osascript failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}

// Session implements domain.AudioSession over the macOS output volume.
// There is no change callback in AppleScript, so observation polls.
type Session struct {
	run      Runner
	center   domain.NotificationCenter
	interval time.Duration
	timeout  time.Duration

	mu        sync.Mutex
	last      float64
	known     bool
	observers map[uint64]func(old, new float64)
	nextID    uint64
	stopPoll  context.CancelFunc
}

// NewSession creates a session that polls every interval once observed.
func NewSession(run Runner, center domain.NotificationCenter, interval time.Duration) *Session {
	if run == nil {
		run = OsascriptRunner
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Session{
		run:       run,
		center:    center,
		interval:  interval,
		timeout:   5 * time.Second,
		observers: make(map[uint64]func(old, new float64)),
	}
}

// Activate verifies the output volume is scriptable.
func (s *Session) Activate(opts domain.SessionOptions) error {
	v, err := s.query()
	if err != nil {
		return fmt.Errorf("activate %s session: %w", opts.Category, err)
	}
	s.mu.Lock()
	if !s.known {
		s.last, s.known = v, true
	}
	s.mu.Unlock()
	return nil
}

// OutputVolume returns the current volume, or the last known one when
// the query fails.
func (s *Session) OutputVolume() float64 {
	v, err := s.query()
	if err != nil {
		logging.Debugf("applescript: read volume: %v", err)
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.last
	}
	return v
}

// SetOutputVolume writes v (0-1) and reports the change to observers.
func (s *Session) SetOutputVolume(v float64) error {
	percent := int(math.Round(domain.ClampVolume(v) * 100))
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.run(ctx, fmt.Sprintf(setVolumeScript, percent)); err != nil {
		return fmt.Errorf("set output volume %d: %w", percent, err)
	}
	s.update(float64(percent) / 100)
	return nil
}

func (s *Session) query() (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	out, err := s.run(ctx, getVolumeScript)
	if err != nil {
		return 0, err
	}
	percent, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse output volume %q: %w", out, err)
	}
	return domain.ClampVolume(float64(percent) / 100), nil
}

// update records v and, when it differs from the last known value,
// notifies observers and posts the system volume notification.
func (s *Session) update(v float64) {
	s.mu.Lock()
	old, known := s.last, s.known
	s.last, s.known = v, true
	if known && old == v {
		s.mu.Unlock()
		return
	}
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

	if !known {
		return
	}
	for _, fn := range fns {
		fn(old, v)
	}
	if s.center != nil {
		s.center.Post(domain.Notification{
			Name:     domain.NotificationSystemVolumeDidChange,
			UserInfo: map[string]any{domain.UserInfoAudioVolume: v},
		})
	}
}

type observation struct {
	session *Session
	id      uint64
	once    sync.Once
}

func (o *observation) Invalidate() {
	o.once.Do(func() { o.session.removeObserver(o.id) })
}

func (s *Session) ObserveOutputVolume(fn func(old, new float64)) (domain.Observation, error) {
	if fn == nil {
		return nil, errors.New("observer func is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.observers[s.nextID] = fn
	if s.stopPoll == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopPoll = cancel
		go s.poll(ctx)
	}
	return &observation{session: s, id: s.nextID}, nil
}

func (s *Session) removeObserver(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, id)
	if len(s.observers) == 0 && s.stopPoll != nil {
		s.stopPoll()
		s.stopPoll = nil
	}
}

func (s *Session) poll(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logging.Debugf("applescript: polling output volume every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v, err := s.query()
			if err != nil {
				logging.Tracef("applescript: poll: %v", err)
				continue
			}
			s.update(v)
		}
	}
}

// Polling reports whether the background poller is running.
func (s *Session) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopPoll != nil
}
