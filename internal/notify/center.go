// Package notify provides an in-process notification center.
package notify

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/logging"
)

type observer struct {
	token domain.ObserverToken
	fn    func(domain.Notification)
}

// Center is a synchronous, name-keyed broadcast hub.
// Observers run on the goroutine that calls Post.
type Center struct {
	mu        sync.RWMutex
	observers map[string][]observer
	nextID    atomic.Uint64
}

// NewCenter creates an empty notification center.
func NewCenter() *Center {
	return &Center{
		observers: make(map[string][]observer),
	}
}

// AddObserver registers fn for notifications named name.
func (c *Center) AddObserver(name string, fn func(domain.Notification)) domain.ObserverToken {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := domain.ObserverToken(c.nextID.Add(1))
	c.observers[name] = append(c.observers[name], observer{token: token, fn: fn})
	return token
}

// RemoveObserver drops a registration. Unknown tokens are ignored.
func (c *Center) RemoveObserver(token domain.ObserverToken) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, obs := range c.observers {
		for i, o := range obs {
			if o.token != token {
				continue
			}
			rest := make([]observer, 0, len(obs)-1)
			rest = append(rest, obs[:i]...)
			rest = append(rest, obs[i+1:]...)
			if len(rest) == 0 {
				delete(c.observers, name)
			} else {
				c.observers[name] = rest
			}
			return
		}
	}
}

// Post delivers n to every observer of n.Name in registration order.
func (c *Center) Post(n domain.Notification) {
	c.mu.RLock()
	obs := make([]observer, len(c.observers[n.Name]))
	copy(obs, c.observers[n.Name])
	c.mu.RUnlock()

	logging.Tracef("notify: post %s to %d observer(s)", n.Name, len(obs))
	for _, o := range obs {
		c.safeCall(o.fn, n)
	}
}

func (c *Center) safeCall(fn func(domain.Notification), n domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("notify: observer of %s panicked: %v\n%s", n.Name, r, debug.Stack())
		}
	}()
	fn(n)
}

// ObserverCount returns the number of registrations for name,
// or for every name when name is empty.
func (c *Center) ObserverCount(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if name != "" {
		return len(c.observers[name])
	}
	count := 0
	for _, obs := range c.observers {
		count += len(obs)
	}
	return count
}
