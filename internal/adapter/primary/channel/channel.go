package channel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/logging"
)

// Handler answers one inbound method call.
type Handler func(ctx context.Context, call domain.MethodCall) (any, error)

// Channel is the native side of a named method channel. It serves
// WebSocket peers, routes their calls to the handler and broadcasts
// outbound calls to every connected peer.
type Channel struct {
	name        string
	callTimeout time.Duration
	sendBuffer  int
	upgrader    websocket.Upgrader

	mu      sync.RWMutex
	handler Handler
	peers   map[*peer]struct{}
	closed  bool
}

// Option customizes a Channel.
type Option func(*Channel)

// WithCallTimeout bounds how long one inbound call may run.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithSendBuffer sets the per-peer outbound queue length.
func WithSendBuffer(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.sendBuffer = n
		}
	}
}

// New creates a channel with no handler; calls are answered
// notImplemented until SetMethodCallHandler is called.
func New(name string, opts ...Option) *Channel {
	c := &Channel{
		name:        name,
		callTimeout: 5 * time.Second,
		sendBuffer:  64,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Local control surface: the channel is bound to loopback by default.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		peers: make(map[*peer]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Path returns the HTTP path the channel is served on.
func (c *Channel) Path() string {
	return PathFor(c.name)
}

// PathFor returns the HTTP path of the channel called name.
func PathFor(name string) string {
	return "/channels/" + name
}

// SetMethodCallHandler installs the inbound handler; nil removes it.
func (c *Channel) SetMethodCallHandler(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// InvokeMethod broadcasts an outbound call to every peer. It never
// blocks: a peer whose queue is full misses the event.
func (c *Channel) InvokeMethod(method string, arguments any) error {
	env, err := NewCall(0, method, arguments)
	if err != nil {
		return err
	}
	data, err := env.Bytes()
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for p := range c.peers {
		if !p.enqueue(data) {
			logging.Warnf("channel %s: peer %s is slow, dropped %s", c.name, p.id, method)
		}
	}
	return nil
}

// PeerCount returns the number of connected peers.
func (c *Channel) PeerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.peers)
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (c *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("channel %s: upgrade: %v", c.name, err)
		return
	}

	p := newPeer(c, conn)
	if !c.register(p) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "channel closed"))
		_ = conn.Close()
		return
	}
	logging.Infof("channel %s: peer %s connected from %s", c.name, p.id, r.RemoteAddr)
	p.run(r.Context())
	logging.Infof("channel %s: peer %s disconnected", c.name, p.id)
}

func (c *Channel) register(p *peer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.peers[p] = struct{}{}
	return true
}

func (c *Channel) unregister(p *peer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.peers[p]; ok {
		delete(c.peers, p)
		p.closeSend()
	}
}

// dispatch runs one inbound call envelope through the handler.
func (c *Channel) dispatch(ctx context.Context, env *Envelope) *Envelope {
	c.mu.RLock()
	h := c.handler
	c.mu.RUnlock()

	if h == nil {
		return NewReply(env.ID, nil, domain.ErrNotImplemented)
	}
	call, err := env.Call()
	if err != nil {
		return NewReply(env.ID, nil, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	res, err := h(ctx, call)
	return NewReply(env.ID, res, err)
}

// Close disconnects every peer and refuses new ones.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for p := range c.peers {
		delete(c.peers, p)
		p.closeSend()
	}
}
