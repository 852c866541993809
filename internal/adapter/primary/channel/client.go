package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"perfect-volume-control/internal/logging"
)

// ErrClientClosed is returned for calls on a closed client.
var ErrClientClosed = errors.New("channel client closed")

// EventHandler receives outbound calls pushed by the native side.
type EventHandler func(method string, arguments any)

// Client is the application-side endpoint of a channel.
type Client struct {
	conn   *websocket.Conn
	nextID atomic.Uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan *Envelope
	onEvent EventHandler
	err     error

	done chan struct{}
}

// Dial connects to a channel served at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan *Envelope),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SetMethodCallHandler installs the handler for pushed events.
func (c *Client) SetMethodCallHandler(fn EventHandler) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// InvokeMethod sends a call and waits for its reply.
func (c *Client) InvokeMethod(ctx context.Context, method string, arguments any) (any, error) {
	id := c.nextID.Add(1)
	env, err := NewCall(id, method, arguments)
	if err != nil {
		return nil, err
	}
	data, err := env.Bytes()
	if err != nil {
		return nil, err
	}

	reply := make(chan *Envelope, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(data); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case r := <-reply:
		return r.Outcome()
	case <-c.done:
		return nil, c.closeErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and tears down the connection.
func (c *Client) Close() error {
	_ = c.writeControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) writeControl(kind int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(kind, data, time.Now().Add(writeWait))
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		return ErrClientClosed
	}
	return c.err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.err = ErrClientClosed
			} else {
				c.err = fmt.Errorf("%w: %v", ErrClientClosed, err)
			}
			c.mu.Unlock()
			return
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			logging.Warnf("channel client: %v", err)
			continue
		}

		if env.Type == TypeCall {
			c.handleEvent(env)
			continue
		}

		c.mu.Lock()
		reply, ok := c.pending[env.ID]
		c.mu.Unlock()
		if !ok {
			logging.Debugf("channel client: reply %d has no waiter", env.ID)
			continue
		}
		reply <- env
	}
}

func (c *Client) handleEvent(env *Envelope) {
	c.mu.Lock()
	fn := c.onEvent
	c.mu.Unlock()
	if fn == nil {
		return
	}
	call, err := env.Call()
	if err != nil {
		logging.Warnf("channel client: %v", err)
		return
	}
	fn(call.Method, call.Arguments)
}
