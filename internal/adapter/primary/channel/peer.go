package channel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"perfect-volume-control/internal/logging"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds one inbound envelope
	maxMessageSize = 64 * 1024
)

// peer is one connected application-side endpoint.
type peer struct {
	id      string
	channel *Channel
	conn    *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// writerGone is closed when writePump exits.
	writerGone chan struct{}
}

func newPeer(c *Channel, conn *websocket.Conn) *peer {
	return &peer{
		id:      uuid.NewString(),
		channel: c,
		conn:    conn,
		send:    make(chan []byte, c.sendBuffer),
		done:    make(chan struct{}),

		writerGone: make(chan struct{}),
	}
}

// enqueue queues an event frame without blocking; false means it was dropped.
func (p *peer) enqueue(data []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

// reply queues a reply frame, waiting up to writeWait for room. A peer
// that cannot take a reply is disconnected rather than left waiting.
func (p *peer) reply(data []byte) bool {
	timer := time.NewTimer(writeWait)
	defer timer.Stop()
	select {
	case p.send <- data:
		return true
	case <-p.done:
		return false
	case <-p.writerGone:
		return false
	case <-timer.C:
		p.conn.Close()
		return false
	}
}

func (p *peer) closeSend() {
	p.closeOnce.Do(func() { close(p.done) })
}

// run starts the write pump and blocks in the read pump.
func (p *peer) run(ctx context.Context) {
	go p.writePump()
	p.readPump(ctx)
}

func (p *peer) readPump(ctx context.Context) {
	defer func() {
		p.channel.unregister(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debugf("channel %s: peer %s read: %v", p.channel.name, p.id, err)
			}
			return
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			logging.Warnf("channel %s: peer %s sent bad frame: %v", p.channel.name, p.id, err)
			continue
		}
		if env.Type != TypeCall {
			logging.Debugf("channel %s: ignoring %s envelope from peer %s", p.channel.name, env.Type, p.id)
			continue
		}

		// Calls are answered one at a time in arrival order. Pongs are still
		// handled because the control handler runs inside ReadMessage.
		reply := p.channel.dispatch(ctx, env)
		if env.ID == 0 {
			continue
		}
		out, err := reply.Bytes()
		if err != nil {
			logging.Errorf("channel %s: encode reply %d: %v", p.channel.name, env.ID, err)
			continue
		}
		if !p.reply(out) {
			logging.Warnf("channel %s: peer %s could not take reply %d, disconnecting", p.channel.name, p.id, env.ID)
			return
		}
	}
}

// writePump is the only goroutine writing to the connection.
func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
		close(p.writerGone)
	}()

	for {
		select {
		case <-p.done:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			p.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
