package channel

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfect-volume-control/internal/adapter/secondary/platform/sim"
	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/usecase"
)

func serve(t *testing.T, ch *Channel) string {
	t.Helper()
	srv := httptest.NewServer(ch)
	t.Cleanup(func() {
		ch.Close()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + ch.Path()
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func callCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestChannel_Path(t *testing.T) {
	ch := New(domain.ChannelName)
	assert.Equal(t, "/channels/perfect_volume_control", ch.Path())
	assert.Equal(t, domain.ChannelName, ch.Name())
}

func TestChannel_NoHandlerIsNotImplemented(t *testing.T) {
	ch := New("test")
	c := dial(t, serve(t, ch))

	_, err := c.InvokeMethod(callCtx(t), domain.MethodGetVolume, nil)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestChannel_RoundTrip(t *testing.T) {
	ch := New("test")
	ch.SetMethodCallHandler(func(ctx context.Context, call domain.MethodCall) (any, error) {
		switch call.Method {
		case "echo":
			return call.Arguments, nil
		case "fail":
			return nil, domain.ErrControlUnavailable
		}
		return nil, domain.ErrNotImplemented
	})
	c := dial(t, serve(t, ch))

	res, err := c.InvokeMethod(callCtx(t), "echo", map[string]any{"volume": 0.25})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"volume": 0.25}, res)

	_, err = c.InvokeMethod(callCtx(t), "fail", nil)
	assert.ErrorIs(t, err, domain.ErrControlUnavailable)
	var me *domain.MethodError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, domain.CodeControlUnavailable, me.Code)

	_, err = c.InvokeMethod(callCtx(t), "mute", nil)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestChannel_CallTimeout(t *testing.T) {
	ch := New("test", WithCallTimeout(20*time.Millisecond))
	ch.SetMethodCallHandler(func(ctx context.Context, call domain.MethodCall) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := dial(t, serve(t, ch))

	_, err := c.InvokeMethod(callCtx(t), "slow", nil)
	var me *domain.MethodError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, domain.CodeInternal, me.Code)
}

func TestChannel_BroadcastsToEveryPeer(t *testing.T) {
	ch := New("test")
	url := serve(t, ch)

	got := make(chan float64, 4)
	for i := 0; i < 2; i++ {
		c := dial(t, url)
		c.SetMethodCallHandler(func(method string, arguments any) {
			if method == domain.MethodVolumeChangeListener {
				v, _ := domain.ToFloat(arguments)
				got <- v
			}
		})
	}
	require.Eventually(t, func() bool { return ch.PeerCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, ch.InvokeMethod(domain.MethodVolumeChangeListener, 0.5))
	for i := 0; i < 2; i++ {
		select {
		case v := <-got:
			assert.Equal(t, 0.5, v)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestChannel_CloseDisconnectsPeers(t *testing.T) {
	ch := New("test")
	c := dial(t, serve(t, ch))
	require.Eventually(t, func() bool { return ch.PeerCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	ch.Close()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client still connected")
	}
	assert.Equal(t, 0, ch.PeerCount())

	_, err := c.InvokeMethod(callCtx(t), domain.MethodGetVolume, nil)
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestChannel_DrivesBridge(t *testing.T) {
	p := sim.New(sim.WithVolume(0.5))
	ch := New(domain.ChannelName)
	b, err := usecase.NewVolumeBridge(p.Ports(), ch, usecase.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	ch.SetMethodCallHandler(b.Handle)

	c := dial(t, serve(t, ch))
	events := make(chan float64, 16)
	c.SetMethodCallHandler(func(method string, arguments any) {
		v, _ := domain.ToFloat(arguments)
		events <- v
	})
	require.Eventually(t, func() bool { return ch.PeerCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	res, err := c.InvokeMethod(callCtx(t), domain.MethodGetVolume, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res)

	_, err = c.InvokeMethod(callCtx(t), domain.MethodSetVolume, map[string]any{"volume": 0.8})
	require.NoError(t, err)

	select {
	case v := <-events:
		assert.InDelta(t, 0.8, v, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("no volumeChangeListener event")
	}

	_, err = c.InvokeMethod(callCtx(t), domain.MethodSetVolume, map[string]any{"volume": "loud"})
	assert.ErrorIs(t, err, domain.ErrInvalidArguments)

	_, err = c.InvokeMethod(callCtx(t), domain.MethodHideUI, map[string]any{"hide": true})
	require.NoError(t, err)
	assert.True(t, p.App.Root().Contains(p.View))
}

func dialRaw(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeCall(t *testing.T, conn *websocket.Conn, id uint64, method string, args any) {
	t.Helper()
	env, err := NewCall(id, method, args)
	require.NoError(t, err)
	data, err := env.Bytes()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readReplies reads until n replies arrived, skipping pushed events.
func readReplies(t *testing.T, conn *websocket.Conn, n int) []*Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var replies []*Envelope
	for len(replies) < n {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "got %d of %d replies", len(replies), n)
		env, err := ParseEnvelope(data)
		require.NoError(t, err)
		if env.Type == TypeCall {
			continue
		}
		replies = append(replies, env)
	}
	return replies
}

func TestChannel_AnswersPipelinedCallsInOrder(t *testing.T) {
	p := sim.New(sim.WithVolume(0.5))
	ch := New(domain.ChannelName)
	b, err := usecase.NewVolumeBridge(p.Ports(), ch, usecase.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	ch.SetMethodCallHandler(b.Handle)
	conn := dialRaw(t, serve(t, ch))

	const pairs = 50
	want := make(map[uint64]float64, pairs)
	for i := 0; i < pairs; i++ {
		v := float64(i+1) / (pairs + 1)
		setID, getID := uint64(2*i+1), uint64(2*i+2)
		writeCall(t, conn, setID, domain.MethodSetVolume, map[string]any{"volume": v})
		writeCall(t, conn, getID, domain.MethodGetVolume, nil)
		want[getID] = v
	}

	replies := readReplies(t, conn, 2*pairs)
	for i, r := range replies {
		require.Equal(t, uint64(i+1), r.ID, "replies out of order")
		res, err := r.Outcome()
		require.NoError(t, err)
		if v, ok := want[r.ID]; ok {
			assert.InDelta(t, v, res, 1e-9, "getVolume %d does not reflect the setVolume before it", r.ID)
		}
	}
}

func TestChannel_NeverDropsReplies(t *testing.T) {
	ch := New("test", WithSendBuffer(1))
	ch.SetMethodCallHandler(func(ctx context.Context, call domain.MethodCall) (any, error) {
		for i := 0; i < 3; i++ {
			_ = ch.InvokeMethod(domain.MethodVolumeChangeListener, 0.5)
		}
		return call.Arguments, nil
	})
	conn := dialRaw(t, serve(t, ch))
	require.Eventually(t, func() bool { return ch.PeerCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	const calls = 200
	for i := 1; i <= calls; i++ {
		writeCall(t, conn, uint64(i), "echo", float64(i))
	}

	replies := readReplies(t, conn, calls)
	for i, r := range replies {
		assert.Equal(t, TypeSuccess, r.Type)
		res, err := r.Outcome()
		require.NoError(t, err)
		assert.Equal(t, float64(i+1), res)
	}
	assert.Equal(t, 1, ch.PeerCount())
}
