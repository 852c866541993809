package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/logging"
	"perfect-volume-control/internal/mainqueue"
)

// VolumeBridge is the primary port for volume operations.
// The method channel drives it through Handle.
type VolumeBridge interface {
	Start(ctx context.Context) error
	Handle(ctx context.Context, call domain.MethodCall) (any, error)
	GetVolume(ctx context.Context) (float64, error)
	SetVolume(ctx context.Context, volume float64) error
	HideUI(ctx context.Context, hide bool) error
	State() domain.LifecycleState
	Close() error
}

// Options tunes a VolumeBridge.
type Options struct {
	// Session is applied on start and on every foreground transition.
	Session domain.SessionOptions
	// DedupWindow collapses equal volume events seen within the window.
	// Zero keeps at-least-once delivery from both observation mechanisms.
	DedupWindow time.Duration
	// Now is the clock used for dedup; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns an ambient session without deduplication.
func DefaultOptions() Options {
	return Options{Session: domain.DefaultSessionOptions()}
}

// bridgeInteractor implements VolumeBridge.
// Every field below the queue is touched only from queue items.
type bridgeInteractor struct {
	platform domain.Platform
	sink     domain.EventSink
	opts     Options
	filter   domain.ChangeFilter

	queue   *mainqueue.Queue
	cancel  context.CancelFunc
	state   atomic.Int32
	startMu sync.Mutex

	slider      domain.Slider
	observation domain.Observation
	tokens      []domain.ObserverToken
	filterState domain.FilterState
	setups      int
}

// NewVolumeBridge creates an inactive bridge over platform that pushes
// volume events to sink. The slider is resolved here, once; Start
// performs session setup and observer registration.
func NewVolumeBridge(platform domain.Platform, sink domain.EventSink, opts Options) (VolumeBridge, error) {
	if platform.Session == nil || platform.Notifications == nil ||
		platform.Application == nil || platform.VolumeView == nil {
		return nil, errors.New("platform session, notifications, application and volume view are required")
	}
	if sink == nil {
		return nil, errors.New("event sink is required")
	}
	if opts.Session.Category == "" {
		opts.Session = domain.DefaultSessionOptions()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	b := &bridgeInteractor{
		platform: platform,
		sink:     sink,
		opts:     opts,
		filter:   domain.NewChangeFilter(opts.DedupWindow),
		queue:    mainqueue.New(),
	}
	b.slider = findSlider(platform.VolumeView)
	if b.slider == nil {
		logging.Warnf("bridge: volume view has no slider yet; setVolume will retry lookup")
	}
	return b, nil
}

func findSlider(container domain.ViewHost) domain.Slider {
	for _, v := range container.Subviews() {
		if s, ok := v.(domain.Slider); ok {
			return s
		}
	}
	return nil
}

// Start activates the session and registers the volume observers.
// Only the first call has an effect. ctx bounds the bridge lifetime.
func (b *bridgeInteractor) Start(ctx context.Context) error {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	switch b.State() {
	case domain.StateActive:
		return nil
	case domain.StateDisposed:
		return domain.ErrDisposed
	}

	qctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.queue.Start(qctx)
	go func() {
		select {
		case <-ctx.Done():
			_ = b.Close()
		case <-b.queue.Stopped():
		}
	}()

	return b.queue.Sync(ctx, func() {
		if b.State() == domain.StateDisposed {
			return
		}
		b.setupSession()
		b.bindListeners()
		b.setState(domain.StateActive)
		logging.Infof("bridge: active (session %s/%s)", b.opts.Session.Category, b.opts.Session.Mode)
	})
}

// setupSession activates the audio session. Failure degrades silently:
// it is logged and the bridge keeps running.
func (b *bridgeInteractor) setupSession() {
	b.setups++
	logging.Debugf("bridge: setting up audio session (#%d)", b.setups)
	if err := b.platform.Session.Activate(b.opts.Session); err != nil {
		logging.Warnf("bridge: failed to set up audio session: %v", err)
	}
}

func (b *bridgeInteractor) bindListeners() {
	session := b.platform.Session
	obs, err := session.ObserveOutputVolume(func(old, new float64) {
		b.queue.Async(func() {
			b.forward(domain.SourceObservation, session.OutputVolume())
		})
	})
	if err != nil {
		logging.Errorf("bridge: observe output volume: %v", err)
	} else {
		b.observation = obs
	}

	center := b.platform.Notifications
	b.tokens = append(b.tokens,
		center.AddObserver(domain.NotificationSystemVolumeDidChange, func(n domain.Notification) {
			b.queue.Async(func() { b.onSystemVolumeNotification(n) })
		}),
		center.AddObserver(domain.NotificationWillEnterForeground, func(domain.Notification) {
			b.queue.Async(b.onWillEnterForeground)
		}),
	)

	b.platform.Application.BeginReceivingRemoteControlEvents()
}

func (b *bridgeInteractor) onSystemVolumeNotification(n domain.Notification) {
	raw, ok := n.UserInfo[domain.UserInfoAudioVolume]
	if !ok {
		logging.Warnf("bridge: %s without %s", n.Name, domain.UserInfoAudioVolume)
		return
	}
	v, ok := domain.ToFloat(raw)
	if !ok {
		logging.Warnf("bridge: %s carried non-numeric volume %T", n.Name, raw)
		return
	}
	b.forward(domain.SourceNotification, v)
}

func (b *bridgeInteractor) onWillEnterForeground() {
	if b.State() != domain.StateActive {
		return
	}
	b.setupSession()
}

// forward pushes one volume event to the application layer.
func (b *bridgeInteractor) forward(source domain.ChangeSource, volume float64) {
	if b.State() != domain.StateActive {
		return
	}
	change := domain.VolumeChange{Volume: volume, Source: source, At: b.opts.Now()}
	admit, next := b.filter.Admit(b.filterState, change)
	b.filterState = next
	if !admit {
		logging.Tracef("bridge: dropped duplicate %.4f from %s", volume, source)
		return
	}
	logging.Debugf("bridge: volume changed to %.4f (%s)", volume, source)
	if err := b.sink.InvokeMethod(domain.MethodVolumeChangeListener, volume); err != nil {
		logging.Warnf("bridge: push %s: %v", domain.MethodVolumeChangeListener, err)
	}
}

// Handle dispatches an inbound method call.
func (b *bridgeInteractor) Handle(ctx context.Context, call domain.MethodCall) (any, error) {
	logging.Tracef("bridge: call %s %v", call.Method, call.Arguments)
	switch call.Method {
	case domain.MethodGetVolume:
		return b.GetVolume(ctx)
	case domain.MethodSetVolume:
		v, err := call.FloatArgument("volume")
		if err != nil {
			return nil, err
		}
		return nil, b.SetVolume(ctx, v)
	case domain.MethodHideUI:
		hide, err := call.BoolArgument("hide")
		if err != nil {
			return nil, err
		}
		return nil, b.HideUI(ctx, hide)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotImplemented, call.Method)
	}
}

func (b *bridgeInteractor) GetVolume(ctx context.Context) (float64, error) {
	var v float64
	err := b.run(ctx, func() error {
		v = b.platform.Session.OutputVolume()
		return nil
	})
	return v, err
}

// SetVolume drives the hidden slider; there is no direct volume setter.
func (b *bridgeInteractor) SetVolume(ctx context.Context, volume float64) error {
	return b.run(ctx, func() error {
		if b.slider == nil || b.slider.Superview() == nil {
			b.slider = findSlider(b.platform.VolumeView)
		}
		if b.slider == nil {
			return fmt.Errorf("setVolume: %w", domain.ErrControlUnavailable)
		}
		b.slider.SetValue(volume, false)
		return nil
	})
}

// HideUI parks the volume view off-screen inside the root view, which
// suppresses the system volume HUD, or removes it again.
func (b *bridgeInteractor) HideUI(ctx context.Context, hide bool) error {
	return b.run(ctx, func() error {
		view := b.platform.VolumeView
		if !hide {
			view.RemoveFromSuperview()
			return nil
		}
		view.SetFrame(domain.OffscreenFrame)
		view.SetShowsRouteButton(false)
		root, ok := b.platform.Application.RootView()
		if !ok {
			logging.Warnf("bridge: hideUI: no root view, system volume HUD stays visible")
			return nil
		}
		root.AddSubview(view)
		return nil
	})
}

// run executes fn on the main queue once the bridge is active.
func (b *bridgeInteractor) run(ctx context.Context, fn func() error) error {
	switch b.State() {
	case domain.StateInactive:
		return domain.ErrInactive
	case domain.StateDisposed:
		return domain.ErrDisposed
	}
	var err error
	if qerr := b.queue.Sync(ctx, func() {
		if b.State() != domain.StateActive {
			err = domain.ErrDisposed
			return
		}
		err = fn()
	}); qerr != nil {
		if errors.Is(qerr, mainqueue.ErrStopped) {
			return domain.ErrDisposed
		}
		return qerr
	}
	return err
}

func (b *bridgeInteractor) State() domain.LifecycleState {
	return domain.LifecycleState(b.state.Load())
}

func (b *bridgeInteractor) setState(s domain.LifecycleState) {
	b.state.Store(int32(s))
}

// Close removes every observer, detaches the hidden view and stops the
// main queue. It must not be called from a queued callback.
func (b *bridgeInteractor) Close() error {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	switch b.State() {
	case domain.StateDisposed:
		return nil
	case domain.StateInactive:
		b.setState(domain.StateDisposed)
		if b.cancel != nil {
			b.cancel()
		}
		return nil
	}

	err := b.queue.Sync(context.Background(), func() {
		b.setState(domain.StateDisposed)
		if b.observation != nil {
			b.observation.Invalidate()
			b.observation = nil
		}
		for _, tok := range b.tokens {
			b.platform.Notifications.RemoveObserver(tok)
		}
		b.tokens = nil
		b.platform.VolumeView.RemoveFromSuperview()
		logging.Infof("bridge: disposed")
	})
	b.setState(domain.StateDisposed)
	b.cancel()
	if errors.Is(err, mainqueue.ErrStopped) {
		return nil
	}
	return err
}
