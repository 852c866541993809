// Package sim is an in-memory platform: audio session, notification
// center, window and hidden volume view. It backs the tests and the
// `serve --platform sim` mode, and can simulate hardware volume buttons
// and app lifecycle transitions.
package sim

import (
	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/notify"
	"perfect-volume-control/internal/viewtree"
)

// ButtonStep is the volume change of one hardware button press.
const ButtonStep = 1.0 / 16

// Platform is a complete simulated host.
type Platform struct {
	Session *Session
	Center  *notify.Center
	App     *viewtree.Application
	View    *viewtree.VolumeView
	Slider  *viewtree.Slider
}

type options struct {
	volume   float64
	noSlider bool
	headless bool
}

// Option customizes a simulated platform.
type Option func(*options)

// WithVolume sets the initial output volume.
func WithVolume(v float64) Option {
	return func(o *options) { o.volume = v }
}

// WithoutSlider builds a volume view whose slider never loaded.
func WithoutSlider() Option {
	return func(o *options) { o.noSlider = true }
}

// Headless builds an application without a window root view.
func Headless() Option {
	return func(o *options) { o.headless = true }
}

// New creates a simulated platform at volume 0.5 unless overridden.
func New(opts ...Option) *Platform {
	o := options{volume: 0.5}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Platform{Center: notify.NewCenter()}
	p.Session = NewSession(p.Center, o.volume)

	if !o.noSlider {
		p.Slider = viewtree.NewSlider(func(v float64) {
			p.Session.SetSystemVolume(v)
		})
		p.Slider.Sync(o.volume)
	}
	p.View = viewtree.NewVolumeView(p.Slider)

	if o.headless {
		p.App = viewtree.NewHeadlessApplication()
	} else {
		p.App = viewtree.NewApplication()
	}
	return p
}

// Ports returns the platform as the bridge's port bundle.
func (p *Platform) Ports() domain.Platform {
	return domain.Platform{
		Session:       p.Session,
		Notifications: p.Center,
		Application:   p.App,
		VolumeView:    p.View,
	}
}

// PressVolumeButton simulates hardware buttons: positive delta for up,
// negative for down. It returns the resulting volume.
func (p *Platform) PressVolumeButton(delta float64) float64 {
	v := p.Session.SetSystemVolume(p.Session.OutputVolume() + delta)
	if p.Slider != nil {
		p.Slider.Sync(v)
	}
	return v
}

// EnterBackground deactivates the session and posts the background notification.
func (p *Platform) EnterBackground() {
	p.Session.Deactivate()
	p.Center.Post(domain.Notification{Name: domain.NotificationDidEnterBackground})
}

// EnterForeground posts the will-enter-foreground notification.
func (p *Platform) EnterForeground() {
	p.Center.Post(domain.Notification{Name: domain.NotificationWillEnterForeground})
}
