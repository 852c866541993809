// Package applescript is the macOS desktop platform. It reads and writes
// the system output volume through osascript. Desktop macOS has no
// embeddable volume HUD, so the hidden container is a virtual view whose
// slider writes the OS volume.
package applescript

import (
	"time"

	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/logging"
	"perfect-volume-control/internal/notify"
	"perfect-volume-control/internal/viewtree"
)

// Platform bundles the osascript-backed ports.
type Platform struct {
	Session *Session
	Center  *notify.Center
	App     *viewtree.Application
	View    *viewtree.VolumeView
}

// New creates the desktop platform. A nil runner uses osascript.
func New(run Runner, pollInterval time.Duration) *Platform {
	p := &Platform{
		Center: notify.NewCenter(),
		App:    viewtree.NewApplication(),
	}
	p.Session = NewSession(run, p.Center, pollInterval)

	slider := viewtree.NewSlider(func(v float64) {
		if err := p.Session.SetOutputVolume(v); err != nil {
			logging.Warnf("applescript: %v", err)
		}
	})
	p.View = viewtree.NewVolumeView(slider)
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
