package viewtree

import (
	"sync"

	"perfect-volume-control/internal/domain"
)

// VolumeView is the system volume container: a slider plus a route button.
type VolumeView struct {
	*Container

	propMu           sync.Mutex
	frame            domain.Rect
	showsRouteButton bool
}

// NewVolumeView creates a detached volume view. A nil slider builds a
// view whose slider never loaded, as happens on some hosts.
func NewVolumeView(slider *Slider) *VolumeView {
	v := &VolumeView{
		Container:        NewContainer("volume-view"),
		frame:            domain.Rect{Width: 300, Height: 34},
		showsRouteButton: true,
	}
	v.Container.self = v
	v.AddSubview(NewContainer("route-button"))
	if slider != nil {
		v.AddSubview(slider)
	}
	return v
}

func (v *VolumeView) Frame() domain.Rect {
	v.propMu.Lock()
	defer v.propMu.Unlock()
	return v.frame
}

func (v *VolumeView) SetFrame(r domain.Rect) {
	v.propMu.Lock()
	v.frame = r
	v.propMu.Unlock()
}

func (v *VolumeView) ShowsRouteButton() bool {
	v.propMu.Lock()
	defer v.propMu.Unlock()
	return v.showsRouteButton
}

func (v *VolumeView) SetShowsRouteButton(show bool) {
	v.propMu.Lock()
	v.showsRouteButton = show
	v.propMu.Unlock()
}

// Application owns the window root view and the remote-control flag.
type Application struct {
	mu            sync.Mutex
	root          *Container
	remoteControl bool
}

// NewApplication creates an application with a window root view.
func NewApplication() *Application {
	return &Application{root: NewContainer("root")}
}

// NewHeadlessApplication creates an application without a window.
func NewHeadlessApplication() *Application {
	return &Application{}
}

// RootView returns the window root view, if there is a window.
func (a *Application) RootView() (domain.ViewHost, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.root == nil {
		return nil, false
	}
	return a.root, true
}

// Root returns the concrete root container, or nil when headless.
func (a *Application) Root() *Container {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.root
}

func (a *Application) BeginReceivingRemoteControlEvents() {
	a.mu.Lock()
	a.remoteControl = true
	a.mu.Unlock()
}

// ReceivingRemoteControlEvents reports whether BeginReceivingRemoteControlEvents ran.
func (a *Application) ReceivingRemoteControlEvents() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remoteControl
}
