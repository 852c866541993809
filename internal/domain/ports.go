package domain

// Notification names and payload keys delivered through a NotificationCenter.
const (
	NotificationSystemVolumeDidChange = "AVSystemController_SystemVolumeDidChangeNotification"
	NotificationWillEnterForeground   = "UIApplicationWillEnterForegroundNotification"
	NotificationDidEnterBackground    = "UIApplicationDidEnterBackgroundNotification"

	UserInfoAudioVolume = "AVSystemController_AudioVolumeNotificationParameter"
)

// Observation is a live registration returned by AudioSession.ObserveOutputVolume.
type Observation interface {
	Invalidate()
}

// AudioSession is a secondary port over the process-wide audio session.
// The bridge only activates and reads it.
type AudioSession interface {
	Activate(opts SessionOptions) error
	OutputVolume() float64
	// ObserveOutputVolume calls fn after every change of the output volume.
	ObserveOutputVolume(fn func(old, new float64)) (Observation, error)
}

// Notification is a named broadcast with an optional payload.
type Notification struct {
	Name     string
	UserInfo map[string]any
}

// ObserverToken identifies one NotificationCenter registration.
type ObserverToken uint64

// NotificationCenter is a secondary port for system-wide broadcasts.
type NotificationCenter interface {
	AddObserver(name string, fn func(Notification)) ObserverToken
	RemoveObserver(token ObserverToken)
	Post(n Notification)
}

// View is a node in the host view hierarchy.
type View interface {
	Superview() ViewHost
	RemoveFromSuperview()
}

// ViewHost is a view that holds subviews.
type ViewHost interface {
	View
	Subviews() []View
	AddSubview(v View)
}

// Slider is a value control; driving the volume view's slider changes the system volume.
type Slider interface {
	View
	Value() float64
	SetValue(v float64, animated bool)
}

// VolumeView is the hidden container whose slider is the only way to set the volume.
type VolumeView interface {
	ViewHost
	Frame() Rect
	SetFrame(r Rect)
	ShowsRouteButton() bool
	SetShowsRouteButton(show bool)
}

// Application is the host application the bridge runs inside.
type Application interface {
	// RootView returns the root of the visible hierarchy, if there is a window.
	RootView() (ViewHost, bool)
	BeginReceivingRemoteControlEvents()
}

// Platform bundles the secondary ports the bridge needs.
type Platform struct {
	Session       AudioSession
	Notifications NotificationCenter
	Application   Application
	VolumeView    VolumeView
}

// EventSink pushes outbound calls to the application layer.
type EventSink interface {
	InvokeMethod(method string, arguments any) error
}
