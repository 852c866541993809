package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ChannelName is the method channel the application layer binds to.
const ChannelName = "perfect_volume_control"

// Inbound and outbound method names carried by the channel.
const (
	MethodGetVolume            = "getVolume"
	MethodSetVolume            = "setVolume"
	MethodHideUI               = "hideUI"
	MethodVolumeChangeListener = "volumeChangeListener"
)

// LifecycleState describes where the bridge is in its lifetime.
type LifecycleState int32

const (
	StateInactive LifecycleState = iota
	StateActive
	StateDisposed
)

func (s LifecycleState) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Rect is a view frame in points.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// OffscreenFrame keeps the hidden volume view outside any viewport.
var OffscreenFrame = Rect{X: -1000, Y: -1000, Width: 1, Height: 1}

// SessionOptions configures audio session activation.
type SessionOptions struct {
	Category string
	Mode     string
	Options  []string
}

// DefaultSessionOptions returns an ambient session that mixes with other audio.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Category: "ambient",
		Mode:     "default",
	}
}

// ChangeSource identifies which observation mechanism reported a volume change.
type ChangeSource int

const (
	SourceObservation ChangeSource = iota
	SourceNotification
)

func (s ChangeSource) String() string {
	switch s {
	case SourceObservation:
		return "observation"
	case SourceNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// VolumeChange is one observed change of the system output volume.
type VolumeChange struct {
	Volume float64
	Source ChangeSource
	At     time.Time
}

// MethodCall is an inbound request from the application layer.
// Arguments holds whatever the channel codec decoded: nil, a primitive,
// or a map[string]any for keyed arguments.
type MethodCall struct {
	Method    string
	Arguments any
}

// Argument returns a keyed argument when Arguments is a map.
func (c MethodCall) Argument(key string) (any, bool) {
	args, ok := c.Arguments.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := args[key]
	return v, ok
}

// FloatArgument returns a finite numeric argument.
func (c MethodCall) FloatArgument(key string) (float64, error) {
	raw, ok := c.Argument(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s requires %q", ErrInvalidArguments, c.Method, key)
	}
	v, ok := ToFloat(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q must be a finite number, got %v", ErrInvalidArguments, key, raw)
	}
	return v, nil
}

// BoolArgument returns a boolean argument.
func (c MethodCall) BoolArgument(key string) (bool, error) {
	raw, ok := c.Argument(key)
	if !ok {
		return false, fmt.Errorf("%w: %s requires %q", ErrInvalidArguments, c.Method, key)
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q must be a bool, got %T", ErrInvalidArguments, key, raw)
	}
	return v, nil
}

// ToFloat converts the numeric shapes a codec or notification payload may carry.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ClampVolume limits v to the [0, 1] range the OS accepts.
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
