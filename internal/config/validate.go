package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"perfect-volume-control/internal/logging"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidBackends returns the supported platform backends.
func ValidBackends() []string {
	return []string{BackendSim, BackendOsascript}
}

// Validate checks c and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{"server.addr", c.Server.Addr, "must not be empty"})
	}

	if c.Channel.Name == "" || strings.ContainsAny(c.Channel.Name, "/ ") {
		errs = append(errs, ValidationError{"channel.name", c.Channel.Name, "must be a non-empty name without slashes or spaces"})
	}
	if c.Channel.CallTimeout <= 0 {
		errs = append(errs, ValidationError{"channel.call_timeout", c.Channel.CallTimeout, "must be positive"})
	}
	if c.Channel.SendBuffer < 1 {
		errs = append(errs, ValidationError{"channel.send_buffer", c.Channel.SendBuffer, "must be at least 1"})
	}

	if !slices.Contains(ValidBackends(), c.Platform.Backend) {
		errs = append(errs, ValidationError{"platform.backend", c.Platform.Backend,
			fmt.Sprintf("must be one of %s", strings.Join(ValidBackends(), ", "))})
	}
	if c.Platform.PollInterval < 50*time.Millisecond {
		errs = append(errs, ValidationError{"platform.poll_interval", c.Platform.PollInterval, "must be >=50ms"})
	}
	if c.Platform.InitialVolume < 0 || c.Platform.InitialVolume > 1 {
		errs = append(errs, ValidationError{"platform.initial_volume", c.Platform.InitialVolume, "must be between 0 and 1"})
	}

	if c.Bridge.DedupWindow < 0 {
		errs = append(errs, ValidationError{"bridge.dedup_window", c.Bridge.DedupWindow, "must not be negative"})
	}

	if _, _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{"log.level", c.Log.Level, err.Error()})
	}

	return errs
}
