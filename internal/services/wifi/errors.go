package wifi

import (
	"context"
	"errors"
	"fmt"

	"github.com/bbernstein/lacylights-wifi/internal/services/diagnostics"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

var (
	// ErrInvalidArgument is returned when a required ssid or ip is missing.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoMatchingAccessPoint is returned when a scan produced no acceptable candidate.
	ErrNoMatchingAccessPoint = errors.New("no matching access point")
	// ErrConnectionTimeout is returned when the station did not obtain an address in time.
	ErrConnectionTimeout = errors.New("connection timed out")
	// ErrNoProfile is returned when the persisted configuration holds no matching profile.
	ErrNoProfile = errors.New("no matching profile in configuration")
)

// ConfigIOError is a failure to read or write the persisted configuration.
type ConfigIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigIOError) Error() string {
	return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigIOError) Unwrap() error {
	return e.Err
}

// ErrorKind names the kind of err for results, history and metrics.
func ErrorKind(err error) string {
	var ioErr *ConfigIOError
	var radioErr *radio.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	case errors.Is(err, ErrNoMatchingAccessPoint):
		return "NoMatchingAccessPoint"
	case errors.Is(err, ErrConnectionTimeout):
		return "ConnectionTimeout"
	case errors.Is(err, ErrNoProfile):
		return "NoProfile"
	case errors.Is(err, diagnostics.ErrResolution):
		return "ResolutionFailure"
	case errors.As(err, &ioErr):
		return "ConfigIOError"
	case errors.As(err, &radioErr):
		return "RadioError"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	default:
		return "Unknown"
	}
}
