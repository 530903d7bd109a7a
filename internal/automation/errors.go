package automation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/ShayCichocki/tiergate/pkg/models"
)

var (
	// ErrNotConnected is returned by calls made before a successful Connect.
	ErrNotConnected = errors.New("automation client not connected")
	// ErrTimeout marks a backend call that timed out.
	ErrTimeout = errors.New("automation backend timed out")
	// ErrPermission marks a backend that refused access.
	ErrPermission = errors.New("permission denied by automation backend")
	// ErrAuth marks rejected backend credentials.
	ErrAuth = errors.New("automation backend authentication failed")
	// ErrVersion marks an incompatible backend version.
	ErrVersion = errors.New("automation backend version mismatch")
	// ErrUnsupported marks a capability the backend does not offer.
	ErrUnsupported = errors.New("capability not supported by automation backend")
)

// ConfigError reports a malformed step. It is fatal to the call and never retried.
type ConfigError struct {
	Step   int
	Action models.Action
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("step %d (%s): invalid configuration: %v", e.Step, e.Action, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// AssertionError reports an assertion that did not hold.
type AssertionError struct {
	Action   models.Action
	Selector string
	Message  string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// IsTimeout reports whether err is any flavour of timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsPermission reports whether err is a permission failure.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission) || errors.Is(err, fs.ErrPermission)
}

// FailureKindOf maps an execution error onto a failure kind.
func FailureKindOf(err error) models.FailureKind {
	var cfgErr *ConfigError
	var assertErr *AssertionError
	switch {
	case errors.As(err, &cfgErr):
		return models.FailureConfig
	case errors.As(err, &assertErr):
		return models.FailureAssertion
	default:
		return models.FailureSession
	}
}
