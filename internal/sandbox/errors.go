package sandbox

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by Run on platforms without virtual display
// support.
var ErrUnsupported = errors.New("display isolation is not supported on this platform")

// StartupError indicates that the sandbox infrastructure itself failed
// before or while supervising the command. It is distinct from the wrapped
// command failing with a non-zero exit code.
type StartupError struct {
	// Stage names the phase that failed: "display-allocate", "xauth",
	// "xvfb-start", "xvfb-ready", "ffmpeg", "command-start", "cleanup".
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("sandbox %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// startupErr wraps err in a StartupError for the given stage.
func startupErr(stage string, err error) *StartupError {
	return &StartupError{Stage: stage, Err: err}
}
