package sandbox

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// resolveExitCode decides what the sandboxed command's exit code was.
// A child that reported through the exchange wins; one that died before
// reporting falls back to its wait status. A corrupt exchange value is
// surfaced as a warning on stderr, never as a failure.
func resolveExitCode(ex *Exchange, waitErr error, stderr io.Writer) int {
	code, err := ex.Take()
	switch {
	case err == nil:
		return code
	case errors.Is(err, ErrNoResult):
		return waitExitCode(waitErr)
	default:
		fmt.Fprintf(stderr, "gui-replay: warning: exit-code exchange unreadable, using wait status: %v\n", err)
		return waitExitCode(waitErr)
	}
}

// waitExitCode maps an exec.Cmd.Wait error onto a shell-style exit
// code: nil is 0, a signal death is 128+signum, a plain non-zero exit
// keeps its status. Anything else, such as a start failure, counts as 1.
func waitExitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return 1
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ws.ExitStatus()
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
