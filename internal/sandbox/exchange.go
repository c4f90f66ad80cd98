package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ExitCodeEnvVar names the file where the wrapped child process reports
// its exit code back to the supervisor.
const ExitCodeEnvVar = "GUI_REPLAY_EXITCODE_FILE"

var (
	// ErrNoResult means the child never reported an exit code.
	ErrNoResult = errors.New("no exit code was reported")
	// ErrAlreadyTaken means the exchange was consumed once already.
	ErrAlreadyTaken = errors.New("exit code already consumed")
)

// Exchange is a single-use exit-code handoff between the supervisor and
// the wrapped child. The child writes the code with Put; the supervisor
// consumes it exactly once with Take. Callers of the supervisor never
// see the file, only the awaited int.
type Exchange struct {
	path string

	mu    sync.Mutex
	taken bool
}

// NewExchange reserves an exchange file path under dir.
func NewExchange(dir, sessionID string) *Exchange {
	return &Exchange{path: filepath.Join(dir, "retval-"+sessionID)}
}

// ExchangeAt wraps an existing exchange file path. Used by the child end
// of the handoff, which learns the path from the environment.
func ExchangeAt(path string) *Exchange {
	return &Exchange{path: path}
}

// Path returns the exchange file location.
func (e *Exchange) Path() string { return e.path }

// Put writes the exit code. Atomic via tmp+rename so a crashing writer
// never leaves a partial value behind.
func (e *Exchange) Put(code int) error {
	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(code)+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write exit code: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish exit code: %w", err)
	}
	return nil
}

// Take reads and deletes the exit code. The second call, and any call
// when no code was written, returns an error.
func (e *Exchange) Take() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.taken {
		return 0, ErrAlreadyTaken
	}
	e.taken = true

	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNoResult
		}
		return 0, fmt.Errorf("failed to read exit code: %w", err)
	}
	defer os.Remove(e.path)

	code, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed exit code %q: %w", strings.TrimSpace(string(data)), err)
	}
	return code, nil
}
