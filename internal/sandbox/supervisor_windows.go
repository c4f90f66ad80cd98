//go:build windows

package sandbox

import (
	"context"
	"io"
	"time"
)

// DefaultResolution is the virtual screen geometry when none is given.
const DefaultResolution = "1280x1024"

// DefaultReadyTimeout bounds the wait for the display server.
const DefaultReadyTimeout = 10 * time.Second

// Options configures a sandbox run. Present on Windows so callers
// compile, but Run always fails with ErrUnsupported.
type Options struct {
	Resolution   string
	VideoPath    string
	ReadyTimeout time.Duration
	Stdout       io.Writer
	Stderr       io.Writer
	TempDir      string
	LockDir      string
	DenyEnv      []string

	XvfbPath   string
	XauthPath  string
	FFmpegPath string
}

// Run reports that display isolation requires a Unix host.
func Run(_ context.Context, _ []string, _ Options) (int, error) {
	return 0, ErrUnsupported
}
