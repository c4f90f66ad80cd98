//go:build !windows

package sandbox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gui-replay/gui-replay/internal/scenario"
)

const (
	// DefaultResolution is the virtual screen geometry when none is given.
	DefaultResolution = "1280x1024"
	// DefaultReadyTimeout bounds the wait for Xvfb to signal readiness.
	DefaultReadyTimeout = 10 * time.Second
	// defaultFrameRate is the ffmpeg capture rate.
	defaultFrameRate = 25
	// killGrace is how long a SIGTERM'd process gets before SIGKILL.
	killGrace = 3 * time.Second
)

// Options configures a sandbox run.
type Options struct {
	// Resolution is the virtual screen geometry as "WxH".
	Resolution string
	// VideoPath enables ffmpeg x11grab capture to the given file.
	VideoPath string
	// ReadyTimeout bounds the wait for the display server.
	ReadyTimeout time.Duration
	// Stdout and Stderr receive the wrapped command's output.
	// Defaults are os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
	// TempDir holds the authority, claim and exchange files for the
	// session. A private directory is created when empty.
	TempDir string
	// LockDir is where X server lock files and sockets live.
	// Defaults to /tmp.
	LockDir string
	// DenyEnv lists extra env var glob patterns to scrub from the child.
	DenyEnv []string

	// Tool paths, resolved via exec.LookPath when empty.
	XvfbPath   string
	XauthPath  string
	FFmpegPath string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Resolution == "" {
		out.Resolution = DefaultResolution
	}
	if out.ReadyTimeout <= 0 {
		out.ReadyTimeout = DefaultReadyTimeout
	}
	if out.Stdout == nil {
		out.Stdout = os.Stdout
	}
	if out.Stderr == nil {
		out.Stderr = os.Stderr
	}
	if out.LockDir == "" {
		out.LockDir = "/tmp"
	}
	if out.XvfbPath == "" {
		out.XvfbPath = "Xvfb"
	}
	if out.XauthPath == "" {
		out.XauthPath = "xauth"
	}
	if out.FFmpegPath == "" {
		out.FFmpegPath = "ffmpeg"
	}
	return out
}

// Run executes argv inside a private virtual display and returns the
// command's exit code. Infrastructure failures return a *StartupError;
// a non-zero exit code from the command itself is not an error.
func Run(ctx context.Context, argv []string, opts Options) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("no command given")
	}
	o := opts.withDefaults()

	width, height, err := scenario.ParseResolution(o.Resolution)
	if err != nil {
		return 0, fmt.Errorf("invalid resolution: %w", err)
	}

	xvfbPath, err := exec.LookPath(o.XvfbPath)
	if err != nil {
		return 0, startupErr("xvfb-start", err)
	}
	xauthPath, err := exec.LookPath(o.XauthPath)
	if err != nil {
		return 0, startupErr("xauth", err)
	}
	ffmpegPath := ""
	if o.VideoPath != "" {
		ffmpegPath, err = exec.LookPath(o.FFmpegPath)
		if err != nil {
			return 0, startupErr("ffmpeg", err)
		}
	}

	session := NewSession()
	defer session.Cleanup()

	tempDir := o.TempDir
	if tempDir == "" {
		tempDir, err = os.MkdirTemp("", "gui-replay-")
		if err != nil {
			return 0, startupErr("display-allocate", err)
		}
		_ = session.OnCleanup(func() { _ = os.RemoveAll(tempDir) })
	}

	display, err := AllocateDisplay(o.LockDir, tempDir)
	if err != nil {
		return 0, startupErr("display-allocate", err)
	}
	_ = session.OnCleanup(display.Release)

	// The cookie must be registered before Xvfb starts so no window
	// exists in which the server is up but unauthenticated.
	cookie, err := newCookie()
	if err != nil {
		return 0, startupErr("xauth", err)
	}
	authFile := filepath.Join(tempDir, "Xauthority")
	if err := os.WriteFile(authFile, nil, 0o600); err != nil {
		return 0, startupErr("xauth", err)
	}
	add := exec.CommandContext(ctx, xauthPath, "-f", authFile,
		"add", display.String(), "MIT-MAGIC-COOKIE-1", cookie)
	add.Stderr = o.Stderr
	if err := add.Run(); err != nil {
		return 0, startupErr("xauth", err)
	}
	_ = session.OnCleanup(func() {
		_ = exec.Command(xauthPath, "-f", authFile, "remove", display.String()).Run()
	})

	xvfbExit, err := startXvfb(session, xvfbPath, display, authFile, width, height, o.Stderr)
	if err != nil {
		return 0, err
	}
	if err := awaitDisplayReady(ctx, o, display, xvfbExit); err != nil {
		return 0, err
	}
	if err := session.Transition(StateReady); err != nil {
		return 0, startupErr("xvfb-ready", err)
	}

	var recorder *videoRecorder
	if o.VideoPath != "" {
		recorder, err = startVideoRecorder(ffmpegPath, display, authFile, o, width, height)
		if err != nil {
			return 0, err
		}
		// Registered after the display server's teardown so the reverse
		// cleanup order stops the recorder before the server goes away,
		// on the signal path as much as on the normal one.
		_ = session.OnCleanup(func() { _ = recorder.stop() })
	}

	exchange := NewExchange(tempDir, session.ID())
	code, runErr := runCommand(ctx, session, argv, display, authFile, exchange, o)

	if recorder != nil {
		if err := recorder.stop(); err != nil {
			fmt.Fprintf(o.Stderr, "gui-replay: warning: video capture failed: %v\n", err)
		}
	}
	return code, runErr
}

// startXvfb launches the display server in its own process group with
// SIGUSR1 readiness reporting, and registers its teardown on the session.
func startXvfb(session *Session, xvfbPath string, display *Display, authFile string, width, height int, stderr io.Writer) (<-chan error, error) {
	// Xvfb signals its parent with SIGUSR1 once it accepts connections,
	// but only when it inherits SIGUSR1 as ignored. Set that disposition
	// before the fork; the parent's own handler is installed afterwards
	// by awaitDisplayReady.
	signal.Ignore(unix.SIGUSR1)

	xvfb := exec.Command(xvfbPath, display.String(),
		"-nolisten", "tcp",
		"-auth", authFile,
		"-screen", "0", fmt.Sprintf("%dx%dx16", width, height))
	xvfb.Stderr = stderr
	xvfb.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := xvfb.Start(); err != nil {
		signal.Reset(unix.SIGUSR1)
		return nil, startupErr("xvfb-start", err)
	}

	exit := make(chan error, 1)
	go func() { exit <- xvfb.Wait() }()

	pid := xvfb.Process.Pid
	_ = session.OnCleanup(func() {
		terminateGroup(pid, exit)
		signal.Reset(unix.SIGUSR1)
	})
	return exit, nil
}

// awaitDisplayReady blocks until Xvfb reports readiness, it exits, the
// timeout lapses, or ctx is cancelled. The readiness signal can land in
// the short gap before our handler is installed, so the server socket is
// polled as a second readiness source.
func awaitDisplayReady(ctx context.Context, o Options, display *Display, xvfbExit <-chan error) error {
	ready := make(chan os.Signal, 1)
	signal.Notify(ready, unix.SIGUSR1)
	defer signal.Stop(ready)

	socket := filepath.Join(o.LockDir, ".X11-unix", fmt.Sprintf("X%d", display.Number))
	poll := time.NewTicker(25 * time.Millisecond)
	defer poll.Stop()

	deadline := time.NewTimer(o.ReadyTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ready:
			return nil
		case <-poll.C:
			if _, err := os.Stat(socket); err == nil {
				return nil
			}
		case err := <-xvfbExit:
			return startupErr("xvfb-start", fmt.Errorf("Xvfb exited before becoming ready: %v", err))
		case <-deadline.C:
			return startupErr("xvfb-ready", fmt.Errorf("display %s not ready after %s", display, o.ReadyTimeout))
		case <-ctx.Done():
			return startupErr("xvfb-ready", ctx.Err())
		}
	}
}

// runCommand executes argv on the sandboxed display and resolves its
// exit code, preferring the exchange value when the child reported one.
func runCommand(ctx context.Context, session *Session, argv []string, display *Display, authFile string, exchange *Exchange, o Options) (int, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = o.Stdout
	cmd.Stderr = o.Stderr
	cmd.Env = BuildChildEnv(ChildEnv{
		Display:      display.String(),
		Authority:    authFile,
		SessionID:    session.ID(),
		ExchangePath: exchange.Path(),
		Deny:         o.DenyEnv,
	})
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, startupErr("command-start", err)
	}
	if err := session.Transition(StateRunning); err != nil {
		return 0, startupErr("command-start", err)
	}
	pgid := cmd.Process.Pid

	// Interrupting the run tears the session down and forwards the
	// signal to the whole child group.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
wait:
	for {
		select {
		case sig := <-sigCh:
			if s, ok := sig.(syscall.Signal); ok {
				_ = unix.Kill(-pgid, s)
			}
			session.Cleanup()
		case <-ctx.Done():
			_ = unix.Kill(-pgid, unix.SIGTERM)
			select {
			case waitErr = <-done:
			case <-time.After(killGrace):
				_ = unix.Kill(-pgid, unix.SIGKILL)
				waitErr = <-done
			}
			break wait
		case waitErr = <-done:
			break wait
		}
	}

	return resolveExitCode(exchange, waitErr, o.Stderr), nil
}

// videoRecorder wraps a running ffmpeg x11grab process.
type videoRecorder struct {
	cmd  *exec.Cmd
	exit chan error

	stopOnce sync.Once
	stopErr  error
}

// startVideoRecorder launches ffmpeg against the sandboxed display.
// Started only after the display is ready, so the first frames are real.
func startVideoRecorder(ffmpegPath string, display *Display, authFile string, o Options, width, height int) (*videoRecorder, error) {
	cmd := exec.Command(ffmpegPath,
		"-y",
		"-loglevel", "error",
		"-f", "x11grab",
		"-r", fmt.Sprintf("%d", defaultFrameRate),
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-i", display.String(),
		o.VideoPath)
	cmd.Env = BuildChildEnv(ChildEnv{Display: display.String(), Authority: authFile})
	cmd.Stderr = o.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, startupErr("ffmpeg", err)
	}
	rec := &videoRecorder{cmd: cmd, exit: make(chan error, 1)}
	go func() { rec.exit <- cmd.Wait() }()
	return rec, nil
}

// stop asks ffmpeg to finish the file with SIGTERM, escalating to
// SIGKILL after a bounded wait. Idempotent: both the session cleanup
// stack and the normal return path call it. A dirty encoder exit is
// reported to the caller as an error but never affects the wrapped
// command's status.
func (r *videoRecorder) stop() error {
	r.stopOnce.Do(func() { r.stopErr = r.terminate() })
	return r.stopErr
}

func (r *videoRecorder) terminate() error {
	pid := r.cmd.Process.Pid
	_ = unix.Kill(-pid, unix.SIGTERM)

	select {
	case err := <-r.exit:
		// ffmpeg exits non-zero when interrupted by SIGTERM mid-frame;
		// the file is still finalized, so only a signal kill is dirty.
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return err
		}
		return nil
	case <-time.After(killGrace):
		_ = unix.Kill(-pid, unix.SIGKILL)
		<-r.exit
		return fmt.Errorf("encoder did not stop within %s", killGrace)
	}
}

// terminateGroup SIGTERMs a process group, waits briefly for exit, then
// SIGKILLs any survivors.
func terminateGroup(pgid int, exit <-chan error) {
	_ = unix.Kill(-pgid, unix.SIGTERM)
	select {
	case <-exit:
	case <-time.After(killGrace):
		_ = unix.Kill(-pgid, unix.SIGKILL)
	}
}

// newCookie returns a fresh 128-bit hex MIT-MAGIC-COOKIE-1 value.
func newCookie() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate display cookie: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}
