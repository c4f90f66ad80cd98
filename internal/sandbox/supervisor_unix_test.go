//go:build !windows

package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/sys/unix"
)

func writeFakeTool(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func waitForLogLine(t *testing.T, logPath, line string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(logPath)
		if err == nil && strings.Contains(string(data), line) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("log %s never contained %q", logPath, line)
}

func TestAwaitDisplayReady_AcceptsServerSocket(t *testing.T) {
	lockDir := t.TempDir()
	display := &Display{Number: 10}
	xvfbExit := make(chan error, 1)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.MkdirAll(filepath.Join(lockDir, ".X11-unix"), 0o755)
		_ = os.WriteFile(filepath.Join(lockDir, ".X11-unix", "X10"), nil, 0o644)
	}()

	start := time.Now()
	err := awaitDisplayReady(context.Background(), Options{LockDir: lockDir, ReadyTimeout: 5 * time.Second}, display, xvfbExit)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "a present socket must count as ready without waiting out the timeout")
}

func TestAwaitDisplayReady_ServerExitFailsFast(t *testing.T) {
	lockDir := t.TempDir()
	display := &Display{Number: 10}
	xvfbExit := make(chan error, 1)
	xvfbExit <- fmt.Errorf("exit status 1")

	err := awaitDisplayReady(context.Background(), Options{LockDir: lockDir, ReadyTimeout: 5 * time.Second}, display, xvfbExit)
	var startup *StartupError
	require.ErrorAs(t, err, &startup)
	assert.Equal(t, "xvfb-start", startup.Stage)
}

func TestAwaitDisplayReady_Timeout(t *testing.T) {
	lockDir := t.TempDir()
	display := &Display{Number: 10}
	xvfbExit := make(chan error, 1)

	err := awaitDisplayReady(context.Background(), Options{LockDir: lockDir, ReadyTimeout: 150 * time.Millisecond}, display, xvfbExit)
	var startup *StartupError
	require.ErrorAs(t, err, &startup)
	assert.Equal(t, "xvfb-ready", startup.Stage)
}

func TestVideoRecorder_StopIsIdempotent(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	rec := &videoRecorder{cmd: cmd, exit: make(chan error, 1)}
	go func() { rec.exit <- cmd.Wait() }()

	require.NoError(t, rec.stop())

	// The second call must return the cached result without signaling
	// or blocking on an already-reaped process.
	start := time.Now()
	require.NoError(t, rec.stop())
	assert.Less(t, time.Since(start), time.Second)
}

// An interrupt during the run tears the session down from inside the
// signal handler; the recorder has to be stopped before the display
// server there too, or the tail of the capture is lost.
func TestRun_SignalStopsRecorderBeforeDisplayServer(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns fake display tooling and signals the test process")
	}

	toolDir := t.TempDir()
	lockDir := t.TempDir()
	tempDir := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "order.log")

	xvfb := writeFakeTool(t, toolDir, "Xvfb", fmt.Sprintf(`#!/bin/sh
d=${1#:}
mkdir -p %[1]s/.X11-unix
: > %[1]s/.X11-unix/X$d
trap "echo xvfb-term >> %[2]s; exit 0" TERM
while :; do sleep 0.05; done
`, lockDir, logPath))
	xauth := writeFakeTool(t, toolDir, "xauth", "#!/bin/sh\nexit 0\n")
	ffmpeg := writeFakeTool(t, toolDir, "ffmpeg", fmt.Sprintf(`#!/bin/sh
echo ffmpeg-start >> %[1]s
trap "echo ffmpeg-term >> %[1]s; exit 0" TERM
while :; do sleep 0.05; done
`, logPath))

	// Catch the signal at the test level too, in case it lands before
	// the supervisor's own handler is installed.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, unix.SIGTERM)
	defer signal.Stop(guard)

	type runResult struct {
		code int
		err  error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		code, err := Run(context.Background(),
			[]string{"sh", "-c", fmt.Sprintf("echo cmd-start >> %s; exec sleep 60", logPath)},
			Options{
				VideoPath:    filepath.Join(tempDir, "out.mp4"),
				ReadyTimeout: 5 * time.Second,
				Stdout:       io.Discard,
				Stderr:       io.Discard,
				TempDir:      tempDir,
				LockDir:      lockDir,
				XvfbPath:     xvfb,
				XauthPath:    xauth,
				FFmpegPath:   ffmpeg,
			})
		resultCh <- runResult{code, err}
	}()

	waitForLogLine(t, logPath, "ffmpeg-start")
	waitForLogLine(t, logPath, "cmd-start")
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGTERM))

	var res runResult
	select {
	case res = <-resultCh:
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after SIGTERM")
	}
	require.NoError(t, res.err)
	assert.Equal(t, 143, res.code, "the interrupted command's signal death is the exit code")

	waitForLogLine(t, logPath, "xvfb-term")
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "ffmpeg-term")
	assert.Less(t, strings.Index(log, "ffmpeg-term"), strings.Index(log, "xvfb-term"),
		"recorder must stop before the display server on the interrupt path")
}
