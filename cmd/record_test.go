package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gui-replay/gui-replay/internal/driver"
	"github.com/gui-replay/gui-replay/internal/driver/drivertest"
	"github.com/gui-replay/gui-replay/internal/recorder"
	"github.com/gui-replay/gui-replay/internal/scenario"
	"github.com/gui-replay/gui-replay/internal/uitree/treetest"
)

// newTestCommand returns a cobra command shell capturing output, for
// invoking Run functions directly.
func newTestCommand(t *testing.T) (*cobra.Command, *strings.Builder, *strings.Builder) {
	t.Helper()
	var stdout, stderr strings.Builder
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())
	return cmd, &stdout, &stderr
}

func resetRecordFlags(t *testing.T) {
	t.Helper()
	recordNameFlag = ""
	recordIncludeFlag = ""
	recordExcludeFlag = ""
	t.Cleanup(func() {
		recordNameFlag = ""
		recordIncludeFlag = ""
		recordExcludeFlag = ""
	})
}

func TestRunRecord_CapturesEmittedEvents(t *testing.T) {
	resetRecordFlags(t)
	recordNameFlag = "login-flow"

	app := drivertest.New(
		treetest.New("Root", "",
			treetest.New("Window", "",
				treetest.New("Button", "Submit"))))
	driver.Register("test-record-app", app.Launch)
	defer driver.Unregister("test-record-app")

	button := app.Tree().Kids[0].Kids[0]
	go func() {
		for !app.HasSubscriber() {
			time.Sleep(time.Millisecond)
		}
		app.Emit(recorder.CapturedEvent{
			Kind:   scenario.PointerPress,
			Target: button,
			Pos:    &scenario.Point{X: 5, Y: 5},
			Button: "left",
		})
		app.Emit(recorder.CapturedEvent{Kind: scenario.KeyPress, Key: "Enter"})
		app.Terminate()
	}()

	path := filepath.Join(t.TempDir(), "recorded.yaml")
	cmd, stdout, _ := newTestCommand(t)
	require.NoError(t, runRecord(cmd, []string{path, "test-record-app"}))
	assert.Contains(t, stdout.String(), "recorded 2 event(s)")

	scn, err := scenario.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "login-flow", scn.Meta.Name)
	assert.Equal(t, "test-record-app", scn.Meta.EntryPoint)
	require.Len(t, scn.Events, 2)
	assert.Equal(t, scenario.PointerPress, scn.Events[0].Kind)
	assert.Equal(t, "Window[0] > Button(\"Submit\")[0]", scn.Events[0].Target.String())
	assert.Equal(t, scenario.KeyPress, scn.Events[1].Kind)
}

func TestRunRecord_ExcludeFilter(t *testing.T) {
	resetRecordFlags(t)
	recordNameFlag = "filtered"
	recordExcludeFlag = "key-press"

	app := drivertest.New(treetest.New("Window", "main"))
	driver.Register("test-record-filter", app.Launch)
	defer driver.Unregister("test-record-filter")

	go func() {
		for !app.HasSubscriber() {
			time.Sleep(time.Millisecond)
		}
		app.Emit(recorder.CapturedEvent{Kind: scenario.KeyPress, Key: "Enter"})
		app.Terminate()
	}()

	path := filepath.Join(t.TempDir(), "recorded.yaml")
	cmd, stdout, _ := newTestCommand(t)
	require.NoError(t, runRecord(cmd, []string{path, "test-record-filter"}))
	assert.Contains(t, stdout.String(), "recorded 0 event(s)")
}

func TestRunRecord_UnknownEntryPoint(t *testing.T) {
	resetRecordFlags(t)
	cmd, _, _ := newTestCommand(t)
	err := runRecord(cmd, []string{filepath.Join(t.TempDir(), "x.yaml"), "no-such-app"})
	require.Error(t, err)

	var unknown *driver.UnknownEntryPointError
	assert.ErrorAs(t, err, &unknown)
}

func TestRunRecord_BadKindList(t *testing.T) {
	resetRecordFlags(t)
	recordIncludeFlag = "pointer-press,bogus"
	cmd, _, _ := newTestCommand(t)
	err := runRecord(cmd, []string{filepath.Join(t.TempDir(), "x.yaml"), "whatever"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event kind")
}
