package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gui-replay/gui-replay/internal/driver"
	"github.com/gui-replay/gui-replay/internal/driver/drivertest"
	"github.com/gui-replay/gui-replay/internal/history"
	"github.com/gui-replay/gui-replay/internal/report"
	"github.com/gui-replay/gui-replay/internal/scenario"
	"github.com/gui-replay/gui-replay/internal/uitree/treetest"
)

func submitScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Version: scenario.FormatVersion,
		Meta: scenario.Meta{
			Name:       "submit-flow",
			EntryPoint: "demoapp",
			RecordedAt: time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		},
		Events: []scenario.Event{
			{
				OffsetMS: 0, Seq: 0, Kind: scenario.PointerPress,
				Target: scenario.Address{
					{Type: "Window", Index: 0},
					{Type: "Button", Name: "Submit", Index: 0},
				},
				Pos: &scenario.Point{X: 10, Y: 10}, Button: "left",
			},
			{OffsetMS: 40, Seq: 1, Kind: scenario.KeyPress, Key: "Enter"},
		},
	}
}

func submitApp() *drivertest.App {
	return drivertest.New(
		treetest.New("Root", "",
			treetest.New("Window", "",
				treetest.New("Button", "Submit"))))
}

// fastReplayFlags shrinks the wait bounds and resets replay flag state.
func fastReplayFlags(t *testing.T) {
	t.Helper()
	replayAbortFlag = false
	replayDryRunFlag = false
	replayMinWaitFlag = time.Millisecond
	replayMaxWaitFlag = 2 * time.Millisecond
	replayVideoFlag = ""
	t.Cleanup(func() {
		replayAbortFlag = false
		replayDryRunFlag = false
		replayMinWaitFlag = 0
		replayMaxWaitFlag = 0
	})
}

func TestReplayScenario_Pass(t *testing.T) {
	fastReplayFlags(t)
	app := submitApp()
	driver.Register("test-replay-pass", app.Launch)
	defer driver.Unregister("test-replay-pass")

	var stdout, stderr strings.Builder
	code, err := replayScenario(context.Background(), &stdout, &stderr,
		submitScenario(), "submit.yaml", "test-replay-pass", "text")
	require.NoError(t, err)
	assert.Equal(t, exitPass, code)
	assert.Contains(t, stdout.String(), "PASS")
	assert.Len(t, app.Injections(), 2)
	assert.True(t, app.Terminated())
}

func TestReplayScenario_FailureExitCode(t *testing.T) {
	fastReplayFlags(t)
	app := submitApp()
	app.Tree().Kids[0].Remove("Submit")
	driver.Register("test-replay-fail", app.Launch)
	defer driver.Unregister("test-replay-fail")

	var stdout, stderr strings.Builder
	code, err := replayScenario(context.Background(), &stdout, &stderr,
		submitScenario(), "submit.yaml", "test-replay-fail", "text")
	require.NoError(t, err)
	assert.Equal(t, exitFail, code)
	assert.Contains(t, stdout.String(), "FAIL")
	assert.Contains(t, stdout.String(), "not-found")
	assert.Len(t, app.Injections(), 1, "key-press still attempted")
}

func TestReplayScenario_JSONFormat(t *testing.T) {
	fastReplayFlags(t)
	app := submitApp()
	driver.Register("test-replay-json", app.Launch)
	defer driver.Unregister("test-replay-json")

	var stdout, stderr strings.Builder
	code, err := replayScenario(context.Background(), &stdout, &stderr,
		submitScenario(), "submit.yaml", "test-replay-json", "json")
	require.NoError(t, err)
	assert.Equal(t, exitPass, code)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(stdout.String()), &r))
	assert.Equal(t, "submit-flow", r.Scenario)
	assert.Equal(t, "pass", r.Status)
}

func TestReplayScenario_JUnitFormat(t *testing.T) {
	fastReplayFlags(t)
	app := submitApp()
	driver.Register("test-replay-junit", app.Launch)
	defer driver.Unregister("test-replay-junit")

	var stdout, stderr strings.Builder
	code, err := replayScenario(context.Background(), &stdout, &stderr,
		submitScenario(), "submit.yaml", "test-replay-junit", "junit")
	require.NoError(t, err)
	assert.Equal(t, exitPass, code)
	assert.Contains(t, stdout.String(), "<testsuites")
	assert.Contains(t, stdout.String(), `classname="submit.yaml"`)
}

func TestReplayScenario_DryRun(t *testing.T) {
	fastReplayFlags(t)
	replayDryRunFlag = true
	app := submitApp()
	driver.Register("test-replay-dry", app.Launch)
	defer driver.Unregister("test-replay-dry")

	var stdout, stderr strings.Builder
	code, err := replayScenario(context.Background(), &stdout, &stderr,
		submitScenario(), "submit.yaml", "test-replay-dry", "text")
	require.NoError(t, err)
	assert.Equal(t, exitPass, code)
	assert.Empty(t, app.Injections(), "dry run must not inject")
}

func TestReplayScenario_DryRunUnresolved(t *testing.T) {
	fastReplayFlags(t)
	replayDryRunFlag = true
	app := submitApp()
	app.Tree().Kids[0].Remove("Submit")
	driver.Register("test-replay-dry-fail", app.Launch)
	defer driver.Unregister("test-replay-dry-fail")

	var stdout, stderr strings.Builder
	code, err := replayScenario(context.Background(), &stdout, &stderr,
		submitScenario(), "submit.yaml", "test-replay-dry-fail", "text")
	require.NoError(t, err)
	assert.Equal(t, exitFail, code)
	assert.Empty(t, app.Injections())
}

func TestReplayScenario_UnknownEntryPoint(t *testing.T) {
	fastReplayFlags(t)
	var stdout, stderr strings.Builder
	_, err := replayScenario(context.Background(), &stdout, &stderr,
		submitScenario(), "submit.yaml", "no-such-app", "text")
	require.Error(t, err)

	var unknown *driver.UnknownEntryPointError
	assert.ErrorAs(t, err, &unknown)
}

func TestReplayScenario_AppendsHistory(t *testing.T) {
	fastReplayFlags(t)
	dbPath := t.TempDir() + "/history.db"
	t.Setenv(HistoryEnvVar, dbPath)

	app := submitApp()
	driver.Register("test-replay-history", app.Launch)
	defer driver.Unregister("test-replay-history")

	var stdout, stderr strings.Builder
	code, err := replayScenario(context.Background(), &stdout, &stderr,
		submitScenario(), "submit.yaml", "test-replay-history", "text")
	require.NoError(t, err)
	assert.Equal(t, exitPass, code)
	assert.Empty(t, stderr.String(), "history append should not warn")

	store, err := history.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "submit-flow", runs[0].ScenarioName)
	assert.Equal(t, "pass", runs[0].Status)
}
