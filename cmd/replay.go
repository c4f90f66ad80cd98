package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gui-replay/gui-replay/internal/driver"
	"github.com/gui-replay/gui-replay/internal/history"
	"github.com/gui-replay/gui-replay/internal/replay"
	"github.com/gui-replay/gui-replay/internal/report"
	"github.com/gui-replay/gui-replay/internal/sandbox"
	"github.com/gui-replay/gui-replay/internal/scenario"
)

// HistoryEnvVar names an optional SQLite path; when set, every replay
// run is appended to it.
const HistoryEnvVar = "GUI_REPLAY_HISTORY"

var (
	replayIsolatedFlag   bool
	replayResolutionFlag string
	replayVideoFlag      string
	replayAbortFlag      bool
	replayMinWaitFlag    time.Duration
	replayMaxWaitFlag    time.Duration
	replayDryRunFlag     bool
	replayFormatFlag     string
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml> <entry-point>",
	Short: "Replay a recorded scenario against an application",
	Long: `Launch the given entry point and replay the scenario's events against
its widget tree. Each event's recorded address is resolved against the
live tree; a widget that moved, was renamed, or disappeared is reported
as a failure instead of silently clicking elsewhere.

With --isolated the replay runs inside a private virtual display (Xvfb)
so the desktop stays untouched; --video additionally captures the run to
a file and implies --isolated.

Formats:
  text   Human-readable summary (default)
  json   Structured JSON to stdout
  junit  JUnit XML to stdout (CI integration)

Examples:
  gui-replay replay submit.yaml demoapp
  gui-replay replay submit.yaml demoapp --isolated --resolution 1280x720
  gui-replay replay submit.yaml demoapp --video run.mp4
  gui-replay replay submit.yaml demoapp --dry-run
  gui-replay replay submit.yaml demoapp --format junit > report.xml`,
	Args: cobra.ExactArgs(2),
	RunE: runReplay,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	replayCmd.Flags().BoolVar(&replayIsolatedFlag, "isolated", false,
		"Run inside a private virtual display (Xvfb)")
	replayCmd.Flags().StringVar(&replayResolutionFlag, "resolution", "",
		"Virtual display geometry as WxH (implies nothing without --isolated)")
	replayCmd.Flags().StringVar(&replayVideoFlag, "video", "",
		"Capture the virtual display to FILE (implies --isolated)")
	replayCmd.Flags().BoolVar(&replayAbortFlag, "abort-on-failure", false,
		"Stop at the first resolution failure")
	replayCmd.Flags().DurationVar(&replayMinWaitFlag, "min-wait", replay.DefaultMinWait,
		"Minimum wait between events")
	replayCmd.Flags().DurationVar(&replayMaxWaitFlag, "max-wait", replay.DefaultMaxWait,
		"Maximum wait between events")
	replayCmd.Flags().BoolVar(&replayDryRunFlag, "dry-run", false,
		"Resolve every event against the live tree without injecting")
	replayCmd.Flags().StringVar(&replayFormatFlag, "format", "text",
		"Output format: text, json, junit")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	scenarioPath, entryPoint := args[0], args[1]

	format := strings.ToLower(replayFormatFlag)
	switch format {
	case "text", "json", "junit":
	default:
		return fmt.Errorf("invalid format %q: valid values are text, json, junit", replayFormatFlag)
	}

	scn, err := scenario.LoadFile(scenarioPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "gui-replay: %v\n", err)
		os.Exit(exitScenario)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// --video implies isolation; an already-sandboxed invocation (the
	// re-exec'd child) must not recurse into another sandbox.
	isolated := replayIsolatedFlag || replayVideoFlag != ""
	if isolated && os.Getenv("GUI_REPLAY_SESSION") == "" {
		code, err := runIsolated(ctx, scenarioPath, entryPoint, scn)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "gui-replay: %v\n", err)
			os.Exit(exitInfra)
		}
		os.Exit(code)
	}

	code, err := replayScenario(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), scn, scenarioPath, entryPoint, format)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "gui-replay: %v\n", err)
		code = exitInfra
	}
	reportExitCode(code)
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// runIsolated re-executes the current binary under the sandbox
// supervisor with the isolation flags stripped, and propagates the
// child's exit code.
func runIsolated(ctx context.Context, scenarioPath, entryPoint string, scn *scenario.Scenario) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("cannot locate own executable: %w", err)
	}

	argv := []string{exe, "replay", scenarioPath, entryPoint,
		"--format", replayFormatFlag,
		"--min-wait", replayMinWaitFlag.String(),
		"--max-wait", replayMaxWaitFlag.String(),
	}
	if replayAbortFlag {
		argv = append(argv, "--abort-on-failure")
	}
	if replayDryRunFlag {
		argv = append(argv, "--dry-run")
	}

	resolution := replayResolutionFlag
	if resolution == "" {
		resolution = scn.Meta.Resolution
	}

	return sandbox.Run(ctx, argv, sandbox.Options{
		Resolution: resolution,
		VideoPath:  replayVideoFlag,
	})
}

// replayScenario runs the scenario against a freshly launched app and
// writes the chosen report. Returns the process exit code.
func replayScenario(ctx context.Context, stdout, stderr io.Writer, scn *scenario.Scenario, scenarioPath, entryPoint, format string) (int, error) {
	launch, err := driver.Resolve(entryPoint)
	if err != nil {
		return 0, err
	}
	app, err := launch(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to launch %q: %w", entryPoint, err)
	}
	defer app.Terminate()

	if replayDryRunFlag {
		dry := replay.BuildDryRunReport(scn, app.Root())
		if err := replay.FormatDryRunReport(dry, stdout); err != nil {
			return 0, err
		}
		if dry.Unresolved > 0 {
			return exitFail, nil
		}
		return exitPass, nil
	}

	engine, err := replay.NewEngine(app.Injector(), replay.Options{
		AbortOnFailure: replayAbortFlag,
		MinWait:        replayMinWaitFlag,
		MaxWait:        replayMaxWaitFlag,
	})
	if err != nil {
		return 0, err
	}

	started := time.Now().UTC()
	result, err := engine.Run(ctx, scn, app.Root())
	if err != nil {
		return 0, err
	}

	r := report.Build(scn, result)
	switch format {
	case "json":
		err = report.FormatJSON(stdout, r)
	case "junit":
		err = report.FormatJUnit(stdout, r, scenarioPath, started)
	default:
		err = report.FormatText(stdout, r)
	}
	if err != nil {
		return 0, err
	}

	appendHistory(ctx, stderr, scn, scenarioPath, entryPoint, r, started)

	if !r.Passed() {
		return exitFail, nil
	}
	return exitPass, nil
}

// appendHistory records the run when a history database is configured.
// History problems are warnings, never replay failures.
func appendHistory(ctx context.Context, stderr io.Writer, scn *scenario.Scenario, scenarioPath, entryPoint string, r *report.Report, started time.Time) {
	dbPath := os.Getenv(HistoryEnvVar)
	if dbPath == "" {
		return
	}
	store, err := history.Open(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "gui-replay: warning: cannot open history db: %v\n", err)
		return
	}
	defer store.Close()

	_, err = store.Append(ctx, history.Run{
		ScenarioName: scn.Meta.Name,
		ScenarioPath: scenarioPath,
		EntryPoint:   entryPoint,
		Status:       r.Status,
		Failures:     r.Failures,
		DurationMS:   r.DurationMS,
		VideoPath:    replayVideoFlag,
		StartedAt:    started,
	})
	if err != nil {
		fmt.Fprintf(stderr, "gui-replay: warning: cannot record history: %v\n", err)
	}
}

// reportExitCode hands the replay's exit code to a supervising sandbox
// through the exchange file, when one is configured.
func reportExitCode(code int) {
	path := os.Getenv(sandbox.ExitCodeEnvVar)
	if path == "" {
		return
	}
	if err := sandbox.ExchangeAt(path).Put(code); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "gui-replay: warning: cannot report exit code: %v\n", err)
	}
}
