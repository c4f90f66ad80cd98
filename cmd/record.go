package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gui-replay/gui-replay/internal/driver"
	"github.com/gui-replay/gui-replay/internal/recorder"
	"github.com/gui-replay/gui-replay/internal/scenario"
)

var (
	recordNameFlag    string
	recordIncludeFlag string
	recordExcludeFlag string
)

var recordCmd = &cobra.Command{
	Use:   "record <scenario.yaml> <entry-point>",
	Short: "Record user interactions into a scenario file",
	Long: `Launch the given entry point, capture user interactions against its
widget tree, and write them to a scenario file when the application exits
(or on Ctrl-C).

Each captured event is stored with the widget's address in the tree, its
time offset from the start of the recording, and its payload. Events whose
widget has no resolvable address are dropped with a warning.

Examples:
  gui-replay record submit.yaml demoapp
  gui-replay record submit.yaml demoapp --name login-flow
  gui-replay record submit.yaml demoapp --events-include pointer-press,key-press`,
	Args: cobra.ExactArgs(2),
	RunE: runRecord,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	recordCmd.Flags().StringVar(&recordNameFlag, "name", "",
		"Scenario name (default: recorded-<timestamp>)")
	recordCmd.Flags().StringVar(&recordIncludeFlag, "events-include", "",
		fmt.Sprintf("Comma-separated event kinds to record (default all: %s)", kindList()))
	recordCmd.Flags().StringVar(&recordExcludeFlag, "events-exclude", "",
		"Comma-separated event kinds to skip (wins over --events-include)")
	rootCmd.AddCommand(recordCmd)
}

func kindList() string {
	out := ""
	for i, k := range scenario.Kinds() {
		if i > 0 {
			out += ","
		}
		out += string(k)
	}
	return out
}

func runRecord(cmd *cobra.Command, args []string) error {
	scenarioPath, entryPoint := args[0], args[1]

	include, err := recorder.ParseKinds(recordIncludeFlag)
	if err != nil {
		return fmt.Errorf("--events-include: %w", err)
	}
	exclude, err := recorder.ParseKinds(recordExcludeFlag)
	if err != nil {
		return fmt.Errorf("--events-exclude: %w", err)
	}

	launch, err := driver.Resolve(entryPoint)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := launch(ctx)
	if err != nil {
		return fmt.Errorf("failed to launch %q: %w", entryPoint, err)
	}

	rec, err := recorder.Start(app.Root(), app.Capture(), recorder.Options{
		Name:       recordNameFlag,
		EntryPoint: entryPoint,
		Include:    include,
		Exclude:    exclude,
	})
	if err != nil {
		app.Terminate()
		return err
	}

	// Record until the application exits or the user interrupts.
	appDone := make(chan error, 1)
	go func() { appDone <- app.Wait() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-appDone:
	case <-sigCh:
		app.Terminate()
		<-appDone
	case <-ctx.Done():
		app.Terminate()
		<-appDone
	}

	scn, err := rec.Stop()
	if err != nil {
		return fmt.Errorf("failed to finish recording: %w", err)
	}
	if err := scenario.SaveFile(scenarioPath, scn); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "gui-replay: recorded %d event(s) to %s", len(scn.Events), scenarioPath)
	if dropped := rec.Dropped(); dropped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d dropped)", dropped)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
