package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gui-replay/gui-replay/internal/scenario"
)

var explainCmd = &cobra.Command{
	Use:   "explain <scenario.yaml>",
	Short: "Print a human-readable description of a scenario",
	Long: `Load a scenario file and print its metadata and every event in plain
language: when it happens, what kind of interaction it is, which widget
it targets, and its payload.

Examples:
  gui-replay explain submit.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	scn, err := scenario.LoadFile(args[0])
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "gui-replay: %v\n", err)
		os.Exit(exitScenario)
	}
	writeExplanation(cmd.OutOrStdout(), scn)
	return nil
}

func writeExplanation(w io.Writer, scn *scenario.Scenario) {
	fmt.Fprintf(w, "Scenario:    %s\n", scn.Meta.Name)
	fmt.Fprintf(w, "Entry point: %s\n", scn.Meta.EntryPoint)
	fmt.Fprintf(w, "Recorded:    %s\n", scn.Meta.RecordedAt.Format(time.RFC3339))
	if scn.Meta.Resolution != "" {
		fmt.Fprintf(w, "Resolution:  %s\n", scn.Meta.Resolution)
	}
	fmt.Fprintf(w, "Events:      %d over %s\n\n", len(scn.Events), scn.Duration())

	for i := range scn.Events {
		ev := &scn.Events[i]
		fmt.Fprintf(w, "%4d  +%-8s %s\n", i, fmt.Sprintf("%dms", ev.OffsetMS), describeEvent(ev))
	}
}

// describeEvent renders one event as a sentence fragment.
func describeEvent(ev *scenario.Event) string {
	var sb strings.Builder
	sb.WriteString(string(ev.Kind))

	switch ev.Kind {
	case scenario.PointerPress, scenario.PointerRelease:
		if ev.Button != "" {
			fmt.Fprintf(&sb, " (%s button)", ev.Button)
		}
	case scenario.KeyPress, scenario.KeyRelease:
		fmt.Fprintf(&sb, " %q", ev.Key)
	case scenario.TextInput:
		fmt.Fprintf(&sb, " %q", ev.Text)
	}
	if len(ev.Modifiers) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(ev.Modifiers, "+"))
	}

	fmt.Fprintf(&sb, " on %s", ev.Target)
	if ev.Pos != nil {
		fmt.Fprintf(&sb, " at (%d, %d)", ev.Pos.X, ev.Pos.Y)
	}
	return sb.String()
}
