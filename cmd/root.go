// Package cmd implements the gui-replay Cobra command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version, Commit, and Date are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Exit codes. A sandboxed command's own code is propagated unchanged.
const (
	exitPass     = 0
	exitFail     = 1
	exitInfra    = 2
	exitScenario = 3
)

var rootCmd = &cobra.Command{
	Use:   "gui-replay",
	Short: "Record and replay GUI interaction scenarios",
	Long: `gui-replay - scenario-driven GUI regression testing

Record real user interactions against an application's widget tree into a
YAML scenario, then replay them for deterministic regression testing.
Replay resolves each recorded widget address against the live tree and
reports divergence instead of guessing.

Examples:
  # Record interactions into a scenario
  gui-replay record submit.yaml demoapp

  # Replay on the desktop display
  gui-replay replay submit.yaml demoapp

  # Replay headless with video capture
  gui-replay replay submit.yaml demoapp --video run.mp4

  # Inspect a scenario
  gui-replay explain submit.yaml

Exit codes: 0 pass, 1 replay failure, 2 infrastructure failure,
3 scenario format error.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits
	rootCmd.SetVersionTemplate(fmt.Sprintf("gui-replay version {{.Version}} (commit: %s, built: %s)\n", Commit, Date))
}
