// Package main is the entry point for gui-replay.
package main

import (
	"fmt"
	"os"

	"github.com/gui-replay/gui-replay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
