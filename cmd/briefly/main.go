// Command briefly is the entry point for the Briefly report pipeline.
// It provides a CLI (via Cobra) for one-shot report generation and
// ingestion, plus an HTTP server with a daily scheduler for unattended
// operation.
package main

import (
	"fmt"
	"os"

	"github.com/brieflyhq/briefly/cmd/briefly/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
