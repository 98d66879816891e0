// Package main provides the crmpilot command, which drives the CRM's web UI
// through a YAML scenario of page-object steps.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0" // Version of crmpilot

func main() {
	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	gs := newGlobalState(ctx)
	if err := newRootCommand(gs).Execute(); err != nil {
		fmt.Fprintf(gs.stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
