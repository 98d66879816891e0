package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/crmpilot/pkg/config"
	"github.com/entrhq/crmpilot/pkg/session"
)

// globalState carries what every command needs, so tests can swap the
// browser launcher and the output streams.
type globalState struct {
	ctx            context.Context
	stdout, stderr io.Writer

	// configPath is set by --config; empty means the default location
	configPath string

	launcherFor func(settings config.RunSettings, install bool) (session.Launcher, error)
}

func newGlobalState(ctx context.Context) *globalState {
	return &globalState{
		ctx:         ctx,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		launcherFor: launcherFor,
	}
}

func newRootCommand(gs *globalState) *cobra.Command {
	root := &cobra.Command{
		Use:           "crmpilot",
		Short:         "Drive the CRM web UI from YAML scenarios",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(gs.stdout)
	root.SetErr(gs.stderr)
	root.SetContext(gs.ctx)

	root.PersistentFlags().StringVar(&gs.configPath, "config", "",
		"config file (.json, .yaml or .yml; default ~/.crmpilot/config.json)")

	root.AddCommand(
		getCmdRun(gs),
		getCmdConfig(gs),
		getCmdVersion(gs),
	)
	return root
}
