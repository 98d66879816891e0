package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func getCmdVersion(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(gs.stdout, "crmpilot v%s\n", version)
			return err
		},
	}
}
