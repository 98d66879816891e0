package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/crmpilot/pkg/config"
)

func getCmdConfig(gs *globalState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persistent settings",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Initialize(gs.configPath); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print every section as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return showConfig(gs)
			},
		},
		&cobra.Command{
			Use:     "set <section.key> <value>",
			Short:   "Change one setting and save the file",
			Example: "  crmpilot config set wait.timeout 15s\n  crmpilot config set browser.headless false",
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfig(gs, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore defaults and save the file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m := config.Global()
				m.ResetAll()
				if err := m.SaveAll(); err != nil {
					return err
				}
				_, err := fmt.Fprintln(gs.stdout, "Configuration reset to defaults.")
				return err
			},
		},
	)
	return cmd
}

func showConfig(gs *globalState) error {
	out := make(map[string]map[string]any)
	for _, section := range config.Global().GetSections() {
		out[section.ID()] = section.Data()
	}
	enc := yaml.NewEncoder(gs.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

// setConfig decodes value as a YAML scalar, so "false" becomes a bool and
// "1280" a number, and hands it to the section.
func setConfig(gs *globalState, key, value string) error {
	sectionID, field, ok := strings.Cut(key, ".")
	if !ok || field == "" {
		return fmt.Errorf("key must look like section.field, got %q", key)
	}
	m := config.Global()
	section, ok := m.GetSection(sectionID)
	if !ok {
		return fmt.Errorf("unknown section %q", sectionID)
	}
	if _, known := section.Data()[field]; !known {
		return fmt.Errorf("unknown setting %s.%s", sectionID, field)
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("invalid value %q: %w", value, err)
	}
	if err := section.SetData(map[string]any{field: parsed}); err != nil {
		return err
	}
	if err := m.SaveAll(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(gs.stdout, "%s = %v\n", key, section.Data()[field])
	return err
}
