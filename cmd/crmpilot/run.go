package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/crmpilot/pkg/config"
	"github.com/entrhq/crmpilot/pkg/scenario"
	"github.com/entrhq/crmpilot/pkg/session"
)

type cmdRun struct {
	gs *globalState

	file       string
	engine     string
	baseURL    string
	headless   bool
	timeout    time.Duration
	install    bool
	outputDir  string
	verbosity  string
	sessionTag string
}

func getCmdRun(gs *globalState) *cobra.Command {
	c := &cmdRun{gs: gs}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario against the CRM",
		Long: `Run opens one browser session, navigates to the CRM home page and
executes the scenario's steps in order. The run stops at the first failed step.

Settings are resolved with this precedence:
  CLI flags > environment variables > config file > defaults`,
		Example: `  crmpilot run -f scenario.yaml --base-url https://crm.example.com/home/home.jsp
  crmpilot run -f scenario.yaml --engine chromedp --headless=false`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	flags := cmd.Flags()
	flags.StringVarP(&c.file, "file", "f", "", "scenario file (YAML)")
	flags.StringVar(&c.engine, "engine", "", "browser engine: playwright or chromedp")
	flags.StringVar(&c.baseURL, "base-url", "", "CRM home page URL")
	flags.BoolVar(&c.headless, "headless", true, "run the browser without a window")
	flags.DurationVar(&c.timeout, "timeout", 0, "explicit wait timeout (e.g. 10s)")
	flags.BoolVar(&c.install, "install", false, "download the Playwright driver and Chromium before launching")
	flags.StringVar(&c.outputDir, "output-dir", "", "write execution artifacts to this directory")
	flags.StringVar(&c.verbosity, "verbosity", "", "console verbosity: quiet, normal, verbose or debug")
	flags.StringVar(&c.sessionTag, "session", "", "session name (defaults to the scenario name)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (c *cmdRun) run(cmd *cobra.Command, _ []string) error {
	sc, err := scenario.Load(c.file)
	if err != nil {
		return err
	}
	if c.outputDir != "" {
		sc.Artifacts.Enabled = true
		sc.Artifacts.OutputDir = c.outputDir
	}
	if c.verbosity != "" {
		sc.Logging.Verbosity = c.verbosity
	}

	if err := config.Initialize(c.gs.configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := config.RunFlags{
		Engine:  c.engine,
		BaseURL: c.baseURL,
		Timeout: c.timeout,
	}
	if cmd.Flags().Changed("headless") {
		flags.Headless = &c.headless
	}
	settings, err := config.ResolveRun(flags)
	if err != nil {
		return err
	}

	launch, err := c.gs.launcherFor(settings, c.install)
	if err != nil {
		return err
	}

	console := scenario.NewWriterLogger(scenario.ParseLogLevel(sc.Logging.Verbosity), c.gs.stdout)
	exec, err := scenario.NewExecutor(sc, settings.Browser.BaseURL, console)
	if err != nil {
		return err
	}

	name := c.sessionTag
	if name == "" {
		name = sc.Name
	}
	console.Debugf("engine %s, headless %t, wait %s/%s",
		settings.Browser.Engine, settings.Browser.Headless, settings.Wait.Timeout, settings.Wait.PollInterval)

	return session.Run(cmd.Context(), name, launch, func(ctx context.Context, s *session.Session) error {
		_, err := exec.Run(ctx, s)
		return err
	}, session.WithPolicy(settings.Wait))
}
