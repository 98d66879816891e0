package main

import (
	"context"
	"fmt"

	"github.com/entrhq/crmpilot/pkg/config"
	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/driver/cdpdriver"
	"github.com/entrhq/crmpilot/pkg/driver/pwdriver"
	"github.com/entrhq/crmpilot/pkg/session"
)

// launcherFor picks the browser engine named by the resolved settings.
func launcherFor(settings config.RunSettings, install bool) (session.Launcher, error) {
	b := settings.Browser
	switch b.Engine {
	case config.EnginePlaywright:
		opts := pwdriver.Options{
			Headless:       b.Headless,
			ViewportWidth:  b.ViewportWidth,
			ViewportHeight: b.ViewportHeight,
			SlowMo:         b.SlowMo,
			Install:        install,
		}
		return func(ctx context.Context) (driver.Driver, error) {
			return pwdriver.Launch(ctx, opts)
		}, nil

	case config.EngineChromedp:
		if install {
			return nil, fmt.Errorf("--install is only supported with the %s engine", config.EnginePlaywright)
		}
		opts := cdpdriver.Options{
			Headless:       b.Headless,
			ViewportWidth:  b.ViewportWidth,
			ViewportHeight: b.ViewportHeight,
		}
		return func(ctx context.Context) (driver.Driver, error) {
			return cdpdriver.Launch(ctx, opts)
		}, nil
	}
	return nil, config.ValidateEngine(b.Engine)
}
