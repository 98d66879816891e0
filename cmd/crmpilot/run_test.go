package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/crmpilot/pkg/config"
	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/driver/drivertest"
	"github.com/entrhq/crmpilot/pkg/logging"
	"github.com/entrhq/crmpilot/pkg/session"
)

const testScenario = `name: probe
logging:
  verbosity: verbose
steps:
  - name: contact listed
    kind: probe_link
    probe:
      link_text: Lovelace, Ada
      expect: true
`

const testConfig = `version: "1.0"
sections:
  wait:
    timeout: 200ms
    poll_interval: 10ms
  browser:
    engine: chromedp
    base_url: https://crm.test/home/home.jsp
`

// TestMain points the run log at one directory for the whole package; the
// logger resolves its directory once per process.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "crmpilot-logs")
	if err != nil {
		panic(err)
	}
	os.Setenv(logging.LogDirEnv, dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type harness struct {
	gs       *globalState
	stdout   *bytes.Buffer
	dir      string
	driver   *drivertest.Driver
	settings config.RunSettings
	install  bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvEngine, "")

	doc := drivertest.NewDocument().
		Add(driver.ID("Contact_Tab"), drivertest.NewElement("Contacts")).
		Add(driver.LinkText("Lovelace, Ada"), drivertest.NewElement("Lovelace, Ada"))

	h := &harness{
		stdout: &bytes.Buffer{},
		dir:    dir,
		driver: drivertest.New("W1", "about:blank", doc),
	}
	h.gs = &globalState{
		ctx:    context.Background(),
		stdout: h.stdout,
		stderr: &bytes.Buffer{},
		launcherFor: func(settings config.RunSettings, install bool) (session.Launcher, error) {
			h.settings = settings
			h.install = install
			return func(context.Context) (driver.Driver, error) { return h.driver, nil }, nil
		},
	}
	return h
}

func (h *harness) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (h *harness) execute(args ...string) error {
	root := newRootCommand(h.gs)
	root.SetArgs(args)
	return root.Execute()
}

func TestRun_ResolvesSettingsAndRunsScenario(t *testing.T) {
	h := newHarness(t)
	scenarioPath := h.write(t, "scenario.yaml", testScenario)
	configPath := h.write(t, "config.yaml", testConfig)

	err := h.execute("run", "-f", scenarioPath, "--config", configPath, "--headless=false")
	require.NoError(t, err)

	assert.Equal(t, config.EngineChromedp, h.settings.Browser.Engine)
	assert.False(t, h.settings.Browser.Headless)
	assert.Equal(t, "https://crm.test/home/home.jsp", h.settings.Browser.BaseURL)
	assert.Equal(t, "200ms", h.settings.Wait.Timeout.String())
	assert.False(t, h.install)

	assert.Equal(t, []string{"https://crm.test/home/home.jsp"}, h.driver.Visited)
	assert.Equal(t, 1, h.driver.QuitCount())
	assert.Contains(t, h.stdout.String(), "1 passed")
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	h := newHarness(t)
	scenarioPath := h.write(t, "scenario.yaml", testScenario)
	configPath := h.write(t, "config.yaml", testConfig)

	err := h.execute("run", "-f", scenarioPath, "--config", configPath,
		"--engine", "playwright", "--base-url", "https://other.test/home", "--timeout", "150ms", "--install")
	require.NoError(t, err)

	assert.Equal(t, config.EnginePlaywright, h.settings.Browser.Engine)
	assert.True(t, h.settings.Browser.Headless)
	assert.Equal(t, "https://other.test/home", h.settings.Browser.BaseURL)
	assert.Equal(t, "150ms", h.settings.Wait.Timeout.String())
	assert.True(t, h.install)
	assert.Equal(t, []string{"https://other.test/home"}, h.driver.Visited)
}

func TestRun_FailedStepReturnsError(t *testing.T) {
	h := newHarness(t)
	scenarioPath := h.write(t, "scenario.yaml", `steps:
  - kind: probe_link
    probe:
      link_text: Lovelace, Ada
      expect: false
`)
	configPath := h.write(t, "config.yaml", testConfig)
	outDir := filepath.Join(h.dir, "artifacts")

	err := h.execute("run", "-f", scenarioPath, "--config", configPath, "--output-dir", outDir, "--verbosity", "quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (probe_link) failed")
	assert.FileExists(t, filepath.Join(outDir, "execution.json"))
	assert.Equal(t, 1, h.driver.QuitCount())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(h *harness) []string
		wantErr string
	}{
		{
			name:    "missing file flag",
			args:    func(*harness) []string { return []string{"run"} },
			wantErr: `required flag(s) "file" not set`,
		},
		{
			name: "invalid scenario",
			args: func(h *harness) []string {
				return []string{"run", "-f", h.write(t, "bad.yaml", "steps: []\n")}
			},
			wantErr: "no steps",
		},
		{
			name: "missing base url",
			args: func(h *harness) []string {
				return []string{"run", "-f", h.write(t, "s.yaml", testScenario), "--config", filepath.Join(h.dir, "none.json")}
			},
			wantErr: "base URL is required",
		},
		{
			name: "unknown engine",
			args: func(h *harness) []string {
				return []string{"run", "-f", h.write(t, "s.yaml", testScenario),
					"--config", h.write(t, "c.yaml", testConfig), "--engine", "webkit"}
			},
			wantErr: `unknown engine "webkit"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.execute(tt.args(h)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, 0, h.driver.QuitCount())
		})
	}
}

func TestRun_LaunchFailure(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("no chromium")
	h.gs.launcherFor = func(config.RunSettings, bool) (session.Launcher, error) {
		return func(context.Context) (driver.Driver, error) { return nil, boom }, nil
	}

	err := h.execute("run", "-f", h.write(t, "s.yaml", testScenario), "--config", h.write(t, "c.yaml", testConfig))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "launch browser")
}

func TestLauncherFor(t *testing.T) {
	pw := config.RunSettings{Browser: config.BrowserSettings{Engine: config.EnginePlaywright}}
	launch, err := launcherFor(pw, true)
	require.NoError(t, err)
	assert.NotNil(t, launch)

	cdp := config.RunSettings{Browser: config.BrowserSettings{Engine: config.EngineChromedp}}
	launch, err = launcherFor(cdp, false)
	require.NoError(t, err)
	assert.NotNil(t, launch)

	_, err = launcherFor(cdp, true)
	assert.ErrorContains(t, err, "--install is only supported")

	_, err = launcherFor(config.RunSettings{Browser: config.BrowserSettings{Engine: "webkit"}}, false)
	assert.ErrorContains(t, err, "unknown engine")
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.execute("version"))
	assert.Equal(t, "crmpilot v"+version+"\n", h.stdout.String())
}
