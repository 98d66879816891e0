package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/crmpilot/pkg/wait"
)

func boolPtr(b bool) *bool { return &b }

func TestResolveRun(t *testing.T) {
	tests := []struct {
		name       string
		configured map[string]any
		env        map[string]string
		flags      RunFlags
		want       func(t *testing.T, got RunSettings)
		wantErr    string
	}{
		{
			name:    "base url is required",
			wantErr: "base URL is required",
		},
		{
			name:  "defaults with flag url",
			flags: RunFlags{BaseURL: "https://flag.example.com"},
			want: func(t *testing.T, got RunSettings) {
				assert.Equal(t, EnginePlaywright, got.Browser.Engine)
				assert.True(t, got.Browser.Headless)
				assert.Equal(t, "https://flag.example.com", got.Browser.BaseURL)
				assert.Equal(t, wait.DefaultPolicy(), got.Wait)
			},
		},
		{
			name:       "config file supplies values",
			configured: map[string]any{"base_url": "https://config.example.com", "engine": "chromedp"},
			want: func(t *testing.T, got RunSettings) {
				assert.Equal(t, "https://config.example.com", got.Browser.BaseURL)
				assert.Equal(t, EngineChromedp, got.Browser.Engine)
			},
		},
		{
			name:       "environment beats config file",
			configured: map[string]any{"base_url": "https://config.example.com", "engine": "chromedp"},
			env:        map[string]string{EnvBaseURL: "https://env.example.com", EnvEngine: "playwright"},
			want: func(t *testing.T, got RunSettings) {
				assert.Equal(t, "https://env.example.com", got.Browser.BaseURL)
				assert.Equal(t, EnginePlaywright, got.Browser.Engine)
			},
		},
		{
			name:       "flags beat environment",
			configured: map[string]any{"headless": true},
			env:        map[string]string{EnvBaseURL: "https://env.example.com", EnvEngine: "playwright"},
			flags: RunFlags{
				Engine:   "chromedp",
				BaseURL:  "https://flag.example.com",
				Headless: boolPtr(false),
				Timeout:  5 * time.Second,
			},
			want: func(t *testing.T, got RunSettings) {
				assert.Equal(t, "https://flag.example.com", got.Browser.BaseURL)
				assert.Equal(t, EngineChromedp, got.Browser.Engine)
				assert.False(t, got.Browser.Headless)
				assert.Equal(t, 5*time.Second, got.Wait.Timeout)
				assert.Equal(t, wait.DefaultPollInterval, got.Wait.PollInterval)
			},
		},
		{
			name:  "short timeout clamps poll interval",
			flags: RunFlags{BaseURL: "https://flag.example.com", Timeout: 200 * time.Millisecond},
			want: func(t *testing.T, got RunSettings) {
				assert.Equal(t, 200*time.Millisecond, got.Wait.PollInterval)
			},
		},
		{
			name:    "unknown engine",
			flags:   RunFlags{BaseURL: "https://flag.example.com", Engine: "netscape"},
			wantErr: "unknown engine",
		},
		{
			name:    "relative url",
			env:     map[string]string{EnvBaseURL: "crm.example.com"},
			wantErr: "absolute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobal(t)
			t.Setenv(EnvBaseURL, "")
			t.Setenv(EnvEngine, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.configured != nil {
				require.NoError(t, Initialize(filepath.Join(t.TempDir(), "config.json")))
				require.NoError(t, GetBrowser().SetData(tt.configured))
			}

			got, err := ResolveRun(tt.flags)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.want(t, got)
		})
	}
}
