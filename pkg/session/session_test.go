package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/driver/drivertest"
	"github.com/entrhq/crmpilot/pkg/logging"
	"github.com/entrhq/crmpilot/pkg/wait"
	"github.com/entrhq/crmpilot/pkg/window"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockDriver records Quit calls; the other methods are not exercised here.
type mockDriver struct {
	mock.Mock
	driver.Driver
}

func (m *mockDriver) Quit() error {
	args := m.Called()
	return args.Error(0)
}

func quiet() Option {
	return WithLogger(logging.Discard())
}

func TestNewDefaults(t *testing.T) {
	d := drivertest.New("W1", "https://crm.test/", drivertest.NewDocument())
	s := New("contacts", d, quiet())

	assert.Equal(t, "contacts", s.Name())
	assert.Equal(t, wait.DefaultPolicy(), s.Waiter().Policy())
	assert.Equal(t, window.Uninitialized, s.Windows().State())

	got, err := s.Driver()
	require.NoError(t, err)
	assert.Same(t, d, got)
}

func TestWithPolicy(t *testing.T) {
	p := wait.Policy{Timeout: time.Second, PollInterval: 10 * time.Millisecond}
	s := New("x", drivertest.New("W1", "", drivertest.NewDocument()), WithPolicy(p), quiet())
	assert.Equal(t, p, s.Waiter().Policy())
}

func TestCloseQuitsOnce(t *testing.T) {
	d := new(mockDriver)
	d.On("Quit").Return(nil).Once()

	s := New("x", d, quiet())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	d.AssertNumberOfCalls(t, "Quit", 1)
	assert.True(t, s.Closed())

	_, err := s.Driver()
	assert.ErrorIs(t, err, ErrSessionNotInitialized)
}

func TestCloseReportsQuitFailure(t *testing.T) {
	boom := errors.New("browser gone")
	d := new(mockDriver)
	d.On("Quit").Return(boom).Once()

	s := New("x", d, quiet())
	err := s.Close()
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, s.Close())
	d.AssertExpectations(t)
}

func TestZeroSessionIsNotInitialized(t *testing.T) {
	var s *Session
	_, err := s.Driver()
	assert.ErrorIs(t, err, ErrSessionNotInitialized)

	_, err = (&Session{}).Driver()
	assert.ErrorIs(t, err, ErrSessionNotInitialized)
}

func TestWindowStackFollowsSessionLifetime(t *testing.T) {
	d := drivertest.New("W1", "https://crm.test/", drivertest.NewDocument())
	s := New("x", d, quiet())
	ctx := context.Background()

	_, err := s.Windows().Initialize(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Windows().Initialize(ctx)
	assert.ErrorIs(t, err, ErrSessionNotInitialized)
}

func launcherFor(d driver.Driver) Launcher {
	return func(context.Context) (driver.Driver, error) { return d, nil }
}

func TestRunClosesOnSuccess(t *testing.T) {
	d := drivertest.New("W1", "https://crm.test/", drivertest.NewDocument())

	var seen *Session
	err := Run(context.Background(), "run", launcherFor(d), func(ctx context.Context, s *Session) error {
		seen = s
		_, err := s.Windows().Initialize(ctx)
		return err
	}, quiet())

	require.NoError(t, err)
	assert.True(t, seen.Closed())
	assert.Equal(t, 1, d.QuitCount())
}

func TestRunClosesOnError(t *testing.T) {
	d := drivertest.New("W1", "", drivertest.NewDocument())
	failed := errors.New("step failed")

	err := Run(context.Background(), "run", launcherFor(d), func(context.Context, *Session) error {
		return failed
	}, quiet())

	assert.ErrorIs(t, err, failed)
	assert.Equal(t, 1, d.QuitCount())
}

func TestRunClosesOnPanic(t *testing.T) {
	d := drivertest.New("W1", "", drivertest.NewDocument())

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = Run(context.Background(), "run", launcherFor(d), func(context.Context, *Session) error {
			panic("kaboom")
		}, quiet())
	})
	assert.Equal(t, 1, d.QuitCount())
}

func TestRunReportsLaunchFailure(t *testing.T) {
	noBrowser := errors.New("no chromium")
	called := false

	err := Run(context.Background(), "run", func(context.Context) (driver.Driver, error) {
		return nil, noBrowser
	}, func(context.Context, *Session) error {
		called = true
		return nil
	}, quiet())

	assert.ErrorIs(t, err, noBrowser)
	assert.False(t, called)
}

func TestRunSurfacesQuitFailure(t *testing.T) {
	boom := errors.New("quit failed")
	d := new(mockDriver)
	d.On("Quit").Return(boom).Once()

	err := Run(context.Background(), "run", launcherFor(d), func(context.Context, *Session) error {
		return nil
	}, quiet())
	assert.ErrorIs(t, err, boom)
}

func TestSessionsAreIsolated(t *testing.T) {
	d1 := drivertest.New("A1", "https://crm.test/a", drivertest.NewDocument())
	d2 := drivertest.New("B1", "https://crm.test/b", drivertest.NewDocument())
	d2.OpenWindow("B2", "https://crm.test/b/popup", drivertest.NewDocument())

	s1 := New("a", d1, quiet())
	s2 := New("b", d2, quiet())
	ctx := context.Background()

	a, err := s1.Windows().Initialize(ctx)
	require.NoError(t, err)
	b, err := s2.Windows().Initialize(ctx)
	require.NoError(t, err)

	assert.Equal(t, "A1", a.Window)
	assert.Equal(t, "B2", b.Window)

	require.NoError(t, s1.Close())
	_, err = s2.Driver()
	assert.NoError(t, err)
	require.NoError(t, s2.Close())
}
