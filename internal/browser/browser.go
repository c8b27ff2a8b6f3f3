package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Session is one live browser page. Implementations are not safe for
// concurrent use; a run drives its session from a single goroutine.
type Session interface {
	// Navigate loads url and returns once the DOM content has loaded.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitFor blocks until selector matches a node or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Content returns the rendered markup of the current page.
	Content(ctx context.Context) (string, error)
	// Close tears the session down. Calling it more than once is a no-op.
	Close() error
}

type Driver string

const (
	DriverPlaywright Driver = "playwright"
	DriverRod        Driver = "rod"
)

type Options struct {
	Driver         Driver
	Headless       bool
	DisableSandbox bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	BinaryPath     string
}

func DefaultOptions() *Options {
	return &Options{
		Driver:         DriverPlaywright,
		Headless:       true,
		DisableSandbox: true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
}

// launchArgs are the chromium flags shared by every driver.
func launchArgs(opts *Options) []string {
	args := []string{"--disable-dev-shm-usage"}
	if opts.DisableSandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	return args
}

// Launcher starts new sessions.
type Launcher interface {
	Launch(ctx context.Context, opts *Options) (Session, error)
}

type LauncherFunc func(ctx context.Context, opts *Options) (Session, error)

func (f LauncherFunc) Launch(ctx context.Context, opts *Options) (Session, error) {
	return f(ctx, opts)
}

// LauncherFor returns the launcher backing the named driver.
func LauncherFor(driver Driver) (Launcher, error) {
	switch driver {
	case DriverPlaywright, "":
		return LauncherFunc(launchPlaywright), nil
	case DriverRod:
		return LauncherFunc(launchRod), nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", driver)
	}
}

// SessionSetupError means no usable session could be created. It is the only
// failure that aborts a run.
type SessionSetupError struct {
	Driver Driver
	Stage  string
	Err    error
}

func (e *SessionSetupError) Error() string {
	return fmt.Sprintf("browser session setup failed (%s, %s): %v", e.Driver, e.Stage, e.Err)
}

func (e *SessionSetupError) Unwrap() error {
	return e.Err
}

func setupError(driver Driver, stage string, err error) error {
	return &SessionSetupError{Driver: driver, Stage: stage, Err: err}
}

// Acquire launches a session. Any launcher failure is reported as a
// *SessionSetupError.
func Acquire(ctx context.Context, launcher Launcher, opts *Options) (Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if err := ctx.Err(); err != nil {
		return nil, setupError(opts.Driver, "launch", err)
	}

	session, err := launcher.Launch(ctx, opts)
	if err != nil {
		var setupErr *SessionSetupError
		if errors.As(err, &setupErr) {
			return nil, err
		}
		return nil, setupError(opts.Driver, "launch", err)
	}
	if session == nil {
		return nil, setupError(opts.Driver, "launch", errors.New("launcher returned no session"))
	}

	return session, nil
}

// WithSession acquires a session, runs fn with it and releases it exactly
// once, whether fn returns normally, returns an error or panics. Release
// failures are logged and never replace fn's result.
func WithSession(ctx context.Context, launcher Launcher, opts *Options, logger *slog.Logger, fn func(Session) error) error {
	session, err := Acquire(ctx, launcher, opts)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("browser session teardown failed", "error", cerr)
		} else {
			logger.Debug("browser session released")
		}
	}()

	logger.Debug("browser session acquired")
	return fn(session)
}
