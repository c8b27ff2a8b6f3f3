package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

type rodSession struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page
	closed    bool
}

func launchRod(ctx context.Context, opts *Options) (Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.DisableSandbox)

	if opts.BinaryPath != "" {
		l = l.Bin(opts.BinaryPath)
	}
	l.Set(flags.Flag("disable-dev-shm-usage"))
	if opts.UserAgent != "" {
		l.Set(flags.Flag("user-agent"), opts.UserAgent)
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", opts.ViewportWidth, opts.ViewportHeight))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, setupError(DriverRod, "launch browser", err)
	}

	s := &rodSession{launcher: l}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		s.Close()
		return nil, setupError(DriverRod, "connect", err)
	}

	s.incognito, err = s.browser.Incognito()
	if err != nil {
		s.Close()
		return nil, setupError(DriverRod, "create context", err)
	}

	s.page, err = s.incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, setupError(DriverRod, "open page", err)
	}

	if err := ctx.Err(); err != nil {
		s.Close()
		return nil, setupError(DriverRod, "launch", err)
	}

	return s, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	wait()

	return nil
}

func (s *rodSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	_, err := p.Element(selector)
	return err
}

func (s *rodSession) Content(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// Close releases page, incognito context, browser connection and the
// launched process in that order.
func (s *rodSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error

	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}

	if s.incognito != nil {
		if err := s.incognito.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}

	return errors.Join(errs...)
}
