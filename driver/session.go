package driver

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/log"
	"go.uber.org/zap"
)

// Service is a running local driver process.
type Service interface {
	Stop() error
}

// Session is one live browser session. It is owned by a single scenario
// run and must be released by it exactly once.
type Session struct {
	selenium.WebDriver

	Target Target
	Label  string
	Mode   Mode

	service    Service
	serviceLog io.Closer

	artifacts   *Artifacts
	waitTimeout time.Duration
	logger      *zap.Logger
	metrics     *Metrics

	releaseOnce sync.Once
	releaseErr  error
	released    atomic.Bool
}

// WaitTimeout is the default bound for explicit waits on this session.
func (s *Session) WaitTimeout() time.Duration {
	return s.waitTimeout
}

// Logger returns the session scoped logger.
func (s *Session) Logger() *zap.Logger {
	return s.logger
}

// Released reports whether Release has run.
func (s *Session) Released() bool {
	return s.released.Load()
}

// Release quits the browser, closing every window it owns, and stops the
// local driver service if there is one. Only the first call does any work;
// later calls return the first result.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		s.released.Store(true)
		s.releaseErr = s.teardown()
		s.metrics.released(s.Mode)
		s.logger.Info("session released")
	})
	return s.releaseErr
}

// teardown quits the browser, stops the driver service and closes its log.
// The first failure is returned; a session the grid already dropped is not
// a failure.
func (s *Session) teardown() error {
	var teardownErr error
	if err := s.WebDriver.Quit(); err != nil {
		if strings.Contains(err.Error(), "invalid session id") {
			s.logger.Warn("session was already gone on quit", zap.Error(err))
		} else {
			teardownErr = fmt.Errorf("quitting session: %w", err)
		}
	}

	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			s.logger.Warn("could not stop driver service", zap.Error(err))
			if teardownErr == nil {
				teardownErr = fmt.Errorf("stopping driver service: %w", err)
			}
		}
	}
	if s.serviceLog != nil {
		s.serviceLog.Close()
	}
	return teardownErr
}

// WaitFor polls cond until it holds or timeout expires. Expiry is reported
// as a *TimeoutError; an error returned by cond itself ends the wait and is
// returned unchanged.
func (s *Session) WaitFor(condition string, cond selenium.Condition, timeout time.Duration) error {
	if s.Released() {
		return ErrSessionReleased
	}
	var condErr error
	err := s.WebDriver.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		ok, err := cond(wd)
		if err != nil {
			condErr = err
		}
		return ok, err
	}, timeout)
	if err == nil {
		return nil
	}
	if condErr != nil && errors.Is(err, condErr) {
		return err
	}
	return &TimeoutError{Condition: condition, Timeout: timeout, Err: err}
}

// WaitForDOMReady blocks until document.readyState is "complete".
func (s *Session) WaitForDOMReady(timeout time.Duration) error {
	return s.WaitFor("document ready state", func(wd selenium.WebDriver) (bool, error) {
		state, err := wd.ExecuteScript("return document.readyState", nil)
		if err != nil {
			// Navigation in flight.
			return false, nil
		}
		return state == "complete", nil
	}, timeout)
}

// WaitForPresent waits until an element matching the locator is in the DOM.
func (s *Session) WaitForPresent(by, value string, timeout time.Duration) (selenium.WebElement, error) {
	var found selenium.WebElement
	err := s.WaitFor(fmt.Sprintf("presence of %s=%q", by, value), func(wd selenium.WebDriver) (bool, error) {
		elem, err := wd.FindElement(by, value)
		if err != nil || elem == nil {
			return false, nil
		}
		found = elem
		return true, nil
	}, timeout)
	return found, err
}

// WaitForClickable waits until an element matching the locator is displayed
// and enabled.
func (s *Session) WaitForClickable(by, value string, timeout time.Duration) (selenium.WebElement, error) {
	var found selenium.WebElement
	err := s.WaitFor(fmt.Sprintf("clickable %s=%q", by, value), func(wd selenium.WebDriver) (bool, error) {
		elem, err := wd.FindElement(by, value)
		if err != nil || elem == nil {
			return false, nil
		}
		if displayed, err := elem.IsDisplayed(); err != nil || !displayed {
			return false, nil
		}
		if enabled, err := elem.IsEnabled(); err != nil || !enabled {
			return false, nil
		}
		found = elem
		return true, nil
	}, timeout)
	return found, err
}

// WaitForWindowsAbove waits until the session has more than n windows.
func (s *Session) WaitForWindowsAbove(n int, timeout time.Duration) ([]string, error) {
	var handles []string
	err := s.WaitFor(fmt.Sprintf("more than %d windows", n), func(wd selenium.WebDriver) (bool, error) {
		hs, err := wd.WindowHandles()
		if err != nil {
			return false, nil
		}
		handles = hs
		return len(hs) > n, nil
	}, timeout)
	return handles, err
}

// Screenshot captures the current window into the artifact directory and
// returns the file path. Failures are logged and counted but never
// returned; an empty path means nothing was written.
func (s *Session) Screenshot(tag string) string {
	if s.Released() {
		s.logger.Warn("screenshot skipped, session released", zap.String("tag", tag))
		return ""
	}
	var path string
	png, err := s.WebDriver.Screenshot()
	if err == nil {
		path, err = s.artifacts.Save(tag, png)
	}
	s.metrics.screenshot(err)
	if err != nil {
		s.logger.Warn("failed to save screenshot", zap.String("tag", tag), zap.Error(err))
		return ""
	}
	s.logger.Debug("screenshot saved", zap.String("tag", tag), zap.String("path", path))
	return path
}

// DumpConsoleLogs logs the session ID and forwards the browser console
// entries collected so far. Drivers without a log endpoint are tolerated.
func (s *Session) DumpConsoleLogs() []log.Message {
	s.logger.Info("session", zap.String("session_id", s.SessionID()))

	msgs, err := s.WebDriver.Log(log.Browser)
	if err != nil {
		s.logger.Debug("browser console logs unavailable", zap.Error(err))
		return nil
	}
	for _, m := range msgs {
		fields := []zap.Field{
			zap.String("level", string(m.Level)),
			zap.String("message", m.Message),
			zap.Time("timestamp", m.Timestamp),
		}
		switch m.Level {
		case log.Severe:
			s.logger.Error("[BROWSER]", fields...)
		case log.Warning:
			s.logger.Warn("[BROWSER]", fields...)
		case log.Debug:
			s.logger.Debug("[BROWSER]", fields...)
		default:
			s.logger.Info("[BROWSER]", fields...)
		}
	}
	return msgs
}
