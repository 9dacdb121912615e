package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"github.com/tebeka/selenium"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

// Dialer opens a WebDriver session. selenium.NewRemote satisfies it.
type Dialer func(caps selenium.Capabilities, urlPrefix string) (selenium.WebDriver, error)

// ServiceStarter launches the local driver binary for an engine.
type ServiceStarter func(e Engine, path string, port int, output io.Writer) (Service, error)

// Redactor scrubs secrets from a JSON document before it is logged.
type Redactor interface {
	Redact(content string) (string, error)
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger. Sessions log through a child of it.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provisioner) {
		p.logger = l
	}
}

// WithMetrics records lifecycle counters into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Provisioner) {
		p.metrics = m
	}
}

// WithRedactor scrubs capability payloads before they are logged. Without
// one, payloads are not logged at all.
func WithRedactor(r Redactor) Option {
	return func(p *Provisioner) {
		p.redactor = r
	}
}

// WithDialer replaces selenium.NewRemote.
func WithDialer(d Dialer) Option {
	return func(p *Provisioner) {
		p.dial = d
	}
}

// WithServiceStarter replaces the local driver launcher.
func WithServiceStarter(s ServiceStarter) Option {
	return func(p *Provisioner) {
		p.startService = s
	}
}

// Provisioner opens browser sessions, on a grid when one is configured and
// on this machine otherwise. It holds no sessions and is safe for
// concurrent use.
type Provisioner struct {
	cfg          Config
	logger       *zap.Logger
	metrics      *Metrics
	redactor     Redactor
	artifacts    *Artifacts
	dial         Dialer
	startService ServiceStarter
}

// NewProvisioner returns a Provisioner for cfg.
func NewProvisioner(cfg Config, opts ...Option) *Provisioner {
	p := &Provisioner{
		cfg:          cfg.withDefaults(),
		logger:       zap.NewNop(),
		dial:         selenium.NewRemote,
		startService: startService,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.artifacts = NewArtifacts(p.cfg.ScreenshotDir)
	return p
}

// Config returns the effective configuration.
func (p *Provisioner) Config() Config {
	return p.cfg
}

// Provision opens a session for target, labelled for reporting. There is no
// retry: any failure is returned as a *ProvisioningError.
func (p *Provisioner) Provision(target Target, label string) (*Session, error) {
	logger := p.logger.With(zap.Stringer("target", target), zap.String("test", label))

	var (
		s   *Session
		err error
	)
	if p.cfg.Remote() {
		s, err = p.provisionRemote(logger, target, label)
	} else {
		logger.Warn("grid endpoint not set, using local driver", zap.String("env", EnvGridURL))
		s, err = p.provisionLocal(logger, target, label)
	}
	if err != nil {
		mode := ModeLocal
		if p.cfg.Remote() {
			mode = ModeRemote
		}
		p.metrics.provisionFailed(mode)
		return nil, &ProvisioningError{Target: target, Mode: mode, Err: err}
	}

	if err := p.applyBaseline(s); err != nil {
		if terr := s.teardown(); terr != nil {
			logger.Warn("could not tear down half-open session", zap.Error(terr))
		}
		p.metrics.provisionFailed(s.Mode)
		return nil, &ProvisioningError{Target: target, Mode: s.Mode, Err: err}
	}

	p.metrics.provisioned(s.Mode)
	s.logger.Info("session provisioned")
	return s, nil
}

func (p *Provisioner) provisionRemote(logger *zap.Logger, target Target, label string) (*Session, error) {
	endpoint, err := gridEndpoint(p.cfg.GridURL)
	if err != nil {
		return nil, err
	}
	caps, err := RemoteCapabilities(p.cfg, target, label)
	if err != nil {
		return nil, err
	}
	p.logCapabilities(logger, caps)

	wd, err := p.dial(caps, endpoint)
	if err != nil {
		return nil, fmt.Errorf("opening remote session at %s: %w", redactURL(endpoint), err)
	}
	return p.newSession(wd, logger, target, label, ModeRemote, nil, nil), nil
}

func (p *Provisioner) provisionLocal(logger *zap.Logger, target Target, label string) (*Session, error) {
	e, ok := ParseEngine(target.Name)
	if !ok {
		logger.Warn("browser not supported locally, using chrome", zap.String("browser", target.Name))
	}
	eng := engines[e]

	port := p.cfg.DriverPort
	if port == 0 {
		var err error
		port, err = pickUnusedPort()
		if err != nil {
			return nil, fmt.Errorf("picking driver port: %w", err)
		}
	}

	out := &zapio.Writer{Log: logger.With(zap.String("driver", eng.name)), Level: zapcore.DebugLevel}
	svc, err := p.startService(e, eng.driverPath(p.cfg), port, out)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("starting %s driver: %w", eng.name, err)
	}

	caps := e.Capabilities(p.cfg)
	if !ok {
		caps = FallbackCapabilities(p.cfg)
	}
	p.logCapabilities(logger, caps)
	wd, err := p.dial(caps, fmt.Sprintf("http://localhost:%d", port))
	if err != nil {
		if serr := svc.Stop(); serr != nil {
			logger.Warn("could not stop driver service", zap.Error(serr))
		}
		out.Close()
		return nil, fmt.Errorf("opening local %s session: %w", eng.name, err)
	}
	return p.newSession(wd, logger, target, label, ModeLocal, svc, out), nil
}

func (p *Provisioner) newSession(wd selenium.WebDriver, logger *zap.Logger, target Target, label string, mode Mode, svc Service, svcLog io.Closer) *Session {
	return &Session{
		WebDriver:   wd,
		Target:      target,
		Label:       label,
		Mode:        mode,
		service:     svc,
		serviceLog:  svcLog,
		artifacts:   p.artifacts,
		waitTimeout: p.cfg.WaitTimeout,
		logger:      logger.With(zap.String("mode", string(mode)), zap.String("session_id", wd.SessionID())),
		metrics:     p.metrics,
	}
}

// applyBaseline disables implicit waits, since every wait here is explicit,
// and pins the window size so layouts are reproducible.
func (p *Provisioner) applyBaseline(s *Session) error {
	if err := s.SetImplicitWaitTimeout(0); err != nil {
		return fmt.Errorf("disabling implicit wait: %w", err)
	}
	if err := s.ResizeWindow("", p.cfg.WindowWidth, p.cfg.WindowHeight); err != nil {
		return fmt.Errorf("resizing window to %dx%d: %w", p.cfg.WindowWidth, p.cfg.WindowHeight, err)
	}
	return nil
}

func (p *Provisioner) logCapabilities(logger *zap.Logger, caps selenium.Capabilities) {
	if p.redactor == nil || !logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	raw, err := json.Marshal(caps)
	if err != nil {
		logger.Debug("could not encode capabilities", zap.Error(err))
		return
	}
	redacted, err := p.redactor.Redact(string(raw))
	if err != nil {
		logger.Debug("could not redact capabilities", zap.Error(err))
		return
	}
	logger.Debug("requesting capabilities", zap.String("capabilities", redacted))
}

// gridEndpoint validates the configured grid URL.
func gridEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		// url.Error echoes the whole URL, credentials included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("malformed grid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("malformed grid endpoint %s: scheme must be http or https", redactURL(raw))
	}
	if u.Host == "" {
		return "", fmt.Errorf("malformed grid endpoint %s: missing host", redactURL(raw))
	}
	return raw, nil
}

// redactURL hides any password embedded in a grid URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	return u.Redacted()
}

func startService(e Engine, path string, port int, output io.Writer) (Service, error) {
	return engines[e].newService(path, port, selenium.Output(output))
}

func pickUnusedPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
