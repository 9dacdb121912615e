// Package scenario runs the Selenium Playground scenarios against a browser
// matrix, one freshly provisioned session per run.
package scenario

import (
	"context"
	"fmt"

	"github.com/padaiyal/playground/driver"
	"github.com/padaiyal/playground/internal/tracing"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PlaygroundURL is the page every scenario starts from.
const PlaygroundURL = "https://www.testmuai.com/selenium-playground/"

// Provisioner opens sessions. *driver.Provisioner satisfies it.
type Provisioner interface {
	Provision(target driver.Target, label string) (*driver.Session, error)
}

// State is how far a scenario run got.
type State int

const (
	Start State = iota
	PageLoaded
	InteractionsComplete
	Asserted
	TornDown
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case PageLoaded:
		return "page loaded"
	case InteractionsComplete:
		return "interactions complete"
	case Asserted:
		return "asserted"
	case TornDown:
		return "torn down"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Scenario is a fixed sequence of page interactions ending in an
// assertion.
type Scenario struct {
	// Name is the short name used in test labels.
	Name string
	// Title is the display name reported for the scenario.
	Title string
	// FinalScreenshot, when set, is captured during teardown on every exit
	// path.
	FinalScreenshot string

	Body func(p *Page) error
}

// Label names one run of the scenario for the grid dashboard.
func (s Scenario) Label(t driver.Target) string {
	return fmt.Sprintf("%s — %s", s.Name, t)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithTracer records one span per run. The global tracer is used otherwise.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = t
	}
}

// WithBaseURL points scenarios at another copy of the playground.
func WithBaseURL(url string) RunnerOption {
	return func(r *Runner) {
		r.baseURL = url
	}
}

// Runner executes scenarios. Runs share nothing, so one Runner may be used
// from parallel tests.
type Runner struct {
	provisioner Provisioner
	logger      *zap.Logger
	tracer      trace.Tracer
	baseURL     string
}

// NewRunner returns a Runner that opens sessions with p.
func NewRunner(p Provisioner, opts ...RunnerOption) *Runner {
	r := &Runner{
		provisioner: p,
		logger:      zap.NewNop(),
		tracer:      tracing.Tracer(),
		baseURL:     PlaygroundURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run provisions a session for target, runs sc on it and releases the
// session. The release is deferred, so it happens whatever the body does,
// including panicking or calling t.FailNow through a helper.
func (r *Runner) Run(sc Scenario, target driver.Target) (err error) {
	logger := r.logger.With(zap.String("scenario", sc.Name), zap.Stringer("target", target))
	_, span := r.tracer.Start(context.Background(), "scenario "+sc.Name, trace.WithAttributes(
		tracing.AttrScenario.String(sc.Name),
		tracing.AttrBrowser.String(target.Name),
		tracing.AttrVersion.String(target.Version),
		tracing.AttrPlatform.String(target.Platform),
	))
	defer span.End()

	sess, err := r.provisioner.Provision(target, sc.Label(target))
	if err != nil {
		logger.Error("provisioning failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "provisioning failed")
		return err
	}
	span.SetAttributes(
		tracing.AttrMode.String(string(sess.Mode)),
		tracing.AttrSessionID.String(sess.SessionID()),
	)

	page := &Page{Session: sess, baseURL: r.baseURL, span: span, state: Start}
	returned := false
	defer func() {
		if sc.FinalScreenshot != "" {
			sess.Screenshot(sc.FinalScreenshot)
		}
		if rerr := sess.Release(); rerr != nil {
			logger.Warn("session release failed", zap.Error(rerr))
			if err == nil {
				err = rerr
			}
		}
		reached := page.State()
		page.setState(TornDown)
		if !returned {
			logger.Error("scenario aborted", zap.Stringer("reached", reached))
			span.SetStatus(codes.Error, "aborted in state "+reached.String())
			return
		}
		if err != nil {
			logger.Error("scenario failed", zap.Stringer("reached", reached), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed in state "+reached.String())
			return
		}
		logger.Info("scenario passed")
		span.SetStatus(codes.Ok, "")
	}()

	err = sc.Body(page)
	returned = true
	return err
}
