//go:build e2e

package e2e

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/padaiyal/playground/driver"
	"github.com/padaiyal/playground/internal/tracing"
	"github.com/padaiyal/playground/redact"
	"github.com/padaiyal/playground/scenario"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	EnvParallel = "PLAYGROUND_PARALLEL"
	EnvMatrix   = "PLAYGROUND_MATRIX"
	EnvBaseURL  = "PLAYGROUND_URL"
	EnvTrace    = "PLAYGROUND_TRACE_FILE"
)

var Logger *zap.Logger
var Registry *prometheus.Registry
var Runner *scenario.Runner
var Matrix []scenario.Row
var Parallel bool
var traces *tracing.Provider
var traceFile *os.File

/*
Generic methods for running the tests
*/

func SetUp() {
	var err error

	Logger, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	cfg, err := driver.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		Logger.Fatal("Could not load configuration", zap.Error(err))
	}
	mode := driver.ModeLocal
	if cfg.Remote() {
		mode = driver.ModeRemote
	}
	Logger.Info("Setting up the suite", zap.String("mode", string(mode)), zap.String("build", cfg.BuildName))

	Matrix = scenario.DefaultMatrix()
	if path := os.Getenv(EnvMatrix); path != "" {
		Matrix, err = scenario.LoadMatrix(path)
		if err != nil {
			Logger.Fatal("Could not load browser matrix", zap.Error(err))
		}
	}

	if v := os.Getenv(EnvParallel); v != "" {
		Parallel, err = strconv.ParseBool(v)
		if err != nil {
			Logger.Fatal("Invalid "+EnvParallel, zap.String("value", v), zap.Error(err))
		}
	}

	redactor, err := redact.NewCapabilityRedactor()
	if err != nil {
		Logger.Fatal("Could not load capability redaction rules", zap.Error(err))
	}

	if path := os.Getenv(EnvTrace); path != "" {
		traceFile, err = os.Create(path)
		if err != nil {
			Logger.Fatal("Could not create trace file", zap.Error(err))
		}
		traces, err = tracing.NewProvider("selenium-playground-e2e", traceFile)
		if err != nil {
			Logger.Fatal("Could not set up tracing", zap.Error(err))
		}
	}

	Registry = prometheus.NewRegistry()
	provisioner := driver.NewProvisioner(cfg,
		driver.WithLogger(Logger),
		driver.WithMetrics(driver.NewMetrics(Registry)),
		driver.WithRedactor(redactor),
	)

	opts := []scenario.RunnerOption{scenario.WithLogger(Logger)}
	if url := os.Getenv(EnvBaseURL); url != "" {
		opts = append(opts, scenario.WithBaseURL(url))
	}
	Runner = scenario.NewRunner(provisioner, opts...)
}

func TearDown() {
	families, err := Registry.Gather()
	if err != nil {
		Logger.Warn("Could not gather session metrics", zap.Error(err))
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			var labels []string
			for _, pair := range metric.GetLabel() {
				labels = append(labels, pair.GetName()+"="+pair.GetValue())
			}
			Logger.Info("Session metric",
				zap.String("name", family.GetName()),
				zap.String("labels", strings.Join(labels, ",")),
				zap.Float64("value", metric.GetCounter().GetValue()))
		}
	}
	if traces != nil {
		if err := traces.Shutdown(context.Background()); err != nil {
			Logger.Warn("Could not flush traces", zap.Error(err))
		}
		traceFile.Close()
	}
	_ = Logger.Sync()
}

// RunScenario runs sc once per matrix row, each row as its own subtest.
func RunScenario(t *testing.T, sc scenario.Scenario) {
	t.Log(sc.Title)
	for _, row := range Matrix {
		t.Run(row.Name(), func(t *testing.T) {
			if Parallel {
				t.Parallel()
			}
			err := Runner.Run(sc, row.Target)
			require.NoError(t, err, "%s on %s", sc.Name, row.Target)
		})
	}
}
