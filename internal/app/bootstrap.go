package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"virtuoso-ci/internal/api"
	"virtuoso-ci/internal/config"
	"virtuoso-ci/internal/orchestrator"
	"virtuoso-ci/internal/reporting"
	"virtuoso-ci/pkg/logging"

	"github.com/google/uuid"
)

// Application wires configuration, service client, orchestrator and reporter
// for one run.
type Application struct {
	target       orchestrator.Target
	reporter     *reporting.ConsoleReporter
	orchestrator *orchestrator.Orchestrator
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *Config) (*Application, error) {
	// Logs stay on stderr so stdout carries only the CI lines
	appLogLevel := logging.LevelWarn
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	logging.InitForCLI(appLogLevel, cfg.Stderr)

	logging.SetRunID(uuid.NewString())

	target, err := cfg.Target()
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	env, err := settings.Resolve(cfg.Environment)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(api.ClientConfig{
		BaseURL:       env.API,
		Token:         cfg.Token,
		MaxAttempts:   settings.Retry.MaxAttempts,
		BackoffFactor: settings.Retry.BackoffFactor,
		BackoffMax:    settings.Retry.BackoffMax,
		Debug:         cfg.Debug,
	})
	logging.Debug("Bootstrap", "Using environment %s (api %s, ui %s)", cfg.Environment, client.BaseURL(), env.UI)

	reporter := reporting.NewConsoleReporter(cfg.Stdout)
	orch := orchestrator.New(client, reporter, orchestrator.Options{
		UIBaseURL: env.UI,
		Policy:    cfg.Policy(settings.Polling),
	})

	return &Application{
		target:       target,
		reporter:     reporter,
		orchestrator: orch,
	}, nil
}

// Target returns the execution this application runs.
func (a *Application) Target() orchestrator.Target {
	return a.target
}

// Run executes the requested target until every job is terminal, the run
// fails, or the process receives SIGINT or SIGTERM.
func (a *Application) Run(ctx context.Context) (orchestrator.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("Run", "Running %s", a.target)
	result, err := a.orchestrator.Run(ctx, a.target)
	if err != nil {
		a.reporter.Aborted(err)
		return result, err
	}
	logging.Info("Run", "Run of %s finished with %s (%d jobs, %d failed)", a.target, result.Verdict, result.Jobs, len(result.Failures))
	return result, nil
}
