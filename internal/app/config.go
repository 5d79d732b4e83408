package app

import (
	"errors"
	"io"
	"time"

	"virtuoso-ci/internal/config"
	"virtuoso-ci/internal/orchestrator"
	"virtuoso-ci/pkg/logging"
)

var (
	// ErrNoTarget is returned when neither a goal nor a plan was requested.
	ErrNoTarget = errors.New("one of goal id or plan id is required")
	// ErrAmbiguousTarget is returned when both a goal and a plan were requested.
	ErrAmbiguousTarget = errors.New("goal id and plan id are mutually exclusive")
)

// Config holds the application configuration
type Config struct {
	Token string

	GoalID        int64
	HasGoalID     bool
	PlanID        int64
	HasPlanID     bool
	SnapshotID    int64
	HasSnapshotID bool

	// Environment names an entry of the environments table.
	Environment string

	// Debug settings
	Debug bool

	// ConfigPath is an explicit config file layered over the user and project files.
	ConfigPath string

	// Timeout and PollConcurrency override the loaded polling settings when positive.
	Timeout         time.Duration
	PollConcurrency int

	// Stdout receives the progress lines, Stderr the logs. Nil means the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewConfig creates a new application configuration for the given token
// and environment.
func NewConfig(token, environment string, debug bool) *Config {
	if environment == "" {
		environment = config.DefaultEnvironment
	}
	return &Config{
		Token:       token,
		Environment: environment,
		Debug:       debug,
	}
}

// Target returns the execution requested by the id fields.
func (c *Config) Target() (orchestrator.Target, error) {
	switch {
	case c.HasGoalID && c.HasPlanID:
		return nil, ErrAmbiguousTarget
	case c.HasPlanID:
		if c.HasSnapshotID {
			logging.Warn("Config", "Snapshot id %d is ignored for plan executions", c.SnapshotID)
		}
		return orchestrator.PlanTarget{PlanID: c.PlanID}, nil
	case c.HasGoalID && c.HasSnapshotID:
		return orchestrator.SnapshotTarget{GoalID: c.GoalID, SnapshotID: c.SnapshotID}, nil
	case c.HasGoalID:
		return orchestrator.GoalTarget{GoalID: c.GoalID}, nil
	default:
		return nil, ErrNoTarget
	}
}

// Policy derives the polling policy from the loaded settings and the overrides.
func (c *Config) Policy(polling config.PollingSettings) orchestrator.Policy {
	policy := orchestrator.Policy{
		JobInterval:     polling.JobInterval,
		PlanJobInterval: polling.PlanJobInterval,
		Timeout:         polling.Timeout,
		MaxPolls:        polling.MaxPolls,
		Concurrency:     polling.Concurrency,
	}
	if c.Timeout > 0 {
		policy.Timeout = c.Timeout
	}
	if c.PollConcurrency > 0 {
		policy.Concurrency = c.PollConcurrency
	}
	return policy
}
