package config

import (
	"time"
)

// Config is the top-level configuration structure for virtuoso-ci.
type Config struct {
	Environments map[string]Environment `yaml:"environments"`
	Polling      PollingSettings        `yaml:"polling"`
	Retry        RetrySettings          `yaml:"retry"`
}

// Environment holds the two base URLs of one service deployment.
type Environment struct {
	API string `yaml:"api"` // REST API base, e.g. "https://api.virtuoso.qa/api"
	UI  string `yaml:"ui"`  // Web app base used for execution links
}

// PollingSettings controls how the orchestrators wait for jobs.
type PollingSettings struct {
	JobInterval     time.Duration `yaml:"jobInterval,omitempty"`     // Sleep between polls of a single goal/snapshot job
	PlanJobInterval time.Duration `yaml:"planJobInterval,omitempty"` // Sleep after each job check in a plan scan
	Timeout         time.Duration `yaml:"timeout,omitempty"`         // Overall wait budget, 0 means unbounded
	MaxPolls        int           `yaml:"maxPolls,omitempty"`        // Poll (single job) or pass (plan) limit, 0 means unbounded
	Concurrency     int           `yaml:"concurrency,omitempty"`     // Parallel status requests per plan pass, 1 is sequential
}

// RetrySettings controls the HTTP retry policy of every remote call.
type RetrySettings struct {
	MaxAttempts   int           `yaml:"maxAttempts,omitempty"`   // Total attempts per call, including the first one
	BackoffFactor time.Duration `yaml:"backoffFactor,omitempty"` // Exponential backoff base
	BackoffMax    time.Duration `yaml:"backoffMax,omitempty"`    // Upper bound for a single backoff wait
}
