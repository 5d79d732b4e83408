package config

import (
	"time"
)

// DefaultEnvironment is used when no --env flag is given.
const DefaultEnvironment = "production"

const (
	defaultJobInterval     = 5 * time.Second
	defaultPlanJobInterval = 2 * time.Second
	defaultConcurrency     = 1
	defaultMaxAttempts     = 5
	defaultBackoffFactor   = 1 * time.Second
	defaultBackoffMax      = 120 * time.Second
)

// defaultEnvironments is the fixed environment table shipped with the binary.
// The staging UI entry points at the API host; it is kept as published.
func defaultEnvironments() map[string]Environment {
	return map[string]Environment{
		"dev": {
			API: "https://api-dev.virtuoso.qa/api",
			UI:  "https://app-dev.virtuoso.qa",
		},
		"staging": {
			API: "https://api-staging.virtuoso.qa/api",
			UI:  "https://api-staging.virtuoso.qa",
		},
		"production": {
			API: "https://api.virtuoso.qa/api",
			UI:  "https://app.virtuoso.qa",
		},
		"app2": {
			API: "https://api-app2.virtuoso.qa/api",
			UI:  "https://app-app2.virtuoso.qa",
		},
	}
}

// GetDefaultConfig returns the built-in configuration.
func GetDefaultConfig() Config {
	return Config{
		Environments: defaultEnvironments(),
		Polling: PollingSettings{
			JobInterval:     defaultJobInterval,
			PlanJobInterval: defaultPlanJobInterval,
			Concurrency:     defaultConcurrency,
		},
		Retry: RetrySettings{
			MaxAttempts:   defaultMaxAttempts,
			BackoffFactor: defaultBackoffFactor,
			BackoffMax:    defaultBackoffMax,
		},
	}
}
