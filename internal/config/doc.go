// Package config provides configuration management for virtuoso-ci.
//
// This package implements a layered configuration system. Configuration is
// loaded from multiple sources and merged in a specific order, with later
// sources overriding earlier ones.
//
// # Configuration Layers
//
//  1. Default Configuration (embedded in binary)
//     - The fixed environment table (dev, staging, production, app2)
//     - Polling every 5s for single jobs, 2s per job check in plans
//     - 5 attempts per HTTP call with a 1s exponential backoff factor
//
//  2. User Configuration (~/.config/virtuoso-ci/config.yaml)
//
//  3. Project Configuration (./.virtuoso-ci/config.yaml)
//     - Lets a repository pin its own polling policy in version control
//
//  4. Explicit file passed with --config
//
// # Configuration Structure
//
//	environments:
//	  onprem:
//	    api: "https://virtuoso.example.com/api"
//	    ui: "https://virtuoso.example.com"
//
//	polling:
//	  jobInterval: 5s
//	  planJobInterval: 2s
//	  timeout: 45m      # 0 or absent waits forever
//	  maxPolls: 0
//	  concurrency: 1    # >1 polls plan jobs in parallel
//
//	retry:
//	  maxAttempts: 5
//	  backoffFactor: 1s
//	  backoffMax: 2m
//
// Environments merge per name: an overlay can add a new environment or
// replace only the ui url of a built-in one. Zero values never override.
package config
