// Package app bootstraps one CI run: it loads the layered configuration,
// resolves the environment, and wires the service client, orchestrator and
// console reporter together. The cmd package builds a Config from flags and
// maps the outcome of Application.Run to the process exit code.
package app
