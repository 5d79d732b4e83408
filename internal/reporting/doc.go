// Package reporting turns orchestrator events into the lines a CI log shows.
//
// ConsoleReporter writes one line per event to its writer (stdout in the
// CLI). Lines are styled with lipgloss through a renderer bound to that
// writer, so a CI runner without a terminal receives plain text. Every
// event is mirrored to pkg/logging at debug level.
//
// ExitCode maps the outcome of a run to the process exit status: 0 when
// every job passed, 2 when at least one job failed and 1 when the run was
// aborted by an error.
package reporting
