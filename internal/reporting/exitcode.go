package reporting

import "virtuoso-ci/internal/orchestrator"

// Process exit codes.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitFailure = 2
)

// ExitCode maps the outcome of a run to the process exit code.
func ExitCode(result orchestrator.Result, err error) int {
	switch {
	case err != nil:
		return ExitError
	case result.Verdict == orchestrator.VerdictFailure:
		return ExitFailure
	default:
		return ExitSuccess
	}
}
