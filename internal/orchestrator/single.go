package orchestrator

import (
	"context"
	"fmt"

	"virtuoso-ci/internal/api"
	"virtuoso-ci/pkg/logging"
)

// runSingle drives a goal or snapshot execution: one trigger, one job.
func (o *Orchestrator) runSingle(ctx context.Context, target Target, goalID int64, trigger func(context.Context) (api.JobID, error)) (Result, error) {
	result := Result{Target: target, Verdict: VerdictSuccess, Jobs: 1}

	o.reporter.ExecutionStarted(target)
	jobID, err := trigger(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to start %s: %w", target, err)
	}
	logging.Debug("Orchestrator", "Started job %s for %s", jobID, target)
	o.reporter.WaitingForJob(target, jobID)

	var status api.JobStatus
	for polls := 1; ; polls++ {
		status, err = o.api.FetchJob(ctx, jobID)
		if err != nil {
			return result, fmt.Errorf("failed to fetch status of job %s: %w", jobID, err)
		}
		if status.Terminal() {
			break
		}
		o.reporter.JobRunning(target, jobID, status.Status)

		if o.policy.MaxPolls > 0 && polls >= o.policy.MaxPolls {
			return result, fmt.Errorf("%w: job %s still %s after %d polls", ErrPollLimit, jobID, status.Status, polls)
		}
		if err := o.clock.Sleep(ctx, o.policy.JobInterval); err != nil {
			return result, fmt.Errorf("interrupted while waiting for job %s: %w", jobID, err)
		}
	}

	logging.Debug("Orchestrator", "Job %s reached %s with outcome %q", jobID, status.Status, status.Outcome)
	if !status.Failed() {
		o.reporter.ExecutionSucceeded(target)
		return result, nil
	}

	failure, err := o.failureFor(ctx, jobID, goalID, true, status.Outcome)
	if err != nil {
		return result, err
	}
	result.Verdict = VerdictFailure
	result.Failures = []Failure{failure}
	o.reporter.JobFailed(target, failure)
	return result, nil
}
