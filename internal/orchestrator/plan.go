package orchestrator

import (
	"context"
	"fmt"

	"virtuoso-ci/internal/api"
	"virtuoso-ci/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// runPlan drives a plan execution: one trigger, many jobs.
func (o *Orchestrator) runPlan(ctx context.Context, plan PlanTarget) (Result, error) {
	result := Result{Target: plan, Verdict: VerdictSuccess}

	o.reporter.ExecutionStarted(plan)
	jobIDs, err := o.api.ExecutePlan(ctx, plan.PlanID)
	if err != nil {
		return result, fmt.Errorf("failed to start %s: %w", plan, err)
	}
	result.Jobs = len(jobIDs)
	logging.Debug("Orchestrator", "Plan %d started %d jobs: %v", plan.PlanID, len(jobIDs), jobIDs)

	ledger := NewJobLedger()
	for passes := 1; ; passes++ {
		if err := o.scanPlan(ctx, jobIDs, ledger); err != nil {
			return result, err
		}
		if ledger.Complete(jobIDs) {
			break
		}
		o.reporter.PlanRunning(plan, ledger.Len(), len(jobIDs))

		if o.policy.MaxPolls > 0 && passes >= o.policy.MaxPolls {
			return result, fmt.Errorf("%w: %d of %d jobs of %s finished after %d passes", ErrPollLimit, ledger.Len(), len(jobIDs), plan, passes)
		}
	}

	o.reporter.PlanFinished(plan)
	for _, entry := range ledger.Failed() {
		failure, err := o.failureFor(ctx, entry.JobID, entry.GoalID, entry.HasGoalID, entry.Outcome)
		if err != nil {
			return result, err
		}
		result.Failures = append(result.Failures, failure)
		o.reporter.JobFailed(plan, failure)
	}

	if len(result.Failures) > 0 {
		result.Verdict = VerdictFailure
		return result, nil
	}
	o.reporter.ExecutionSucceeded(plan)
	return result, nil
}

// scanPlan performs one pass over the jobs that are not terminal yet.
func (o *Orchestrator) scanPlan(ctx context.Context, jobIDs []api.JobID, ledger *JobLedger) error {
	if o.policy.Concurrency <= 1 {
		for _, jobID := range jobIDs {
			if ledger.Has(jobID) {
				continue
			}
			if err := o.checkJob(ctx, jobID, ledger); err != nil {
				return err
			}
			if err := o.clock.Sleep(ctx, o.policy.PlanJobInterval); err != nil {
				return fmt.Errorf("interrupted while waiting for plan jobs: %w", err)
			}
		}
		return nil
	}

	pending := ledger.Pending(jobIDs)
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.policy.Concurrency)
	for _, jobID := range pending {
		g.Go(func() error {
			return o.checkJob(gctx, jobID, ledger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ledger.Complete(jobIDs) {
		return nil
	}

	if err := o.clock.Sleep(ctx, o.policy.PlanJobInterval); err != nil {
		return fmt.Errorf("interrupted while waiting for plan jobs: %w", err)
	}
	return nil
}

// checkJob fetches one job and records it when it is terminal.
func (o *Orchestrator) checkJob(ctx context.Context, jobID api.JobID, ledger *JobLedger) error {
	status, err := o.api.FetchJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to fetch status of job %s: %w", jobID, err)
	}
	if !status.Terminal() {
		return nil
	}

	recorded := ledger.Record(LedgerEntry{
		JobID:     jobID,
		Outcome:   status.Outcome,
		GoalID:    status.GoalID,
		HasGoalID: status.HasGoalID,
	})
	if recorded {
		logging.Debug("Orchestrator", "Job %s reached %s with outcome %q", jobID, status.Status, status.Outcome)
	}
	return nil
}
