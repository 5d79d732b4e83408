package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"virtuoso-ci/internal/api"
	"virtuoso-ci/pkg/logging"
)

var (
	// ErrPollLimit is returned when Policy.MaxPolls is reached before every job is terminal.
	ErrPollLimit = errors.New("poll limit reached before jobs finished")
	// ErrPollTimeout is returned when Policy.Timeout expires before every job is terminal.
	ErrPollTimeout = errors.New("timed out waiting for jobs to finish")
)

// API is the subset of the service client the orchestrators need.
type API interface {
	ExecuteGoal(ctx context.Context, goalID int64) (api.JobID, error)
	ExecuteSnapshot(ctx context.Context, goalID, snapshotID int64) (api.JobID, error)
	ExecutePlan(ctx context.Context, planID int64) ([]api.JobID, error)
	FetchJob(ctx context.Context, jobID api.JobID) (api.JobStatus, error)
	GoalInfo(ctx context.Context, goalID int64) (api.GoalInfo, error)
}

// Reporter receives the user-visible progress of a run.
type Reporter interface {
	ExecutionStarted(target Target)
	WaitingForJob(target Target, jobID api.JobID)
	JobRunning(target Target, jobID api.JobID, status string)
	PlanRunning(plan PlanTarget, finished, total int)
	PlanFinished(plan PlanTarget)
	JobFailed(target Target, failure Failure)
	ExecutionSucceeded(target Target)
}

// Verdict is the overall outcome of a run.
type Verdict int

const (
	VerdictSuccess Verdict = iota
	VerdictFailure
)

func (v Verdict) String() string {
	if v == VerdictFailure {
		return "failure"
	}
	return "success"
}

// Failure describes one job that ended with a failing outcome.
type Failure struct {
	JobID     api.JobID
	GoalID    int64
	Outcome   string
	ProjectID string
	// ExecutionURL links to the execution in the web app. Empty when the
	// service did not say which goal the job belongs to.
	ExecutionURL string
}

// Result is the aggregated outcome of one run.
type Result struct {
	Target   Target
	Verdict  Verdict
	Jobs     int
	Failures []Failure
}

// Options configures an Orchestrator.
type Options struct {
	// UIBaseURL is the web app base used for execution links.
	UIBaseURL string
	// Policy defaults to DefaultPolicy when left zero.
	Policy Policy
	// Clock defaults to RealClock.
	Clock Clock
}

// Orchestrator runs executions against the service.
type Orchestrator struct {
	api      API
	reporter Reporter
	uiBase   string
	policy   Policy
	clock    Clock
}

// New creates a new Orchestrator.
func New(client API, reporter Reporter, opts Options) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	policy := opts.Policy
	if policy == (Policy{}) {
		policy = DefaultPolicy()
	}
	if policy.Concurrency < 1 {
		policy.Concurrency = 1
	}
	return &Orchestrator{
		api:      client,
		reporter: reporter,
		uiBase:   opts.UIBaseURL,
		policy:   policy,
		clock:    clock,
	}
}

// Run triggers the execution of target and waits until all of its jobs are
// terminal. A returned error means the run was aborted; failing jobs are
// reported through the Result instead.
func (o *Orchestrator) Run(ctx context.Context, target Target) (Result, error) {
	runCtx := ctx
	if o.policy.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.policy.Timeout)
		defer cancel()
	}

	logging.Debug("Orchestrator", "Running %s with policy %+v", target, o.policy)

	var result Result
	var err error
	switch t := target.(type) {
	case GoalTarget:
		result, err = o.runSingle(runCtx, t, t.GoalID, func(ctx context.Context) (api.JobID, error) {
			return o.api.ExecuteGoal(ctx, t.GoalID)
		})
	case SnapshotTarget:
		result, err = o.runSingle(runCtx, t, t.GoalID, func(ctx context.Context) (api.JobID, error) {
			return o.api.ExecuteSnapshot(ctx, t.GoalID, t.SnapshotID)
		})
	case PlanTarget:
		result, err = o.runPlan(runCtx, t)
	default:
		return Result{Target: target}, fmt.Errorf("unsupported execution target %T", target)
	}

	if err != nil && o.policy.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %v: %w", ErrPollTimeout, o.policy.Timeout, err)
	}
	if err != nil {
		logging.Error("Orchestrator", err, "Run of %s aborted", target)
	}
	return result, err
}

// failureFor builds the failure report of a job, fetching goal information
// for the execution link.
func (o *Orchestrator) failureFor(ctx context.Context, jobID api.JobID, goalID int64, hasGoalID bool, outcome string) (Failure, error) {
	failure := Failure{
		JobID:   jobID,
		GoalID:  goalID,
		Outcome: outcome,
	}
	if !hasGoalID {
		logging.Warn("Orchestrator", "Job %s has no goal id, cannot build its execution link", jobID)
		return failure, nil
	}

	info, err := o.api.GoalInfo(ctx, goalID)
	if err != nil {
		return failure, fmt.Errorf("failed to fetch goal %d for job %s: %w", goalID, jobID, err)
	}
	if info.ProjectID == "" {
		logging.Warn("Orchestrator", "Goal %d has no project id, cannot build the execution link of job %s", goalID, jobID)
		return failure, nil
	}
	failure.ProjectID = info.ProjectID
	failure.ExecutionURL = ExecutionURL(o.uiBase, info.ProjectID, jobID)
	return failure, nil
}

// ExecutionURL returns the web app link of one job execution.
func ExecutionURL(uiBase, projectID string, jobID api.JobID) string {
	return fmt.Sprintf("%s/#/project/%s/execution/%s", uiBase, projectID, jobID)
}
