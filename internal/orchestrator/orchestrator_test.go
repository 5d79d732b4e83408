package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"virtuoso-ci/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUI = "https://app.virtuoso.qa"

func testPolicy() Policy {
	return Policy{
		JobInterval:     5 * time.Second,
		PlanJobInterval: 2 * time.Second,
		Concurrency:     1,
	}
}

func newTestOrchestrator(stub *stubAPI, reporter *recordingReporter, clock *fakeClock, policy Policy) *Orchestrator {
	return New(stub, reporter, Options{UIBaseURL: testUI, Policy: policy, Clock: clock})
}

func TestRun_GoalSucceedsAfterPolling(t *testing.T) {
	stub := newStubAPI()
	stub.goalJob = "1001"
	stub.script("1001", running(), running(), finished("PASS", 42))
	reporter := &recordingReporter{}
	clock := &fakeClock{}

	result, err := newTestOrchestrator(stub, reporter, clock, testPolicy()).Run(context.Background(), GoalTarget{GoalID: 42})
	require.NoError(t, err)

	assert.Equal(t, VerdictSuccess, result.Verdict)
	assert.Equal(t, 1, result.Jobs)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{
		"started goal 42",
		"waiting 1001",
		"running 1001 RUNNING",
		"running 1001 RUNNING",
		"succeeded goal 42",
	}, reporter.Events())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clock.Sleeps())
	assert.Equal(t, 3, stub.fetchCount("1001"))
	assert.Empty(t, stub.goalCalls, "goal info is only fetched for failures")
}

func TestRun_SnapshotFailureLinksExecution(t *testing.T) {
	stub := newStubAPI()
	stub.snapshotJob = "2002"
	stub.projects[42] = "77"
	stub.script("2002", finished("FAIL", 42))
	reporter := &recordingReporter{}
	clock := &fakeClock{}

	result, err := newTestOrchestrator(stub, reporter, clock, testPolicy()).Run(context.Background(), SnapshotTarget{GoalID: 42, SnapshotID: 7})
	require.NoError(t, err)

	assert.Equal(t, []string{"snapshot 42/7"}, stub.executed)
	assert.Equal(t, VerdictFailure, result.Verdict)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, Failure{
		JobID:        "2002",
		GoalID:       42,
		Outcome:      "FAIL",
		ProjectID:    "77",
		ExecutionURL: "https://app.virtuoso.qa/#/project/77/execution/2002",
	}, result.Failures[0])
	assert.Equal(t, []int64{42}, stub.goalCalls)
	assert.Empty(t, clock.Sleeps(), "a job terminal on first poll never sleeps")
	assert.Equal(t, []string{"started snapshot 7 of goal 42", "waiting 2002", "failed 2002"}, reporter.Events())
}

func TestRun_SingleJobTerminalWithoutOutcomeSucceeds(t *testing.T) {
	stub := newStubAPI()
	stub.goalJob = "5"
	stub.script("5", api.JobStatus{Status: api.StatusCanceled})

	result, err := newTestOrchestrator(stub, &recordingReporter{}, &fakeClock{}, testPolicy()).Run(context.Background(), GoalTarget{GoalID: 1})
	require.NoError(t, err)
	assert.Equal(t, VerdictSuccess, result.Verdict)
}

func TestRun_SingleJobErrorOutcomeFails(t *testing.T) {
	stub := newStubAPI()
	stub.goalJob = "5"
	stub.projects[1] = "p"
	stub.script("5", api.JobStatus{Status: api.StatusFailed, Outcome: "ERROR"})

	result, err := newTestOrchestrator(stub, &recordingReporter{}, &fakeClock{}, testPolicy()).Run(context.Background(), GoalTarget{GoalID: 1})
	require.NoError(t, err)
	assert.Equal(t, VerdictFailure, result.Verdict)
	assert.Equal(t, int64(1), result.Failures[0].GoalID, "single job failures use the requested goal")
}

func TestRun_PlanMixedOutcomes(t *testing.T) {
	stub := newStubAPI()
	stub.planJobs = []api.JobID{"1", "2", "3"}
	stub.projects[11] = "proj-11"
	stub.script("1", finished("PASS", 10))
	stub.script("2", running(), finished("FAIL", 11))
	stub.script("3", api.JobStatus{Status: api.StatusCanceled, GoalID: 12, HasGoalID: true})
	reporter := &recordingReporter{}
	clock := &fakeClock{}

	result, err := newTestOrchestrator(stub, reporter, clock, testPolicy()).Run(context.Background(), PlanTarget{PlanID: 9})
	require.NoError(t, err)

	assert.Equal(t, VerdictFailure, result.Verdict)
	assert.Equal(t, 3, result.Jobs)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, api.JobID("2"), result.Failures[0].JobID)
	assert.Equal(t, "https://app.virtuoso.qa/#/project/proj-11/execution/2", result.Failures[0].ExecutionURL)
	assert.Equal(t, []int64{11}, stub.goalCalls)

	assert.Equal(t, []string{
		"started plan 9",
		"plan running 2/3",
		"plan finished",
		"failed 2",
	}, reporter.Events())

	// Recorded jobs are never fetched again and do not cost a sleep.
	assert.Equal(t, 1, stub.fetchCount("1"))
	assert.Equal(t, 2, stub.fetchCount("2"))
	assert.Equal(t, 1, stub.fetchCount("3"))
	assert.Len(t, clock.Sleeps(), 4)
	for _, d := range clock.Sleeps() {
		assert.Equal(t, 2*time.Second, d)
	}
}

func TestRun_PlanAllPass(t *testing.T) {
	stub := newStubAPI()
	stub.planJobs = []api.JobID{"1", "2"}
	stub.script("1", finished("PASS", 1))
	stub.script("2", finished("PASS", 2))
	reporter := &recordingReporter{}

	result, err := newTestOrchestrator(stub, reporter, &fakeClock{}, testPolicy()).Run(context.Background(), PlanTarget{PlanID: 3})
	require.NoError(t, err)
	assert.Equal(t, VerdictSuccess, result.Verdict)
	assert.Equal(t, []string{"started plan 3", "plan finished", "succeeded plan 3"}, reporter.Events())
}

func TestRun_PlanWithoutJobsSucceeds(t *testing.T) {
	stub := newStubAPI()
	reporter := &recordingReporter{}
	clock := &fakeClock{}

	result, err := newTestOrchestrator(stub, reporter, clock, testPolicy()).Run(context.Background(), PlanTarget{PlanID: 3})
	require.NoError(t, err)
	assert.Equal(t, VerdictSuccess, result.Verdict)
	assert.Zero(t, result.Jobs)
	assert.Empty(t, clock.Sleeps())
}

func TestRun_PlanFailureWithoutGoalID(t *testing.T) {
	stub := newStubAPI()
	stub.planJobs = []api.JobID{"8"}
	stub.script("8", api.JobStatus{Status: api.StatusFinished, Outcome: "FAIL"})

	result, err := newTestOrchestrator(stub, &recordingReporter{}, &fakeClock{}, testPolicy()).Run(context.Background(), PlanTarget{PlanID: 3})
	require.NoError(t, err)
	assert.Equal(t, VerdictFailure, result.Verdict)
	require.Len(t, result.Failures, 1)
	assert.Empty(t, result.Failures[0].ExecutionURL)
	assert.Empty(t, stub.goalCalls)
}

func TestRun_PlanFailuresOrderedByJobID(t *testing.T) {
	stub := newStubAPI()
	stub.planJobs = []api.JobID{"100", "20", "3"}
	for _, id := range stub.planJobs {
		stub.script(id, finished("FAIL", 1))
	}

	result, err := newTestOrchestrator(stub, &recordingReporter{}, &fakeClock{}, testPolicy()).Run(context.Background(), PlanTarget{PlanID: 1})
	require.NoError(t, err)
	require.Len(t, result.Failures, 3)
	assert.Equal(t, api.JobID("3"), result.Failures[0].JobID)
	assert.Equal(t, api.JobID("20"), result.Failures[1].JobID)
	assert.Equal(t, api.JobID("100"), result.Failures[2].JobID)
}

func TestRun_PlanConcurrentPass(t *testing.T) {
	stub := newStubAPI()
	stub.planJobs = []api.JobID{"1", "2", "3", "4", "5"}
	for _, id := range stub.planJobs {
		stub.script(id, running(), finished("PASS", 1))
	}
	clock := &fakeClock{}
	policy := testPolicy()
	policy.Concurrency = 3

	result, err := newTestOrchestrator(stub, &recordingReporter{}, clock, policy).Run(context.Background(), PlanTarget{PlanID: 1})
	require.NoError(t, err)
	assert.Equal(t, VerdictSuccess, result.Verdict)
	assert.Equal(t, []time.Duration{2 * time.Second}, clock.Sleeps(), "one sleep per pass, none after the completing pass")
	for _, id := range stub.planJobs {
		assert.Equal(t, 2, stub.fetchCount(id))
	}
}

func TestRun_PollLimit(t *testing.T) {
	policy := testPolicy()
	policy.MaxPolls = 3

	t.Run("single job", func(t *testing.T) {
		stub := newStubAPI()
		stub.goalJob = "1"
		clock := &fakeClock{}

		_, err := newTestOrchestrator(stub, &recordingReporter{}, clock, policy).Run(context.Background(), GoalTarget{GoalID: 1})
		assert.ErrorIs(t, err, ErrPollLimit)
		assert.Equal(t, 3, stub.fetchCount("1"))
		assert.Len(t, clock.Sleeps(), 2)
	})

	t.Run("plan", func(t *testing.T) {
		stub := newStubAPI()
		stub.planJobs = []api.JobID{"1", "2"}
		stub.script("1", finished("PASS", 1))

		_, err := newTestOrchestrator(stub, &recordingReporter{}, &fakeClock{}, policy).Run(context.Background(), PlanTarget{PlanID: 1})
		assert.ErrorIs(t, err, ErrPollLimit)
		assert.Equal(t, 3, stub.fetchCount("2"))
	})
}

func TestRun_Timeout(t *testing.T) {
	stub := newStubAPI()
	stub.goalJob = "1"
	policy := testPolicy()
	policy.JobInterval = time.Millisecond
	policy.Timeout = 30 * time.Millisecond

	o := New(stub, &recordingReporter{}, Options{UIBaseURL: testUI, Policy: policy})
	_, err := o.Run(context.Background(), GoalTarget{GoalID: 1})
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_CanceledIsNotTimeout(t *testing.T) {
	stub := newStubAPI()
	stub.goalJob = "1"
	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{onSlp: cancel}
	policy := testPolicy()
	policy.Timeout = time.Hour

	_, err := newTestOrchestrator(stub, &recordingReporter{}, clock, policy).Run(ctx, GoalTarget{GoalID: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrPollTimeout)
}

func TestRun_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("trigger fails", func(t *testing.T) {
		stub := newStubAPI()
		stub.executeErr = api.ErrMissingJobID
		reporter := &recordingReporter{}

		_, err := newTestOrchestrator(stub, reporter, &fakeClock{}, testPolicy()).Run(context.Background(), GoalTarget{GoalID: 1})
		assert.ErrorIs(t, err, api.ErrMissingJobID)
		assert.Equal(t, []string{"started goal 1"}, reporter.Events())
	})

	t.Run("status fetch fails", func(t *testing.T) {
		stub := newStubAPI()
		stub.planJobs = []api.JobID{"1"}
		stub.fetchErr["1"] = boom

		_, err := newTestOrchestrator(stub, &recordingReporter{}, &fakeClock{}, testPolicy()).Run(context.Background(), PlanTarget{PlanID: 1})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("concurrent status fetch fails", func(t *testing.T) {
		stub := newStubAPI()
		stub.planJobs = []api.JobID{"1", "2"}
		stub.fetchErr["2"] = boom
		policy := testPolicy()
		policy.Concurrency = 2

		_, err := newTestOrchestrator(stub, &recordingReporter{}, &fakeClock{}, policy).Run(context.Background(), PlanTarget{PlanID: 1})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("goal info fails", func(t *testing.T) {
		stub := newStubAPI()
		stub.goalJob = "1"
		stub.goalErr = boom
		stub.script("1", finished("FAIL", 1))

		_, err := newTestOrchestrator(stub, &recordingReporter{}, &fakeClock{}, testPolicy()).Run(context.Background(), GoalTarget{GoalID: 1})
		assert.ErrorIs(t, err, boom)
	})
}

func TestExecutionURL(t *testing.T) {
	assert.Equal(t, "https://app2.virtuoso.qa/#/project/5/execution/99", ExecutionURL("https://app2.virtuoso.qa", "5", "99"))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "success", VerdictSuccess.String())
	assert.Equal(t, "failure", VerdictFailure.String())
}

func TestNew_ZeroPolicyUsesDefaults(t *testing.T) {
	stub := newStubAPI()
	stub.goalJob = "1"
	stub.script("1", running(), finished("PASS", 1))
	clock := &fakeClock{}

	o := New(stub, &recordingReporter{}, Options{Clock: clock})
	assert.Equal(t, DefaultPolicy(), o.policy)

	_, err := o.Run(context.Background(), GoalTarget{GoalID: 1})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Sleeps())
}

func TestRun_FailureWithoutProjectHasNoLink(t *testing.T) {
	stub := newStubAPI()
	stub.goalJob = "31"
	stub.script("31", finished("FAIL", 8))
	reporter := &recordingReporter{}

	result, err := newTestOrchestrator(stub, reporter, &fakeClock{}, testPolicy()).Run(context.Background(), GoalTarget{GoalID: 8})
	require.NoError(t, err)

	assert.Equal(t, VerdictFailure, result.Verdict)
	assert.Equal(t, []int64{8}, stub.goalCalls)
	require.Len(t, reporter.failures, 1)
	assert.Empty(t, reporter.failures[0].ProjectID)
	assert.Empty(t, reporter.failures[0].ExecutionURL, "no link with an empty project segment")
}

func TestRun_PlanConcurrentFinishedFirstPassNeverSleeps(t *testing.T) {
	stub := newStubAPI()
	stub.planJobs = []api.JobID{"100", "101"}
	stub.script("100", finished("PASS", 1))
	stub.script("101", finished("PASS", 2))
	clock := &fakeClock{}
	policy := testPolicy()
	policy.Concurrency = 2

	result, err := newTestOrchestrator(stub, &recordingReporter{}, clock, policy).Run(context.Background(), PlanTarget{PlanID: 7})
	require.NoError(t, err)
	assert.Equal(t, VerdictSuccess, result.Verdict)
	assert.Empty(t, clock.Sleeps())
}
