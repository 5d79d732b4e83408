// Package orchestrator drives one execution request to completion.
//
// An Orchestrator triggers an execution for a Target (a goal, a goal
// snapshot or a plan), waits until every job it started is terminal, and
// aggregates the outcomes into a Result with a Verdict.
//
// # Poll loops
//
// Goal and snapshot executions poll their single job, reporting the running
// status and sleeping Policy.JobInterval between polls. Plan executions run
// outer passes: each pass checks every job that is not yet terminal and
// records terminal jobs in a JobLedger. The plan is done when the ledger
// holds exactly the set of requested job ids.
//
// With Policy.Concurrency of 1 a pass checks jobs one after the other and
// sleeps Policy.PlanJobInterval after every check, so a pass over N pending
// jobs lasts at least N intervals. A higher concurrency checks the pending
// jobs of a pass through a bounded worker pool and sleeps once per pass,
// except after the pass that finishes the plan.
//
// Loops are unbounded unless Policy.Timeout or Policy.MaxPolls is set.
// Waiting goes through the Clock interface so tests never sleep.
//
// # Outcomes
//
// Business failures (a terminal job with outcome FAIL or ERROR) are not
// errors: they are collected into Result.Failures, every one of them is
// reported, and the Verdict becomes VerdictFailure. Goal information is
// only fetched to build the execution link of a failed job. Errors returned
// by Run are infrastructure failures (exhausted transport retries, missing
// job ids, poll limits) that abort the run.
package orchestrator
