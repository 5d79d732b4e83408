// Package api is the client side of the Virtuoso REST API used by virtuoso-ci.
//
// It has two layers:
//
//  1. Transport (Client.Get, Client.Post, Client.Put) performs one
//     authenticated call and returns the decoded JSON object. Every call
//     carries "Authorization: Bearer <token>" and is retried with
//     exponential backoff while the service answers with a status between
//     401 and 599 inclusive, up to the configured number of attempts
//     (5 by default). Retries always repeat the original method.
//
//  2. Endpoints (FetchJob, GoalInfo, ExecuteGoal, ExecuteSnapshot,
//     ExecutePlan) build the service URLs (always with envelope=false) and
//     extract the fields the orchestrators need.
//
// Nothing in this package terminates the process. An exhausted retry budget
// surfaces as *TransportError, a body that is not a JSON object as
// *DecodeError, and a trigger response without a job identifier as
// ErrMissingJobID; the caller decides the exit code.
//
// The status vocabulary shared by every orchestrator also lives here:
// TerminalStatuses lists the statuses after which a job no longer changes
// and FailedOutcomes the outcomes that make a terminal job count as failed.
package api
