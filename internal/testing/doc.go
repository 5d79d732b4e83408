// Package testing provides a scriptable fake of the Virtuoso REST API for
// tests of every layer of virtuoso-ci.
//
// The fake runs on an httptest server and routes requests with chi exactly
// like the real service paths:
//
//	GET  /api/goals/{goalID}
//	GET  /api/executions/{jobID}/status
//	POST /api/goals/{goalID}/execute
//	POST /api/goals/{goalID}/snapshots/{snapshotID}/execute
//	PUT  /api/plans/executions/{planID}/execute
//
// Tests script the service up front (trigger responses, a sequence of job
// states per job, goal projects, injected failures) and inspect the recorded
// calls afterwards. A job's last scripted state repeats forever, so a job
// scripted with a terminal state stays terminal on every later poll.
package testing
