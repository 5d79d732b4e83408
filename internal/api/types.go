package api

import (
	"encoding/json"
	"strconv"
)

// Body is a decoded JSON object as returned by the service.
type Body map[string]any

// JobID identifies one execution job. The service returns ids as JSON
// numbers or as object keys; both are kept as their decimal text.
type JobID string

// Job statuses after which a job no longer progresses.
const (
	StatusFinished = "FINISHED"
	StatusCanceled = "CANCELED"
	StatusFailed   = "FAILED"
)

// Outcomes that mark a terminal job as failed.
const (
	OutcomeFail  = "FAIL"
	OutcomeError = "ERROR"
)

// TerminalStatuses is the set of statuses that end polling for a job.
var TerminalStatuses = map[string]bool{
	StatusFinished: true,
	StatusCanceled: true,
	StatusFailed:   true,
}

// FailedOutcomes is the set of outcomes that make a terminal job count as failed.
var FailedOutcomes = map[string]bool{
	OutcomeFail:  true,
	OutcomeError: true,
}

// JobStatus is the state of one job as returned by the status endpoint.
type JobStatus struct {
	Status    string
	Outcome   string // empty when the service sent none
	GoalID    int64
	HasGoalID bool
}

// Terminal reports whether the job has stopped progressing.
func (s JobStatus) Terminal() bool {
	return IsTerminalStatus(s.Status)
}

// Failed reports whether the job is terminal with a failing outcome.
// A terminal job without an outcome (e.g. CANCELED) is not failed.
func (s JobStatus) Failed() bool {
	return s.Terminal() && IsFailedOutcome(s.Outcome)
}

// IsTerminalStatus reports whether status is in TerminalStatuses.
func IsTerminalStatus(status string) bool {
	return TerminalStatuses[status]
}

// IsFailedOutcome reports whether outcome is in FailedOutcomes.
func IsFailedOutcome(outcome string) bool {
	return FailedOutcomes[outcome]
}

// GoalInfo holds the goal fields needed to link to an execution in the UI.
type GoalInfo struct {
	ProjectID string
}

// idString renders an identifier field. Absent, null and empty values report false.
func idString(v any) (string, bool) {
	switch id := v.(type) {
	case json.Number:
		return id.String(), id.String() != ""
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	default:
		return "", false
	}
}

// int64Field reads an integer field, accepting numbers and numeric strings.
func int64Field(body Body, key string) (int64, bool) {
	s, ok := idString(body[key])
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func stringField(body Body, key string) string {
	s, _ := body[key].(string)
	return s
}
