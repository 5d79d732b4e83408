package testing

// JobState is one scripted answer of the job status endpoint.
type JobState struct {
	Status  string
	Outcome string // omitted from the response when empty
	GoalID  int64  // omitted from the response when zero
}

// Call records one request received by the fake service.
type Call struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Status        int
}

// Running returns a non-terminal job state.
func Running() JobState {
	return JobState{Status: "RUNNING"}
}

// Finished returns a FINISHED job state with the given outcome.
func Finished(outcome string, goalID int64) JobState {
	return JobState{Status: "FINISHED", Outcome: outcome, GoalID: goalID}
}
