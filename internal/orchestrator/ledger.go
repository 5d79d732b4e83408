package orchestrator

import (
	"sort"
	"strconv"
	"sync"

	"virtuoso-ci/internal/api"
)

// LedgerEntry is the final state of one terminal job.
type LedgerEntry struct {
	JobID     api.JobID
	Outcome   string
	GoalID    int64
	HasGoalID bool
}

// Failed reports whether the recorded outcome is a failing one.
func (e LedgerEntry) Failed() bool {
	return api.IsFailedOutcome(e.Outcome)
}

// JobLedger records the jobs of a plan that have been observed terminal.
// A job is in the ledger if and only if it was seen terminal; the first
// record of a job wins. It is safe for concurrent use.
type JobLedger struct {
	mu      sync.RWMutex
	entries map[api.JobID]LedgerEntry
}

// NewJobLedger creates an empty ledger.
func NewJobLedger() *JobLedger {
	return &JobLedger{entries: make(map[api.JobID]LedgerEntry)}
}

// Record stores the terminal state of a job. It returns false, leaving the
// ledger untouched, when the job was already recorded.
func (l *JobLedger) Record(entry LedgerEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.entries[entry.JobID]; exists {
		return false
	}
	l.entries[entry.JobID] = entry
	return true
}

// Has reports whether jobID has been recorded.
func (l *JobLedger) Has(jobID api.JobID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[jobID]
	return ok
}

// Len returns the number of recorded jobs.
func (l *JobLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Pending returns the ids of requested that are not recorded yet, in order.
func (l *JobLedger) Pending(requested []api.JobID) []api.JobID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var pending []api.JobID
	for _, id := range requested {
		if _, ok := l.entries[id]; !ok {
			pending = append(pending, id)
		}
	}
	return pending
}

// Complete reports whether the recorded ids are exactly the set of requested ids.
// Order and duplicates in requested do not matter.
func (l *JobLedger) Complete(requested []api.JobID) bool {
	want := make(map[api.JobID]struct{}, len(requested))
	for _, id := range requested {
		want[id] = struct{}{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(want) != len(l.entries) {
		return false
	}
	for id := range want {
		if _, ok := l.entries[id]; !ok {
			return false
		}
	}
	return true
}

// Entries returns every recorded entry ordered by job id.
func (l *JobLedger) Entries() []LedgerEntry {
	l.mu.RLock()
	entries := make([]LedgerEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, entry)
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return lessJobID(entries[i].JobID, entries[j].JobID)
	})
	return entries
}

// Failed returns the entries with a failing outcome ordered by job id.
func (l *JobLedger) Failed() []LedgerEntry {
	var failed []LedgerEntry
	for _, entry := range l.Entries() {
		if entry.Failed() {
			failed = append(failed, entry)
		}
	}
	return failed
}

// lessJobID orders numeric ids numerically and everything else lexically.
func lessJobID(a, b api.JobID) bool {
	na, errA := strconv.ParseInt(string(a), 10, 64)
	nb, errB := strconv.ParseInt(string(b), 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
