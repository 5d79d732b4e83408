package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"virtuoso-ci/internal/api"
	"virtuoso-ci/internal/orchestrator"
	"virtuoso-ci/pkg/logging"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleReporter writes run progress as plain CI log lines.
// It is safe for concurrent use.
type ConsoleReporter struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
}

// NewConsoleReporter creates a reporter writing to out. A nil out writes to stdout.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{
		out:    out,
		styles: newStyles(out),
	}
}

func (c *ConsoleReporter) println(style lipgloss.Style, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	logging.Debug("Reporter", "%s", line)

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, style.Render(line))
}

// ExecutionStarted announces the execution of target.
func (c *ConsoleReporter) ExecutionStarted(target orchestrator.Target) {
	switch t := target.(type) {
	case orchestrator.GoalTarget:
		c.println(c.styles.plain, "Starting Virtuoso execution of goal with id %d", t.GoalID)
	case orchestrator.SnapshotTarget:
		c.println(c.styles.plain, "Starting Virtuoso execution of snapshot with id %d in goal with id %d", t.SnapshotID, t.GoalID)
	case orchestrator.PlanTarget:
		c.println(c.styles.plain, "Starting Virtuoso execution of plan with id %d", t.PlanID)
	default:
		c.println(c.styles.plain, "Starting Virtuoso execution of %s", target)
	}
}

func (c *ConsoleReporter) WaitingForJob(_ orchestrator.Target, jobID api.JobID) {
	logging.Debug("Reporter", "Waiting for job %s", jobID)
	c.println(c.styles.muted, "Waiting for job to complete")
}

func (c *ConsoleReporter) JobRunning(_ orchestrator.Target, _ api.JobID, status string) {
	c.println(c.styles.running, "Virtuoso job is running with status: %s", status)
}

func (c *ConsoleReporter) PlanRunning(plan orchestrator.PlanTarget, finished, total int) {
	c.println(c.styles.running, "Virtuoso plan with id %d is running (%d/%d jobs finished)", plan.PlanID, finished, total)
}

func (c *ConsoleReporter) PlanFinished(_ orchestrator.PlanTarget) {
	c.println(c.styles.plain, "Plan execution finished, checking all the jobs")
}

// JobFailed prints the diagnostic of one failed job followed by its
// execution link when one is known.
func (c *ConsoleReporter) JobFailed(target orchestrator.Target, failure orchestrator.Failure) {
	switch t := target.(type) {
	case orchestrator.GoalTarget:
		c.println(c.styles.failure, "Virtuoso job of goal with id %d failed with outcome: %s", t.GoalID, failure.Outcome)
	case orchestrator.SnapshotTarget:
		c.println(c.styles.failure, "Virtuoso job for snapshot with id %d in goal with id %d failed with outcome: %s", t.SnapshotID, t.GoalID, failure.Outcome)
	default:
		c.println(c.styles.failure, "At least 1 journey of your Virtuoso plan failed")
	}

	if failure.ExecutionURL == "" {
		c.println(c.styles.muted, "Virtuoso job %s failed with outcome %s, no execution link available", failure.JobID, failure.Outcome)
		return
	}
	c.println(c.styles.link, "Check the Virtuoso Execution for more details in %s", failure.ExecutionURL)
}

// ExecutionSucceeded announces that every job of target passed.
func (c *ConsoleReporter) ExecutionSucceeded(target orchestrator.Target) {
	switch t := target.(type) {
	case orchestrator.GoalTarget:
		c.println(c.styles.success, "Virtuoso execution for goal %d succeeded", t.GoalID)
	case orchestrator.SnapshotTarget:
		c.println(c.styles.success, "Virtuoso execution for snapshot with id %d in goal with id %d succeeded", t.SnapshotID, t.GoalID)
	case orchestrator.PlanTarget:
		c.println(c.styles.success, "Virtuoso execution for plan with id %d succeeded", t.PlanID)
	default:
		c.println(c.styles.success, "Virtuoso execution for %s succeeded", target)
	}
}

// Aborted prints the line explaining why a run stopped early.
func (c *ConsoleReporter) Aborted(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, api.ErrMissingJobID):
		c.println(c.styles.failure, "Error getting jobId from Virtuoso")
	case errors.Is(err, orchestrator.ErrPollTimeout), errors.Is(err, orchestrator.ErrPollLimit):
		// A bound of the run was hit, possibly in the middle of a request
		c.println(c.styles.failure, "%v", err)
	case api.IsTransportError(err):
		c.println(c.styles.failure, "Failed to make request to Virtuoso")
	default:
		c.println(c.styles.failure, "%v", err)
	}
}
