package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"virtuoso-ci/internal/config"
	"virtuoso-ci/internal/orchestrator"
	"virtuoso-ci/internal/reporting"
	vtest "virtuoso-ci/internal/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "ci-token"

// writeTestConfig points the "fake" environment at svc with tight polling.
func writeTestConfig(t *testing.T, svc *vtest.Service) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
environments:
  fake:
    api: %q
    ui: "https://ui.test"
polling:
  jobInterval: 1ms
  planJobInterval: 1ms
  maxPolls: 50
retry:
  backoffFactor: 1ms
  backoffMax: 5ms
`, svc.URL())
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type runOutput struct {
	lines    []string
	exitCode int
	err      error
}

func runApp(t *testing.T, svc *vtest.Service, mutate func(c *Config)) runOutput {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cfg := NewConfig(testToken, "fake", false)
	cfg.ConfigPath = writeTestConfig(t, svc)
	cfg.Stdout = &stdout
	cfg.Stderr = &stderr
	mutate(cfg)

	application, err := NewApplication(cfg)
	require.NoError(t, err)

	result, err := application.Run(context.Background())
	return runOutput{
		lines:    strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n"),
		exitCode: reporting.ExitCode(result, err),
		err:      err,
	}
}

func TestRun_GoalSuccess(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()
	svc.OnExecuteGoal(42, map[string]any{"id": 1001})
	svc.ScriptJob("1001", vtest.Running(), vtest.Running(), vtest.Finished("PASS", 42))

	out := runApp(t, svc, func(c *Config) { c.GoalID, c.HasGoalID = 42, true })

	require.NoError(t, out.err)
	assert.Equal(t, 0, out.exitCode)
	assert.Equal(t, []string{
		"Starting Virtuoso execution of goal with id 42",
		"Waiting for job to complete",
		"Virtuoso job is running with status: RUNNING",
		"Virtuoso job is running with status: RUNNING",
		"Virtuoso execution for goal 42 succeeded",
	}, out.lines)
	assert.Equal(t, 3, svc.Polls("1001"))
	assert.Zero(t, svc.CountCalls(http.MethodGet, "/goals/"), "goal info is only fetched for failures")

	for _, call := range svc.Calls() {
		assert.Equal(t, "Bearer "+testToken, call.Authorization)
		assert.Equal(t, "envelope=false", call.Query)
	}
}

func TestRun_SnapshotFailure(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()
	svc.OnExecuteSnapshot(42, 7, map[string]any{"id": 2002})
	svc.ScriptJob("2002", vtest.Finished("FAIL", 42))
	svc.SetGoalProject(42, 77)

	out := runApp(t, svc, func(c *Config) {
		c.GoalID, c.HasGoalID = 42, true
		c.SnapshotID, c.HasSnapshotID = 7, true
	})

	require.NoError(t, out.err)
	assert.Equal(t, 2, out.exitCode)
	assert.Equal(t, []string{
		"Starting Virtuoso execution of snapshot with id 7 in goal with id 42",
		"Waiting for job to complete",
		"Virtuoso job for snapshot with id 7 in goal with id 42 failed with outcome: FAIL",
		"Check the Virtuoso Execution for more details in https://ui.test/#/project/77/execution/2002",
	}, out.lines)
}

func TestRun_PlanWithFailedJourney(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()
	svc.OnExecutePlan(9, map[string]any{"jobs": map[string]any{
		"1": map[string]any{"goalId": 10},
		"2": map[string]any{"goalId": 11},
	}})
	svc.ScriptJob("1", vtest.Finished("PASS", 10))
	svc.ScriptJob("2", vtest.Running(), vtest.Finished("ERROR", 11))
	svc.SetGoalProject(11, "p-11")

	out := runApp(t, svc, func(c *Config) { c.PlanID, c.HasPlanID = 9, true })

	require.NoError(t, out.err)
	assert.Equal(t, 2, out.exitCode)
	assert.Equal(t, []string{
		"Starting Virtuoso execution of plan with id 9",
		"Virtuoso plan with id 9 is running (1/2 jobs finished)",
		"Plan execution finished, checking all the jobs",
		"At least 1 journey of your Virtuoso plan failed",
		"Check the Virtuoso Execution for more details in https://ui.test/#/project/p-11/execution/2",
	}, out.lines)
	assert.Equal(t, 1, svc.Polls("1"), "finished jobs are not polled again")
	assert.Equal(t, 1, svc.CountCalls(http.MethodGet, "/goals/11"))
}

func TestRun_PlanConcurrentSuccess(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()
	svc.OnExecutePlan(3, map[string]any{"jobs": []any{1, 2, 3, 4}})
	for i := 1; i <= 4; i++ {
		svc.ScriptJob(fmt.Sprint(i), vtest.Running(), vtest.Finished("PASS", int64(i)))
	}

	out := runApp(t, svc, func(c *Config) {
		c.PlanID, c.HasPlanID = 3, true
		c.PollConcurrency = 4
	})

	require.NoError(t, out.err)
	assert.Equal(t, 0, out.exitCode)
	assert.Equal(t, "Virtuoso execution for plan with id 3 succeeded", out.lines[len(out.lines)-1])
	for i := 1; i <= 4; i++ {
		assert.Equal(t, 2, svc.Polls(fmt.Sprint(i)))
	}
}

func TestRun_TransportFailure(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()
	svc.OnExecuteGoal(42, map[string]any{"id": 1001})
	svc.FailNext(503, 503, 503, 503, 503)

	out := runApp(t, svc, func(c *Config) { c.GoalID, c.HasGoalID = 42, true })

	require.Error(t, out.err)
	assert.Equal(t, 1, out.exitCode)
	assert.Equal(t, []string{
		"Starting Virtuoso execution of goal with id 42",
		"Failed to make request to Virtuoso",
	}, out.lines)
	assert.Equal(t, 5, svc.CountCalls(http.MethodPost, "/goals/42/execute"))
}

func TestRun_MissingJobID(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()
	svc.OnExecuteGoal(42, map[string]any{"status": "QUEUED"})

	out := runApp(t, svc, func(c *Config) { c.GoalID, c.HasGoalID = 42, true })

	require.Error(t, out.err)
	assert.Equal(t, 1, out.exitCode)
	assert.Equal(t, "Error getting jobId from Virtuoso", out.lines[len(out.lines)-1])
	assert.Zero(t, svc.CountCalls(http.MethodGet, "/executions/"))
}

func TestRun_PollLimit(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()
	svc.OnExecuteGoal(42, map[string]any{"id": 5})
	svc.ScriptJob("5", vtest.Running())

	out := runApp(t, svc, func(c *Config) { c.GoalID, c.HasGoalID = 42, true })

	assert.ErrorIs(t, out.err, orchestrator.ErrPollLimit)
	assert.Equal(t, 1, out.exitCode)
	assert.Contains(t, out.lines[len(out.lines)-1], "poll limit reached before jobs finished")
	assert.Equal(t, 50, svc.Polls("5"))
}

func TestNewApplication_Errors(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()

	t.Run("unknown environment", func(t *testing.T) {
		cfg := NewConfig(testToken, "qa", false)
		cfg.ConfigPath = writeTestConfig(t, svc)
		cfg.Stderr = &bytes.Buffer{}
		cfg.GoalID, cfg.HasGoalID = 1, true

		_, err := NewApplication(cfg)
		assert.ErrorIs(t, err, config.ErrUnknownEnvironment)
	})

	t.Run("missing config file", func(t *testing.T) {
		cfg := NewConfig(testToken, "fake", false)
		cfg.ConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
		cfg.Stderr = &bytes.Buffer{}
		cfg.GoalID, cfg.HasGoalID = 1, true

		_, err := NewApplication(cfg)
		assert.Error(t, err)
	})

	t.Run("no target", func(t *testing.T) {
		cfg := NewConfig(testToken, "fake", false)
		cfg.Stderr = &bytes.Buffer{}

		_, err := NewApplication(cfg)
		assert.ErrorIs(t, err, ErrNoTarget)
	})
}

func TestNewApplication_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	var stderr bytes.Buffer
	cfg := NewConfig(testToken, "", true)
	cfg.Stderr = &stderr
	cfg.PlanID, cfg.HasPlanID = 4, true

	application, err := NewApplication(cfg)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultEnvironment, cfg.Environment)
	assert.Equal(t, orchestrator.PlanTarget{PlanID: 4}, application.Target())
	assert.Contains(t, stderr.String(), "Using environment production (api https://api.virtuoso.qa/api, ui https://app.virtuoso.qa)")
	assert.Contains(t, stderr.String(), "run=", "debug logs carry the run id")
}

func TestRun_PlanPassesOnFirstScan(t *testing.T) {
	svc := vtest.NewService(testToken)
	defer svc.Close()
	svc.OnExecutePlan(7, map[string]any{"jobs": []any{100, 101}})
	svc.ScriptJob("100", vtest.Finished("PASS", 1))
	svc.ScriptJob("101", vtest.Finished("PASS", 2))

	out := runApp(t, svc, func(c *Config) { c.PlanID, c.HasPlanID = 7, true })

	require.NoError(t, out.err)
	assert.Equal(t, 0, out.exitCode)
	assert.Equal(t, []string{
		"Starting Virtuoso execution of plan with id 7",
		"Plan execution finished, checking all the jobs",
		"Virtuoso execution for plan with id 7 succeeded",
	}, out.lines)
	assert.Equal(t, 1, svc.Polls("100"))
	assert.Equal(t, 1, svc.Polls("101"))
	assert.Zero(t, svc.CountCalls(http.MethodGet, "/goals/"))
}
