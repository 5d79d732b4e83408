package api

import (
	"context"
	"fmt"
	"net/url"
	"sort"
)

// GoalURL returns the goal resource URL.
func (c *Client) GoalURL(goalID int64) string {
	return fmt.Sprintf("%s/goals/%d?envelope=false", c.baseURL, goalID)
}

// JobStatusURL returns the status URL of one job.
func (c *Client) JobStatusURL(jobID JobID) string {
	return fmt.Sprintf("%s/executions/%s/status?envelope=false", c.baseURL, url.PathEscape(string(jobID)))
}

// ExecuteGoalURL returns the trigger URL for a goal.
func (c *Client) ExecuteGoalURL(goalID int64) string {
	return fmt.Sprintf("%s/goals/%d/execute?envelope=false", c.baseURL, goalID)
}

// ExecuteSnapshotURL returns the trigger URL for a goal snapshot.
func (c *Client) ExecuteSnapshotURL(goalID, snapshotID int64) string {
	return fmt.Sprintf("%s/goals/%d/snapshots/%d/execute?envelope=false", c.baseURL, goalID, snapshotID)
}

// ExecutePlanURL returns the trigger URL for a plan.
func (c *Client) ExecutePlanURL(planID int64) string {
	return fmt.Sprintf("%s/plans/executions/%d/execute?envelope=false", c.baseURL, planID)
}

// FetchJob fetches the current status of one job. It performs exactly one
// transport call; polling cadence belongs to the caller.
func (c *Client) FetchJob(ctx context.Context, jobID JobID) (JobStatus, error) {
	body, err := c.Get(ctx, c.JobStatusURL(jobID))
	if err != nil {
		return JobStatus{}, err
	}
	status := JobStatus{
		Status:  stringField(body, "status"),
		Outcome: stringField(body, "outcome"),
	}
	status.GoalID, status.HasGoalID = int64Field(body, "goalId")
	return status, nil
}

// GoalInfo fetches the goal fields used to build execution links.
func (c *Client) GoalInfo(ctx context.Context, goalID int64) (GoalInfo, error) {
	body, err := c.Get(ctx, c.GoalURL(goalID))
	if err != nil {
		return GoalInfo{}, err
	}
	projectID, _ := idString(body["projectId"])
	return GoalInfo{ProjectID: projectID}, nil
}

// ExecuteGoal triggers a goal execution and returns the job id.
func (c *Client) ExecuteGoal(ctx context.Context, goalID int64) (JobID, error) {
	body, err := c.Post(ctx, c.ExecuteGoalURL(goalID), nil)
	if err != nil {
		return "", err
	}
	return jobIDFrom(body, fmt.Sprintf("goal %d", goalID))
}

// ExecuteSnapshot triggers the execution of a goal snapshot and returns the job id.
func (c *Client) ExecuteSnapshot(ctx context.Context, goalID, snapshotID int64) (JobID, error) {
	body, err := c.Post(ctx, c.ExecuteSnapshotURL(goalID, snapshotID), nil)
	if err != nil {
		return "", err
	}
	return jobIDFrom(body, fmt.Sprintf("snapshot %d of goal %d", snapshotID, goalID))
}

// ExecutePlan triggers a plan execution and returns the ids of every job it
// started. The service may list the jobs as an array of ids or as an object
// keyed by job id. An empty collection is returned as an empty, non-nil slice.
func (c *Client) ExecutePlan(ctx context.Context, planID int64) ([]JobID, error) {
	body, err := c.Put(ctx, c.ExecutePlanURL(planID), nil)
	if err != nil {
		return nil, err
	}

	raw, ok := body["jobs"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("plan %d: %w", planID, ErrMissingJobID)
	}

	var candidates []any
	switch jobs := raw.(type) {
	case []any:
		candidates = jobs
	case map[string]any:
		keys := make([]string, 0, len(jobs))
		for key := range jobs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			candidates = append(candidates, key)
		}
	default:
		return nil, fmt.Errorf("plan %d: jobs field has unexpected type %T: %w", planID, raw, ErrMissingJobID)
	}

	ids := make([]JobID, 0, len(candidates))
	seen := make(map[JobID]bool, len(candidates))
	for _, candidate := range candidates {
		id, ok := idString(candidate)
		if !ok {
			return nil, fmt.Errorf("plan %d: invalid job id %v: %w", planID, candidate, ErrMissingJobID)
		}
		if seen[JobID(id)] {
			continue
		}
		seen[JobID(id)] = true
		ids = append(ids, JobID(id))
	}
	return ids, nil
}

func jobIDFrom(body Body, what string) (JobID, error) {
	id, ok := idString(body["id"])
	if !ok {
		return "", fmt.Errorf("%s: %w", what, ErrMissingJobID)
	}
	return JobID(id), nil
}
