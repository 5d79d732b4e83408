package orchestrator

import "fmt"

// Target is the execution requested by one run. It is one of GoalTarget,
// SnapshotTarget or PlanTarget.
type Target interface {
	fmt.Stringer
	isTarget()
}

// GoalTarget executes the current state of a goal.
type GoalTarget struct {
	GoalID int64
}

// SnapshotTarget executes a snapshot of a goal.
type SnapshotTarget struct {
	GoalID     int64
	SnapshotID int64
}

// PlanTarget executes every goal of a plan.
type PlanTarget struct {
	PlanID int64
}

func (GoalTarget) isTarget()     {}
func (SnapshotTarget) isTarget() {}
func (PlanTarget) isTarget()     {}

func (t GoalTarget) String() string {
	return fmt.Sprintf("goal %d", t.GoalID)
}

func (t SnapshotTarget) String() string {
	return fmt.Sprintf("snapshot %d of goal %d", t.SnapshotID, t.GoalID)
}

func (t PlanTarget) String() string {
	return fmt.Sprintf("plan %d", t.PlanID)
}
