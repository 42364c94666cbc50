package domain

import "time"

// ChangeOperation describes one published board mutation.
type ChangeOperation string

// ChangeOperation values emitted by the task store.
const (
	ChangeOperationCreate  ChangeOperation = "create"
	ChangeOperationUpdate  ChangeOperation = "update"
	ChangeOperationMove    ChangeOperation = "move"
	ChangeOperationDelete  ChangeOperation = "delete"
	ChangeOperationRestore ChangeOperation = "restore"
)

// ChangeEvent records a mutation after the new board state is visible.
// FromLane is empty for creates; ToLane is empty for deletes.
type ChangeEvent struct {
	Operation  ChangeOperation
	TaskID     string
	Title      string
	FromLane   LaneID
	ToLane     LaneID
	OccurredAt time.Time
}
