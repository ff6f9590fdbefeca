// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import "time"

// Task event types.
const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

// TaskEvent is published after a task mutation succeeds.  It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type TaskEvent struct {
	Type       string    `json:"type"`
	TaskID     uint64    `json:"task_id"`
	UserID     uint64    `json:"user_id"`
	Title      string    `json:"title,omitempty"`
	Completed  bool      `json:"completed"`
	OccurredAt time.Time `json:"occurred_at"`
}
