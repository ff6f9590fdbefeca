package model

import "time"

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Category groups tasks on the dashboard.
type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryWork, CategoryPersonal, CategoryStudy:
		return true
	}
	return false
}

// Task mirrors a row of the `tasks` table.  UserID is the owner; a
// task is only ever visible to the user that created it.
type Task struct {
	ID          uint64    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Priority    Priority  `db:"priority" json:"priority"`
	Category    Category  `db:"category" json:"category"`
	Completed   bool      `db:"completed" json:"completed"`
	UserID      uint64    `db:"user_id" json:"user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TaskInput carries the fields accepted when a task is created.
type TaskInput struct {
	Title       string
	Description string
	Priority    Priority
	Category    Category
	Completed   bool
}

// WithDefaults fills in the declared defaults for omitted enum fields.
func (in TaskInput) WithDefaults() TaskInput {
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Category == "" {
		in.Category = CategoryGeneral
	}
	return in
}

// TaskPatch describes a partial update.  Nil fields are left untouched.
type TaskPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *Priority `json:"priority"`
	Category    *Category `json:"category"`
	Completed   *bool     `json:"completed"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Category == nil && p.Completed == nil
}

// TaskFilter narrows a task listing.  Zero values mean "no filter".
type TaskFilter struct {
	Category  Category
	Priority  Priority
	Completed *bool
	Search    string
}

// TaskStats summarizes the owner's tasks for the dashboard counters.
type TaskStats struct {
	Total     int `db:"total" json:"total"`
	Completed int `db:"completed" json:"completed"`
	Pending   int `db:"-" json:"pending"`
}
