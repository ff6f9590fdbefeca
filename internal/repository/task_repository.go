package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/task-manager/internal/model"
)

// taskColumns are selected for every task read.  NULL descriptions are
// returned as empty strings.
var taskColumns = []string{
	"id", "title", "COALESCE(description, '') AS description", "priority",
	"category", "completed", "user_id", "created_at",
}

// TaskRepo encapsulates all database queries related to tasks.  The
// owner id is a required argument of every method and is always part of
// the WHERE clause.
type TaskRepo struct {
	db *sqlx.DB
}

// NewTaskRepo constructs a TaskRepo with the provided DB handle.
func NewTaskRepo(db *sqlx.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func selectTasks() sq.SelectBuilder {
	return sq.Select(taskColumns...).From("tasks")
}

// ListByOwner returns the owner's tasks, newest first, narrowed by f.
// The result is never nil.
func (r *TaskRepo) ListByOwner(ctx context.Context, userID uint64, f model.TaskFilter) ([]model.Task, error) {
	q := selectTasks().Where(sq.Eq{"user_id": userID})
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Priority != "" {
		q = q.Where(sq.Eq{"priority": f.Priority})
	}
	if f.Completed != nil {
		q = q.Where(sq.Eq{"completed": *f.Completed})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		q = q.Where(sq.Or{sq.Like{"title": pattern}, sq.Like{"description": pattern}})
	}
	query, args, err := q.OrderBy("created_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task list query: %w", err)
	}

	tasks := []model.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetByIDAndOwner fetches a single task.  ErrTaskNotFound is returned when
// the task does not exist or belongs to another user.
func (r *TaskRepo) GetByIDAndOwner(ctx context.Context, userID, taskID uint64) (model.Task, error) {
	query, args, err := selectTasks().
		Where(sq.Eq{"id": taskID, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Task{}, fmt.Errorf("build task query: %w", err)
	}
	var t model.Task
	if err := r.db.GetContext(ctx, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrTaskNotFound
		}
		return model.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// Create inserts a task owned by userID, applying defaults for omitted
// fields, and returns the stored row.
func (r *TaskRepo) Create(ctx context.Context, userID uint64, in model.TaskInput) (model.Task, error) {
	in = in.WithDefaults()
	query, args, err := sq.Insert("tasks").
		Columns("title", "description", "priority", "category", "completed", "user_id").
		Values(in.Title, in.Description, in.Priority, in.Category, in.Completed, userID).
		ToSql()
	if err != nil {
		return model.Task{}, fmt.Errorf("build task insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	// Read back only after the insert has completed so created_at and the
	// column defaults come from the database.
	return r.GetByIDAndOwner(ctx, userID, uint64(id))
}

// Update applies the non-nil fields of p to the task and returns the
// updated row.  An empty patch just returns the current row.
func (r *TaskRepo) Update(ctx context.Context, userID, taskID uint64, p model.TaskPatch) (model.Task, error) {
	if p.Empty() {
		return r.GetByIDAndOwner(ctx, userID, taskID)
	}
	u := sq.Update("tasks")
	if p.Title != nil {
		u = u.Set("title", *p.Title)
	}
	if p.Description != nil {
		u = u.Set("description", *p.Description)
	}
	if p.Priority != nil {
		u = u.Set("priority", *p.Priority)
	}
	if p.Category != nil {
		u = u.Set("category", *p.Category)
	}
	if p.Completed != nil {
		u = u.Set("completed", *p.Completed)
	}
	query, args, err := u.Where(sq.Eq{"id": taskID, "user_id": userID}).ToSql()
	if err != nil {
		return model.Task{}, fmt.Errorf("build task update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	} else if n == 0 {
		return model.Task{}, ErrTaskNotFound
	}
	return r.GetByIDAndOwner(ctx, userID, taskID)
}

// Delete removes the task if it belongs to userID.
func (r *TaskRepo) Delete(ctx context.Context, userID, taskID uint64) error {
	query, args, err := sq.Delete("tasks").
		Where(sq.Eq{"id": taskID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build task delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Stats counts the owner's tasks.
func (r *TaskRepo) Stats(ctx context.Context, userID uint64) (model.TaskStats, error) {
	query, args, err := sq.Select("COUNT(*) AS total", "COALESCE(SUM(completed), 0) AS completed").
		From("tasks").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return model.TaskStats{}, fmt.Errorf("build task stats query: %w", err)
	}
	var s model.TaskStats
	if err := r.db.GetContext(ctx, &s, query, args...); err != nil {
		return model.TaskStats{}, fmt.Errorf("task stats: %w", err)
	}
	s.Pending = s.Total - s.Completed
	return s, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
