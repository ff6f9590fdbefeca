package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/queue"
	"github.com/iliyamo/task-manager/internal/repository"
)

// EventPublisher hands task events to the broker.  Publish is called on
// the request path and must not block on the network.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.TaskEvent) error
}

// CacheInvalidator drops a user's cached task reads.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID uint64) error
}

// TaskHandler serves the /api/tasks routes.  Every method assumes JWTAuth
// already ran; all storage calls are scoped to the authenticated user.
type TaskHandler struct {
	Tasks  *repository.TaskRepo
	Cache  CacheInvalidator // optional
	Events EventPublisher   // optional
}

func NewTaskHandler(tasks *repository.TaskRepo, cache CacheInvalidator, events EventPublisher) *TaskHandler {
	if tasks == nil {
		panic("nil repository passed to NewTaskHandler")
	}
	return &TaskHandler{Tasks: tasks, Cache: cache, Events: events}
}

type createTaskReq struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    model.Priority `json:"priority"`
	Category    model.Category `json:"category"`
}

var errTaskNotFound = echo.Map{"error": "Task not found"}

// List handles GET /api/tasks.  Optional query parameters: category,
// priority ("all" or empty means any), completed (true|false) and q, a
// substring matched against title and description.
func (h *TaskHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
	}
	filter, msg := parseFilter(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	tasks, err := h.Tasks.ListByOwner(ctx, uid, filter)
	if err != nil {
		return serverError(c, "task_list_failed", err, "user_id", uid)
	}
	return c.JSON(http.StatusOK, tasks)
}

func parseFilter(c echo.Context) (model.TaskFilter, string) {
	var f model.TaskFilter
	if v := strings.ToLower(strings.TrimSpace(c.QueryParam("category"))); v != "" && v != "all" {
		if f.Category = model.Category(v); !f.Category.Valid() {
			return f, "invalid category"
		}
	}
	if v := strings.ToLower(strings.TrimSpace(c.QueryParam("priority"))); v != "" && v != "all" {
		if f.Priority = model.Priority(v); !f.Priority.Valid() {
			return f, "invalid priority"
		}
	}
	if v := strings.TrimSpace(c.QueryParam("completed")); v != "" {
		done, err := strconv.ParseBool(v)
		if err != nil {
			return f, "invalid completed flag"
		}
		f.Completed = &done
	}
	f.Search = strings.TrimSpace(c.QueryParam("q"))
	return f, ""
}

// Stats handles GET /api/tasks/stats.
func (h *TaskHandler) Stats(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.Tasks.Stats(ctx, uid)
	if err != nil {
		return serverError(c, "task_stats_failed", err, "user_id", uid)
	}
	return c.JSON(http.StatusOK, stats)
}

// Get handles GET /api/tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
	}
	id, ok := taskID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, errTaskNotFound)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	task, err := h.Tasks.GetByIDAndOwner(ctx, uid, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, errTaskNotFound)
		}
		return serverError(c, "task_get_failed", err, "user_id", uid, "task_id", id)
	}
	return c.JSON(http.StatusOK, task)
}

// Create handles POST /api/tasks.  The requester becomes the owner.
func (h *TaskHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
	}
	var req createTaskReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	in := model.TaskInput{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Priority:    req.Priority,
		Category:    req.Category,
	}.WithDefaults()
	if in.Title == "" {
		return badRequest(c, "title is required")
	}
	if !in.Priority.Valid() {
		return badRequest(c, "invalid priority")
	}
	if !in.Category.Valid() {
		return badRequest(c, "invalid category")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	task, err := h.Tasks.Create(ctx, uid, in)
	if err != nil {
		return serverError(c, "task_create_failed", err, "user_id", uid)
	}
	h.afterMutation(ctx, queue.TaskCreated, task)
	return c.JSON(http.StatusCreated, task)
}

// Update handles PUT /api/tasks/:id.  Only the fields present in the body
// are changed.
func (h *TaskHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
	}
	id, ok := taskID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, errTaskNotFound)
	}
	var patch model.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := normalizePatch(&patch); msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	task, err := h.Tasks.Update(ctx, uid, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, errTaskNotFound)
		}
		return serverError(c, "task_update_failed", err, "user_id", uid, "task_id", id)
	}
	if !patch.Empty() {
		h.afterMutation(ctx, queue.TaskUpdated, task)
	}
	return c.JSON(http.StatusOK, task)
}

func normalizePatch(p *model.TaskPatch) string {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return "title cannot be empty"
		}
		p.Title = &t
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		p.Description = &d
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return "invalid priority"
	}
	if p.Category != nil && !p.Category.Valid() {
		return "invalid category"
	}
	return ""
}

// Delete handles DELETE /api/tasks/:id.
func (h *TaskHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
	}
	id, ok := taskID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, errTaskNotFound)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Tasks.Delete(ctx, uid, id); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, errTaskNotFound)
		}
		return serverError(c, "task_delete_failed", err, "user_id", uid, "task_id", id)
	}
	h.afterMutation(ctx, queue.TaskDeleted, model.Task{ID: id, UserID: uid})
	return c.JSON(http.StatusOK, echo.Map{"message": "Task deleted successfully"})
}

// taskID parses the :id path parameter.  Anything that is not a positive
// integer cannot name an owned task.
func taskID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// afterMutation drops the owner's cached reads and publishes an activity
// event.  Neither failure affects the response.
func (h *TaskHandler) afterMutation(ctx context.Context, kind string, t model.Task) {
	if h.Cache != nil {
		if err := h.Cache.InvalidateUser(ctx, t.UserID); err != nil {
			slog.Warn("cache_invalidate_failed", "user_id", t.UserID, "error", err)
		}
	}
	if h.Events == nil {
		return
	}
	ev := queue.TaskEvent{
		Type:       kind,
		TaskID:     t.ID,
		UserID:     t.UserID,
		Title:      t.Title,
		Completed:  t.Completed,
		OccurredAt: time.Now().UTC(),
	}
	if err := h.Events.Publish(ctx, ev); err != nil {
		slog.Warn("task_event_enqueue_failed", "type", ev.Type, "task_id", ev.TaskID, "error", err)
	}
}
