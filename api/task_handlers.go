package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nkitajim/task-collabo/domain"
	"github.com/nkitajim/task-collabo/storage"
)

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Owner       string     `json:"owner"`
	AssigneeID  string     `json:"assignee_id"`
	Reward      float64    `json:"reward"`
	Position    int        `json:"position"`
}

type assignTaskRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// memberOfTaskBoard resolves the task's owning board through its column
// and checks the acting user's membership. Every task mutation goes
// through here.
func memberOfTaskBoard(ctx context.Context, store Storage, taskID, userID string) (string, int, error) {
	boardID, err := store.BoardIDForTask(ctx, taskID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", http.StatusNotFound, errors.New("task not found")
	}
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	member, err := store.IsMember(ctx, boardID, userID)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	if !member {
		return "", http.StatusForbidden, errors.New("not a member of this board")
	}
	return boardID, 0, nil
}

func createTask(store Storage, auth Authenticator, b *bridge) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		columnID := c.Param("id")

		boardID, err := store.BoardIDForColumn(ctx, columnID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.String(http.StatusNotFound, "column not found")
		}
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		member, err := store.IsMember(ctx, boardID, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if !member {
			return c.String(http.StatusForbidden, "not a member of this board")
		}

		var req createTaskRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := validate.Struct(req); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		start := time.Now().UTC()
		if req.StartDate != nil {
			start = *req.StartDate
		}
		t := domain.Task{
			ID:          uuid.NewString(),
			ColumnID:    columnID,
			Title:       req.Title,
			Summary:     req.Summary,
			Description: req.Description,
			StartDate:   start,
			EndDate:     req.EndDate,
			Owner:       req.Owner,
			AssigneeID:  req.AssigneeID,
			Reward:      req.Reward,
			Position:    req.Position,
		}
		if err := store.CreateTask(ctx, t); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		b.publish(ctx, boardID, domain.TaskCreated(t))
		return c.JSON(http.StatusOK, t)
	}
}

func updateTask(store Storage, auth Authenticator, b *bridge) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID := c.Param("id")

		boardID, status, err := memberOfTaskBoard(ctx, store, taskID, userID)
		if err != nil {
			if status == http.StatusInternalServerError {
				c.Logger().Error(err)
			}
			return c.String(status, err.Error())
		}

		var patch domain.TaskPatch
		if err := c.Bind(&patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		t, err := store.UpdateTask(ctx, taskID, patch)
		if errors.Is(err, storage.ErrNotFound) {
			return c.String(http.StatusNotFound, "task not found")
		}
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		b.publish(ctx, boardID, domain.TaskUpdated(t))
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(store Storage, auth Authenticator, b *bridge) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID := c.Param("id")

		boardID, status, err := memberOfTaskBoard(ctx, store, taskID, userID)
		if err != nil {
			if status == http.StatusInternalServerError {
				c.Logger().Error(err)
			}
			return c.String(status, err.Error())
		}

		t, err := store.DeleteTask(ctx, taskID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.String(http.StatusNotFound, "task not found")
		}
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		b.publish(ctx, boardID, domain.TaskDeleted(t.ID, t.ColumnID))
		return c.JSON(http.StatusOK, map[string]string{"detail": "task deleted"})
	}
}

func assignTask(store Storage, auth Authenticator, b *bridge) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID := c.Param("id")

		boardID, status, err := memberOfTaskBoard(ctx, store, taskID, userID)
		if err != nil {
			if status == http.StatusInternalServerError {
				c.Logger().Error(err)
			}
			return c.String(status, err.Error())
		}

		var req assignTaskRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		t, err := store.AssignTask(ctx, taskID, req.AssigneeID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.String(http.StatusNotFound, "task not found")
		}
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		b.publish(ctx, boardID, domain.TaskAssigned(t.ID, t.AssigneeID))
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "task": map[string]string{"id": t.ID, "assignee_id": t.AssigneeID}})
	}
}
