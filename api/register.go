// Package api exposes the HTTP surface: account endpoints, board CRUD and
// the realtime subscription endpoint, all wired onto an Echo instance.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nkitajim/task-collabo/domain"
	"github.com/nkitajim/task-collabo/realtime"
)

// Storage is the transactional store consumed by the handlers.
type Storage interface {
	CreateUser(ctx context.Context, u domain.User) error
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)

	CreateBoard(ctx context.Context, b domain.Board, ownerID string) error
	BoardsForUser(ctx context.Context, userID string) ([]domain.Board, error)
	BoardFull(ctx context.Context, boardID string) (domain.BoardFull, error)
	IsMember(ctx context.Context, boardID, userID string) (bool, error)
	AddMember(ctx context.Context, m domain.Membership) error

	CreateColumn(ctx context.Context, col domain.Column) error
	DeleteColumn(ctx context.Context, boardID, columnID string) error
	BoardIDForColumn(ctx context.Context, columnID string) (string, error)

	CreateTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (domain.Task, error)
	AssignTask(ctx context.Context, id, assigneeID string) (domain.Task, error)
	BoardIDForTask(ctx context.Context, taskID string) (string, error)

	ReorderTasks(ctx context.Context, req domain.ReorderRequest) error
}

// Authenticator issues and verifies access tokens.
type Authenticator interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
	UserIDFromAuthHeader(h string) (string, error)
}

// Invalidator drops cached board projections after a mutation. A nil
// Invalidator disables cache invalidation.
type Invalidator interface {
	Invalidate(ctx context.Context, boardID string)
}

// Realtime groups the realtime collaborators and connection tuning.
type Realtime struct {
	Hub        *realtime.Hub
	Dispatcher *realtime.Dispatcher

	SendBuffer   int
	WriteTimeout time.Duration
	AdmitTimeout time.Duration
}

var validate = validator.New()

// Register wires all routes onto the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, rt Realtime, cache Invalidator, logger *log.Logger) {
	b := &bridge{dispatcher: rt.Dispatcher, cache: cache}

	e.GET("/", root)
	e.GET("/healthz", healthz)

	e.POST("/auth/register", registerUser(store, auth))
	e.POST("/auth/login", login(store, auth))

	e.POST("/boards", createBoard(store, auth))
	e.GET("/boards", listBoards(store, auth))
	e.GET("/boards/:id/full", getBoardFull(store, auth))
	e.POST("/boards/:id/members", addMember(store, auth))

	e.POST("/boards/:id/columns", createColumn(store, auth, b))
	e.DELETE("/boards/:id/columns/:columnID", deleteColumn(store, auth, b))

	e.POST("/columns/:id/tasks", createTask(store, auth, b))
	e.PUT("/tasks/:id", updateTask(store, auth, b))
	e.DELETE("/tasks/:id", deleteTask(store, auth, b))
	e.POST("/tasks/:id/assign", assignTask(store, auth, b))
	e.POST("/tasks/reorder", reorderTasks(store, auth, b))

	e.POST("/_bootstrap_demo", bootstrapDemo(store, auth))

	e.GET("/ws/boards/:id", subscribeBoard(store, auth, rt, logger))
}

func root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "msg": "task board backend running"})
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// bridge is the mutation-to-event seam: after a store commit the owning
// handler hands the typed event here, which invalidates the board's cached
// projection and enqueues the broadcast without blocking the response.
type bridge struct {
	dispatcher *realtime.Dispatcher
	cache      Invalidator
}

func (b *bridge) publish(ctx context.Context, boardID string, ev domain.Event) {
	if b.cache != nil {
		b.cache.Invalidate(ctx, boardID)
	}
	b.dispatcher.Broadcast(boardID, ev)
}
