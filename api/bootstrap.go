package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nkitajim/task-collabo/domain"
)

// bootstrapDemo creates a demo board with three columns and a few tasks
// for the current user. Intended for quick local testing.
func bootstrapDemo(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		board := domain.Board{ID: uuid.NewString(), Title: "Demo Board"}
		if err := store.CreateBoard(ctx, board, userID); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		cols := []domain.Column{
			{ID: uuid.NewString(), BoardID: board.ID, Title: "To Do", Position: 0},
			{ID: uuid.NewString(), BoardID: board.ID, Title: "Doing", Position: 1},
			{ID: uuid.NewString(), BoardID: board.ID, Title: "Done", Position: 2},
		}
		for _, col := range cols {
			if err := store.CreateColumn(ctx, col); err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, err.Error())
			}
		}

		now := time.Now().UTC()
		tasks := []domain.Task{
			{ID: uuid.NewString(), ColumnID: cols[0].ID, Title: "Research task", StartDate: now, Position: 0},
			{ID: uuid.NewString(), ColumnID: cols[0].ID, Title: "Design task", StartDate: now, Position: 1},
			{ID: uuid.NewString(), ColumnID: cols[1].ID, Title: "Implementation task", StartDate: now, Position: 0},
		}
		for _, t := range tasks {
			if err := store.CreateTask(ctx, t); err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, err.Error())
			}
		}

		return c.JSON(http.StatusOK, map[string]string{"board_id": board.ID})
	}
}
