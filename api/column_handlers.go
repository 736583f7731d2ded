package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nkitajim/task-collabo/domain"
	"github.com/nkitajim/task-collabo/storage"
)

type createColumnRequest struct {
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position"`
}

func createColumn(store Storage, auth Authenticator, b *bridge) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boardID := c.Param("id")

		member, err := store.IsMember(ctx, boardID, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if !member {
			return c.String(http.StatusForbidden, "not a member of this board")
		}

		var req createColumnRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := validate.Struct(req); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		col := domain.Column{
			ID:       uuid.NewString(),
			BoardID:  boardID,
			Title:    req.Title,
			Position: req.Position,
		}
		if err := store.CreateColumn(ctx, col); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		b.publish(ctx, boardID, domain.ColumnCreated(col))
		return c.JSON(http.StatusOK, col)
	}
}

func deleteColumn(store Storage, auth Authenticator, b *bridge) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boardID := c.Param("id")
		columnID := c.Param("columnID")

		member, err := store.IsMember(ctx, boardID, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if !member {
			return c.String(http.StatusForbidden, "not a member of this board")
		}

		if err := store.DeleteColumn(ctx, boardID, columnID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "column not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		b.publish(ctx, boardID, domain.ColumnDeleted(columnID))
		return c.JSON(http.StatusOK, map[string]string{"detail": "column deleted"})
	}
}
