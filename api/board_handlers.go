package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nkitajim/task-collabo/domain"
	"github.com/nkitajim/task-collabo/storage"
)

type createBoardRequest struct {
	Title string `json:"title"`
}

func createBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req createBoardRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Title == "" {
			req.Title = "New Board"
		}

		b := domain.Board{ID: uuid.NewString(), Title: req.Title}
		if err := store.CreateBoard(c.Request().Context(), b, userID); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]domain.Board{"board": b})
	}
}

func listBoards(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boards, err := store.BoardsForUser(c.Request().Context(), userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, boards)
	}
}

func getBoardFull(store Storage, auth Authenticator) echo.HandlerFunc {
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

		full, err := store.BoardFull(ctx, boardID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.String(http.StatusNotFound, "board not found")
		}
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, full)
	}
}
