package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nkitajim/task-collabo/domain"
	"github.com/nkitajim/task-collabo/storage"
)

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=owner member"`
}

// addMember grants another user membership of a board, which admits them
// to both CRUD mutation and the realtime stream. There is no membership
// event variant; joining users fetch the board projection on connect.
func addMember(store Storage, auth Authenticator) echo.HandlerFunc {
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

		var req addMemberRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := validate.Struct(req); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		if req.Role == "" {
			req.Role = domain.RoleMember
		}

		if _, err := store.UserByID(ctx, req.UserID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "user not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		m := domain.Membership{BoardID: boardID, UserID: req.UserID, Role: req.Role}
		if err := store.AddMember(ctx, m); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, m)
	}
}
