package api

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/nkitajim/task-collabo/domain"
)

const reorderMaxSize = 1 << 20

// reorderTasks is the one multi-entity mutation: the client submits the
// complete desired arrangement for one or more columns and the whole batch
// is applied as a single transaction. Unknown task ids are skipped rather
// than failing the rest of the batch, and subscribers receive exactly one
// reorder event echoing the submitted payload.
func reorderTasks(store Storage, auth Authenticator, b *bridge) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, reorderMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req domain.ReorderRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.BoardID == "" {
			return c.String(http.StatusBadRequest, "board_id required")
		}

		member, err := store.IsMember(ctx, req.BoardID, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if !member {
			return c.String(http.StatusForbidden, "not a member of this board")
		}

		if err := store.ReorderTasks(ctx, req); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		b.publish(ctx, req.BoardID, domain.Reorder(req))
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
