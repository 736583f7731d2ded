package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nkitajim/task-collabo/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the board check below is the real gate; origin is not part of it
	CheckOrigin: func(*http.Request) bool { return true },
}

// subscribeBoard admits a realtime subscription to a board. The websocket
// handshake cannot carry an Authorization header from browsers, so the
// bearer token arrives as a ?token= query parameter and is verified here,
// outside the normal header path. Admission is all-or-nothing: any failed
// step closes the socket with a policy-violation status and the handle is
// never registered.
func subscribeBoard(store Storage, auth Authenticator, rt Realtime, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		boardID := c.Param("id")
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// Upgrade already wrote the HTTP error
			return nil
		}

		reject := func(reason string) error {
			deadline := time.Now().Add(rt.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
			_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
			conn.Close()
			return nil
		}

		token := c.QueryParam("token")
		if token == "" {
			return reject("missing token")
		}
		userID, err := auth.Verify(token)
		if err != nil {
			return reject("invalid token")
		}

		admitCtx, cancel := context.WithTimeout(context.Background(), rt.AdmitTimeout)
		member, err := store.IsMember(admitCtx, boardID, userID)
		cancel()
		if err != nil {
			logger.Errorf("admission membership lookup for board %s: %v", boardID, err)
			return reject("membership check failed")
		}
		if !member {
			return reject("not a member of this board")
		}

		sub := realtime.NewSubscriber(rt.Hub, conn, uuid.NewString(), boardID, userID,
			rt.SendBuffer, rt.WriteTimeout, logger)
		logger.Debugf("subscriber %s joined board %s as user %s", sub.Key(), boardID, sub.UserID())
		sub.Run()
		return nil
	}
}
