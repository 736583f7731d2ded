package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nkitajim/task-collabo/auth"
	"github.com/nkitajim/task-collabo/domain"
	"github.com/nkitajim/task-collabo/storage"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

func registerUser(store Storage, tokens Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := validate.Struct(req); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "hash password")
		}
		u := domain.User{
			ID:             uuid.NewString(),
			Email:          req.Email,
			Name:           req.Name,
			HashedPassword: hashed,
		}
		if err := store.CreateUser(c.Request().Context(), u); err != nil {
			if errors.Is(err, storage.ErrDuplicateEmail) {
				return c.String(http.StatusBadRequest, "user already exists")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		token, err := tokens.Issue(u.ID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "issue token")
		}
		return c.JSON(http.StatusOK, tokenResponse{
			AccessToken: token,
			User:        userResponse{ID: u.ID, Email: u.Email, Name: u.Name},
		})
	}
}

func login(store Storage, tokens Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := validate.Struct(req); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		u, err := store.UserByEmail(c.Request().Context(), req.Email)
		if err != nil || !auth.VerifyPassword(req.Password, u.HashedPassword) {
			return c.String(http.StatusUnauthorized, "bad credentials")
		}

		token, err := tokens.Issue(u.ID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "issue token")
		}
		return c.JSON(http.StatusOK, tokenResponse{
			AccessToken: token,
			User:        userResponse{ID: u.ID, Email: u.Email, Name: u.Name},
		})
	}
}
