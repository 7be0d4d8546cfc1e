package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"decepticon/internal/service"
	"decepticon/internal/session"
	"decepticon/internal/view"
)

// UserHandler serves the member and admin pages.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Home godoc
// @Summary Member landing page
// @Tags users
// @Produce html
// @Success 200 {string} string "HTML page"
// @Success 302 {string} string "Redirect to /login without a session"
// @Router /user [get]
func (h *UserHandler) Home(c echo.Context) error {
	sess := session.From(c)
	return c.Render(http.StatusOK, view.PageUser, view.UserPage{
		Flash: session.FlashFrom(c),
		Email: sess.UserEmail,
	})
}

// ListUsers godoc
// @Summary Admin listing of all users, newest first
// @Tags users
// @Produce html
// @Success 200 {string} string "HTML page"
// @Failure 403 {string} string "Access denied"
// @Failure 500 {string} string "Internal server error"
// @Router /admin [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	sess := session.From(c)
	return c.Render(http.StatusOK, view.PageAdmin, view.AdminPage{
		Flash: session.FlashFrom(c),
		Email: sess.UserEmail,
		Users: view.NewUserRows(users),
	})
}
