// Package auth gates routes on the signed-in user in the request's session.
package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "decepticon/internal/errors"
	"decepticon/internal/model"
	"decepticon/internal/session"
)

// LoginPath is where anonymous visitors of member pages are sent.
const LoginPath = "/login"

// RequireLogin redirects requests without a signed-in user to the login page.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := session.From(c)
			if sess == nil || !sess.Authenticated() {
				return c.Redirect(http.StatusFound, LoginPath)
			}
			return next(c)
		}
	}
}

// RequireRole answers 403 unless a user holding one of roles is signed in.
// Anonymous requests are refused the same way as the wrong role.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := session.From(c)
			if sess == nil || !sess.Authenticated() {
				return c.String(http.StatusForbidden, apperrors.MsgForbidden)
			}
			if _, ok := allowed[sess.UserRole]; !ok {
				return c.String(http.StatusForbidden, apperrors.MsgForbidden)
			}
			return next(c)
		}
	}
}
