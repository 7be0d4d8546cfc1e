package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"decepticon/internal/auth"
	apperrors "decepticon/internal/errors"
	"decepticon/internal/handler"
	"decepticon/internal/model"
	"decepticon/internal/session"
)

// Register wires middleware and routes. The order of steps is fixed:
// request logging and recovery, security headers, body limit, session load,
// flash extraction, then route dispatch with per-route guards.
func Register(
	e *echo.Echo,
	sessions *session.Manager,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) {
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "0",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'self'; form-action 'self'",
		ReferrerPolicy:        "no-referrer",
	}))
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	web := e.Group("", sessions.Middleware(), session.FlashMiddleware(sessions))

	web.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, auth.LoginPath)
	})
	web.GET("/login", authHandler.ShowLogin)
	web.POST("/login", authHandler.Login)
	web.GET("/register", authHandler.ShowRegister)
	web.POST("/register", authHandler.Register)
	web.GET("/logout", authHandler.Logout)

	web.GET("/user", userHandler.Home, auth.RequireLogin())
	web.GET("/admin", userHandler.ListUsers, auth.RequireRole(model.RoleAdmin))
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
