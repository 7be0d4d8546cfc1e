package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"decepticon/internal/auth"
	"decepticon/internal/service"
	"decepticon/internal/session"
	"decepticon/internal/view"
)

// Messages shown on re-rendered forms.
const (
	MsgInvalidForm        = "Please enter a valid email address and a password."
	MsgUserExists         = "User already exists."
	MsgInvalidCredentials = "Invalid credentials."
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	authService service.AuthService
	sessions    *session.Manager
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions}
}

// CredentialsForm is the body of the login and registration forms.
type CredentialsForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,max=72"`
}

// ShowLogin godoc
// @Summary Login form
// @Tags auth
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /login [get]
func (h *AuthHandler) ShowLogin(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageLogin, view.LoginPage{Flash: session.FlashFrom(c)})
}

// ShowRegister godoc
// @Summary Registration form
// @Tags auth
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /register [get]
func (h *AuthHandler) ShowRegister(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageRegister, view.RegisterPage{Flash: session.FlashFrom(c)})
}

// Register godoc
// @Summary Register a new user
// @Description The first registered user becomes admin.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce html
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Success 302 {string} string "Redirect to /admin or /user"
// @Failure 400 {string} string "Form re-rendered"
// @Failure 409 {string} string "Form re-rendered, user exists"
// @Failure 500 {string} string "Internal server error"
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var form CredentialsForm
	if err := bindForm(c, &form); err != nil {
		return h.renderRegister(c, http.StatusBadRequest, form.Email, MsgInvalidForm)
	}

	sess := session.From(c)
	user, err := h.authService.Register(c.Request().Context(), sess, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			return h.renderRegister(c, http.StatusConflict, form.Email, MsgUserExists)
		}
		if errors.Is(err, service.ErrPasswordTooLong) {
			return h.renderRegister(c, http.StatusBadRequest, form.Email, MsgInvalidForm)
		}
		return err
	}

	if err := h.sessions.Rotate(c, sess); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, user.Role.HomePath())
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce html
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Success 302 {string} string "Redirect to /admin or /user"
// @Failure 400 {string} string "Form re-rendered"
// @Failure 401 {string} string "Form re-rendered, invalid credentials"
// @Failure 500 {string} string "Internal server error"
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var form CredentialsForm
	if err := bindForm(c, &form); err != nil {
		return h.renderLogin(c, http.StatusBadRequest, form.Email, MsgInvalidForm)
	}

	sess := session.From(c)
	user, err := h.authService.Login(c.Request().Context(), sess, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return h.renderLogin(c, http.StatusUnauthorized, form.Email, MsgInvalidCredentials)
		}
		return err
	}

	if err := h.sessions.Rotate(c, sess); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, user.Role.HomePath())
}

// Logout godoc
// @Summary Logout user
// @Description Destroys the session. Always redirects, even when the session backend fails.
// @Tags auth
// @Success 302 {string} string "Redirect to /login"
// @Router /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	sess := session.From(c)
	anonymous := !sess.Authenticated() && !sess.Persisted()
	h.authService.Logout(sess)
	farewell := sess.Success

	if err := h.sessions.Destroy(c, sess); err != nil {
		c.Logger().Errorf("logout: %v", err)
		return c.Redirect(http.StatusFound, auth.LoginPath)
	}
	if anonymous {
		return c.Redirect(http.StatusFound, auth.LoginPath)
	}

	// The farewell message survives in a fresh anonymous session.
	next := h.sessions.New()
	next.Success = farewell
	if err := h.sessions.Commit(c, next); err != nil {
		c.Logger().Errorf("logout: %v", err)
	}
	return c.Redirect(http.StatusFound, auth.LoginPath)
}

func (h *AuthHandler) renderLogin(c echo.Context, status int, email, msg string) error {
	flash := session.FlashFrom(c)
	flash.Error = msg
	return c.Render(status, view.PageLogin, view.LoginPage{Flash: flash, Email: email})
}

func (h *AuthHandler) renderRegister(c echo.Context, status int, email, msg string) error {
	flash := session.FlashFrom(c)
	flash.Error = msg
	return c.Render(status, view.PageRegister, view.RegisterPage{Flash: flash, Email: email})
}

func bindForm(c echo.Context, form *CredentialsForm) error {
	if err := c.Bind(form); err != nil {
		return err
	}
	return c.Validate(form)
}
