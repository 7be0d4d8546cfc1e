package session

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "decepticon/internal/errors"
)

const (
	contextKey      = "session"
	tokenContextKey = "session_token"
)

// Options configures the session cookie.
type Options struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Manager loads, persists and destroys sessions and keeps the client
// cookie in step with the store.
type Manager struct {
	store  Store
	signer *tokenSigner
	opts   Options
}

// NewManager creates a session manager over store.
func NewManager(store Store, opts Options) *Manager {
	return &Manager{
		store:  store,
		signer: newTokenSigner(opts.Secret, opts.TTL),
		opts:   opts,
	}
}

// Middleware verifies the cookie token and attaches the request's session
// to the context. Requests without a valid cookie, or whose record is gone,
// get a fresh anonymous session that is not stored until committed.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey:    tokenContextKey,
		SigningKey:    m.signer.secret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		TokenLookup:   "cookie:" + m.opts.CookieName,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(jwt.RegisteredClaims)
		},
		// A missing, forged or expired cookie just means no session.
		ErrorHandler: func(echo.Context, error) error {
			return nil
		},
		ContinueOnIgnoredError: true,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		load := func(c echo.Context) error {
			sess, err := m.load(c)
			if err != nil {
				return err
			}
			Attach(c, sess)
			return next(c)
		}
		return verify(load)
	}
}

func (m *Manager) load(c echo.Context) (*Session, error) {
	token, ok := c.Get(tokenContextKey).(*jwt.Token)
	if !ok {
		return m.New(), nil
	}
	id, err := sessionIDFromToken(token)
	if err != nil {
		return m.New(), nil
	}
	values, err := m.store.Get(c.Request().Context(), id)
	if err != nil {
		return nil, apperrors.Storage("load session", err)
	}
	if values == nil {
		return m.New(), nil
	}
	return &Session{ID: id, Values: *values, persisted: true}, nil
}

// New returns an anonymous session with a fresh id.
func (m *Manager) New() *Session {
	return &Session{ID: newSessionID()}
}

// Attach puts sess on the request context.
func Attach(c echo.Context, sess *Session) {
	c.Set(contextKey, sess)
}

// From returns the session attached by Middleware.
func From(c echo.Context) *Session {
	if sess, ok := c.Get(contextKey).(*Session); ok {
		return sess
	}
	return nil
}

// Commit stores the session and sets the cookie. It must run before the
// response is written.
func (m *Manager) Commit(c echo.Context, sess *Session) error {
	if err := m.save(c.Request().Context(), sess); err != nil {
		return err
	}
	token, err := m.signer.sign(sess.ID)
	if err != nil {
		return apperrors.Storage("sign session", err)
	}
	c.SetCookie(m.cookie(token, int(m.opts.TTL/time.Second)))
	return nil
}

// Rotate moves the session to a new id, deleting the old record, and
// commits it. Used whenever the session's privilege changes.
func (m *Manager) Rotate(c echo.Context, sess *Session) error {
	if sess.persisted {
		if err := m.store.Delete(c.Request().Context(), sess.ID); err != nil {
			return apperrors.Storage("rotate session", err)
		}
	}
	sess.ID = newSessionID()
	sess.persisted = false
	return m.Commit(c, sess)
}

// Destroy deletes the session record, clears its values and expires the
// cookie. The cookie is expired even when the store fails.
func (m *Manager) Destroy(c echo.Context, sess *Session) error {
	c.SetCookie(m.cookie("", -1))
	wasPersisted := sess.persisted
	sess.Values = Values{}
	sess.persisted = false
	if !wasPersisted {
		return nil
	}
	if err := m.store.Delete(c.Request().Context(), sess.ID); err != nil {
		return apperrors.Storage("destroy session", err)
	}
	return nil
}

// save writes the values without touching the cookie.
func (m *Manager) save(ctx context.Context, sess *Session) error {
	if err := m.store.Set(ctx, sess.ID, sess.Values, m.opts.TTL); err != nil {
		return apperrors.Storage("save session", err)
	}
	sess.persisted = true
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
