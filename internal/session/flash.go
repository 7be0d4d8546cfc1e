package session

import "github.com/labstack/echo/v4"

const flashContextKey = "flash"

// FlashMiddleware moves pending flash messages from the session onto the
// request context and persists the cleared session before the handler runs.
// A message the handler sets afterwards is therefore kept for the next
// response. Must run after Middleware.
func FlashMiddleware(m *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := From(c)
			if sess == nil {
				return next(c)
			}
			flash := sess.TakeFlash()
			if !flash.Empty() && sess.Persisted() {
				if err := m.save(c.Request().Context(), sess); err != nil {
					return err
				}
			}
			c.Set(flashContextKey, flash)
			return next(c)
		}
	}
}

// FlashFrom returns the messages extracted for this request.
func FlashFrom(c echo.Context) Flash {
	f, _ := c.Get(flashContextKey).(Flash)
	return f
}
