package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrStorageFailure marks failures of the credential store or the session
// backend. The underlying cause stays in the chain for logging only.
var ErrStorageFailure = errors.New("storage failure")

// Storage wraps err as a storage failure for the named operation.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// Generic bodies written to clients.
const (
	MsgInternal  = "Internal server error"
	MsgForbidden = "Access denied"
	MsgNotFound  = "Not found"
)

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// MapErrorToHTTP maps errors to the status and generic text shown to clients.
// Only framework errors keep their status; everything else is a 500.
func MapErrorToHTTP(err error) *HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return NewHTTPError(he.Code, MsgNotFound)
		case http.StatusForbidden:
			return NewHTTPError(he.Code, MsgForbidden)
		case http.StatusInternalServerError:
			return NewHTTPError(he.Code, MsgInternal)
		default:
			return NewHTTPError(he.Code, http.StatusText(he.Code))
		}
	}
	return NewHTTPError(http.StatusInternalServerError, MsgInternal)
}

// HTTPErrorHandler is installed as echo's error handler. It logs the full
// error server side and writes only the generic message.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	httpErr := MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(httpErr.StatusCode)
	} else {
		writeErr = c.String(httpErr.StatusCode, httpErr.Message)
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
