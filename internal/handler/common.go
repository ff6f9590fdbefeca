package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/middleware"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

var errNoUser = errors.New("invalid user_id in context")

// getUserID extracts the authenticated user id placed on the context by
// middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(middleware.UserIDKey).(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errNoUser
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// serverError logs the internal failure and answers with a generic 500 so
// storage details never reach the client.
func serverError(c echo.Context, event string, err error, attrs ...any) error {
	attrs = append(attrs,
		"error", err,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
	)
	slog.ErrorContext(c.Request().Context(), event, attrs...)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
