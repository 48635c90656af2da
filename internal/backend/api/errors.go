package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/goscreenshots/internal/backend/database"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Message string `json:"message"`
}

// HandleError is the echo HTTPErrorHandler. Every error is logged; callers only
// see details for client errors.
func (s *APIService) HandleError(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	status, message := s.classifyError(err)
	attrs := []any{
		"status", status,
		"method", ctx.Request().Method,
		"uri", ctx.Request().RequestURI,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("HandleError: request failed", attrs...)
	} else {
		slog.Info("HandleError: request rejected", attrs...)
	}

	var writeErr error
	if ctx.Request().Method == http.MethodHead {
		writeErr = ctx.NoContent(status)
	} else {
		writeErr = ctx.JSON(status, errorResponse{Message: message})
	}
	if writeErr != nil {
		slog.Error("HandleError: failed to write error response", "error", writeErr)
	}
}

func (s *APIService) classifyError(err error) (int, string) {
	if isTooLarge(err) {
		return http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Uploaded file is too large. Maximum size is %sMB.", formatMegabytes(s.maxFileSizeMB))
	}
	if errors.Is(err, database.ErrNotFound) {
		return http.StatusNotFound, msgNotFound
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, msgInternalError
		}
		if message, ok := httpErr.Message.(string); ok {
			return httpErr.Code, message
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	}
	return http.StatusInternalServerError, msgInternalError
}

// bodyLimit caps the request body before any handler reads it.
func bodyLimit(limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			request := ctx.Request()
			if request.ContentLength > limit {
				return ErrFileTooLarge
			}
			request.Body = http.MaxBytesReader(ctx.Response(), request.Body, limit)
			return next(ctx)
		}
	}
}
