package middleware

import (
	"errors"
	"net/http"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"
	jsonres "github.com/kyle-eros/eros-scheduling-sub002/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler is the catch-all for errors that escape the handlers.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		_ = c.JSON(http.StatusConflict, jsonres.Error(
			"CONFLICT", conflict.Error(), nil,
		))
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		_ = c.JSON(httpErr.Code, jsonres.Error(
			http.StatusText(httpErr.Code), msg, nil,
		))
		return
	}

	logger.Error("unhandled error", "path", c.Path(), "error", err)
	_ = c.JSON(http.StatusInternalServerError, jsonres.Error(
		"INTERNAL_SERVER_ERROR", "Internal server error", nil,
	))
}
