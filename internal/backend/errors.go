package backend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/agerestore/internal/core"
	"github.com/jo-hoe/agerestore/internal/journey"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps service errors onto HTTP status codes
func toHTTPError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrForbidden), errors.Is(err, core.ErrNotApproved):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, core.ErrDuplicateUpload):
		return echo.NewHTTPError(http.StatusConflict, "you have already uploaded a photo for today")
	case errors.Is(err, core.ErrUploadInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, journey.ErrJourneyNotStarted), errors.Is(err, journey.ErrJourneyCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrPhotoTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, core.ErrInvalidPhoto):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidMood),
		errors.Is(err, core.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	slog.Error("request failed",
		"method", c.Request().Method,
		"route", c.Path(),
		"error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
