package handler

import (
	"errors"
	"net/http"

	"content-paywall/internal/model"

	"github.com/labstack/echo/v4"
)

// httpError maps domain errors onto HTTP statuses at the edge; services
// stay transport-agnostic.
func httpError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	if errors.Is(err, model.ErrAlreadyEntitled) {
		return echo.NewHTTPError(http.StatusConflict, "already owned")
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	var pe *model.ProviderError
	if errors.As(err, &pe) {
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
	}
	return err
}
