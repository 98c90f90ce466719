// Package handlers exposes the command API over HTTP. Routes are
// tenant-scoped: every request carries the tenant in the X-Tenant-ID
// header, set upstream by the API gateway after authentication.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"league-system/models"
)

const tenantHeader = "X-Tenant-ID"

func tenantID(c echo.Context) string {
	return c.Request().Header.Get(tenantHeader)
}

// writeError maps the domain error taxonomy to HTTP statuses. Unknown
// errors are reported as 500 without leaking internals.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSelfPlayNotAllowed),
		errors.Is(err, models.ErrUnknownProvider):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrPaymentDeclined):
		status = http.StatusPaymentRequired
	case errors.Is(err, models.ErrProviderUnavailable),
		errors.Is(err, models.ErrBrokerUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		return c.JSON(status, map[string]string{"error": "internal error"})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func missingTenant(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing " + tenantHeader + " header"})
}
