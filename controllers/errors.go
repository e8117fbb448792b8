package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
	"github.com/HSouheill/affiliate_backend/services"
)

// errorStatus maps service and store errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrUnknownReferralCode),
		errors.Is(err, repositories.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateRequest):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func errorResponse(c echo.Context, err error) error {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		message = "Internal server error"
	}
	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.Response{
		Status:  http.StatusBadRequest,
		Message: message,
	})
}
