package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/services"
)

const defaultAdminListLimit = 50

type AdminController struct {
	notifications *services.NotificationService
	marketers     *services.MarketerService
}

func NewAdminController(notifications *services.NotificationService, marketers *services.MarketerService) *AdminController {
	return &AdminController{notifications: notifications, marketers: marketers}
}

// GetNotifications handles GET /api/admin/notifications
func (ac *AdminController) GetNotifications(c echo.Context) error {
	limit := defaultAdminListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = parsed
	}

	page, counts, err := ac.notifications.AdminOverview(c.Request().Context(), c.QueryParam("status"), limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Admin notifications retrieved successfully",
		Data: map[string]interface{}{
			"notifications": page.Items,
			"nextCursor":    page.NextCursor,
			"counts":        counts,
		},
	})
}

// CreateMarketer handles POST /api/admin/marketers
func (ac *AdminController) CreateMarketer(c echo.Context) error {
	var req models.CreateMarketerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Invalid marketer: "+err.Error())
	}

	marketer, err := ac.marketers.Create(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Marketer created successfully",
		Data:    marketer,
	})
}

// GetMarketer handles GET /api/admin/marketers/:id
func (ac *AdminController) GetMarketer(c echo.Context) error {
	marketer, err := ac.marketers.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Marketer retrieved successfully",
		Data:    marketer,
	})
}
