package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/middleware"
	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
	"github.com/HSouheill/affiliate_backend/services"
)

type NotificationController struct {
	notifications *services.NotificationService
	marketers     *services.MarketerService
}

func NewNotificationController(notifications *services.NotificationService, marketers *services.MarketerService) *NotificationController {
	return &NotificationController{notifications: notifications, marketers: marketers}
}

// GetNotifications handles GET /api/notifications
func (nc *NotificationController) GetNotifications(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = parsed
	}

	page, err := nc.notifications.List(c.Request().Context(), repositories.ListQuery{
		SubjectID: middleware.GetSubjectID(c),
		Cursor:    c.QueryParam("cursor"),
		Limit:     limit,
		Type:      models.NotificationType(c.QueryParam("type")),
		Status:    models.NotificationStatus(c.QueryParam("status")),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications retrieved successfully",
		Data:    page,
	})
}

// MarkAsRead handles PUT /api/notifications/:id/read
func (nc *NotificationController) MarkAsRead(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid notification ID")
	}
	if err := nc.notifications.MarkRead(c.Request().Context(), middleware.GetSubjectID(c), id); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notification marked as read",
	})
}

// MarkAllAsRead handles PUT /api/notifications/read-all
func (nc *NotificationController) MarkAllAsRead(c echo.Context) error {
	updated, err := nc.notifications.MarkAllRead(c.Request().Context(), middleware.GetSubjectID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "All notifications marked as read",
		Data:    map[string]int64{"updated": updated},
	})
}

// MarkAllAsReadByType handles PUT /api/notifications/read-all/:type
func (nc *NotificationController) MarkAllAsReadByType(c echo.Context) error {
	updated, err := nc.notifications.MarkAllReadByType(c.Request().Context(), middleware.GetSubjectID(c), models.NotificationType(c.Param("type")))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications marked as read",
		Data:    map[string]int64{"updated": updated},
	})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (nc *NotificationController) DeleteNotification(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid notification ID")
	}
	if err := nc.notifications.Delete(c.Request().Context(), middleware.GetSubjectID(c), id); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notification deleted",
	})
}

// UpdateFCMToken handles POST /api/notifications/fcm-token
func (nc *NotificationController) UpdateFCMToken(c echo.Context) error {
	var req models.FCMTokenUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "FCM token is required")
	}
	if middleware.ExtractUserType(c) != middleware.UserTypeMarketer {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only marketers can register a device",
		})
	}
	if err := nc.marketers.UpdateFCMToken(c.Request().Context(), middleware.GetUserIDFromToken(c), req.FCMToken); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "FCM token updated successfully",
	})
}
