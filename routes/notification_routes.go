package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/affiliate_backend/controllers"
	"github.com/HSouheill/affiliate_backend/middleware"
	"github.com/HSouheill/affiliate_backend/websocket"
)

// RegisterNotificationRoutes registers the REST surface and the live channel
func RegisterNotificationRoutes(e *echo.Echo, jwtSecret string, notificationController *controllers.NotificationController, hub *websocket.Hub) {
	// the channel authenticates itself (query token, header or auth event)
	e.GET("/api/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, hub)
	})

	notifications := e.Group("/api/notifications")
	notifications.Use(middleware.JWTMiddleware(jwtSecret))
	notifications.Use(middleware.RequireUserType(middleware.UserTypeAdmin, middleware.UserTypeMarketer))

	notifications.GET("", notificationController.GetNotifications)
	notifications.PUT("/read-all", notificationController.MarkAllAsRead)
	notifications.PUT("/read-all/:type", notificationController.MarkAllAsReadByType)
	notifications.PUT("/:id/read", notificationController.MarkAsRead)
	notifications.DELETE("/:id", notificationController.DeleteNotification)
	notifications.POST("/fcm-token", notificationController.UpdateFCMToken)
}
