package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/affiliate_backend/controllers"
	"github.com/HSouheill/affiliate_backend/middleware"
)

// RegisterAdminRoutes sets up the admin dashboard routes
func RegisterAdminRoutes(e *echo.Echo, jwtSecret string, adminController *controllers.AdminController) {
	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTMiddleware(jwtSecret))
	admin.Use(middleware.RequireUserType(middleware.UserTypeAdmin))

	admin.GET("/notifications", adminController.GetNotifications)
	admin.POST("/marketers", adminController.CreateMarketer)
	admin.GET("/marketers/:id", adminController.GetMarketer)
}
