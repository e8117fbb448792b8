package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/affiliate_backend/controllers"
	"github.com/HSouheill/affiliate_backend/middleware"
)

// RegisterSalesRoutes sets up sale ingestion and sale listing
func RegisterSalesRoutes(e *echo.Echo, jwtSecret string, salesController *controllers.SalesController) {
	sales := e.Group("/api/sales")
	sales.Use(middleware.JWTMiddleware(jwtSecret))

	sales.POST("", salesController.RecordSale, middleware.RequireUserType(middleware.UserTypeService, middleware.UserTypeAdmin))
	sales.GET("", salesController.ListSales, middleware.RequireUserType(middleware.UserTypeAdmin, middleware.UserTypeMarketer))
}
