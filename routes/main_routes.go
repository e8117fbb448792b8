package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterOpsRoutes exposes health and metrics
func RegisterOpsRoutes(e *echo.Echo, storeBackend string) {
	e.Match([]string{http.MethodGet, http.MethodHead}, "/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
			"store":  storeBackend,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
