package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskhub/prometheus"
)

// HealthCheck reports service liveness
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Metrics exposes the Prometheus metrics endpoint
func Metrics(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
