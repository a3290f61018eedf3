// Package httpserver assembles the echo engine shared by the webhook
// boundary and the operational endpoints.
package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New returns an echo engine with request logging, panic recovery and the
// Prometheus scrape endpoint mounted. Callers register their own routes on
// the returned engine.
func New() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
