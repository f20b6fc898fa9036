package server

import (
	"context"
	"net/http"
	"time"

	"fooddelivery/internal/config"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, deps Deps) {
	e.GET("/healthz", healthz(deps.DB))
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}

	for _, r := range deps.Routes {
		r.RegisterRoutes(e, cfg, deps.UserRepo)
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

// DBまで疎通できたらok
func healthz(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}
