package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fooddelivery/internal/config"
	"fooddelivery/internal/middleware"
	"fooddelivery/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// 各handlerが満たす
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository)
}

// *sql.DB を想定
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	UserRepo repository.UserRepository
	DB       Pinger
	Metrics  http.Handler
	Routes   []RouteRegistrar
}

type Server struct {
	cfg  config.Config
	log  *zap.Logger
	echo *echo.Echo
	http *http.Server
}

func New(cfg config.Config, log *zap.Logger, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	RegisterRoutes(e, cfg, deps)

	addr := cfg.Port
	if addr == "" {
		addr = "8080"
	}
	if addr[0] != ':' {
		addr = ":" + addr
	}

	return &Server{
		cfg:  cfg,
		log:  log,
		echo: e,
		http: &http.Server{
			Addr:              addr,
			Handler:           otelhttp.NewHandler(e, cfg.ServiceName),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
	}
}

// テスト用
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ctxが終わるまで待ってからgraceful shutdown
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server started", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// echo由来のエラー（404/405/bind失敗など）を同じ形で返す
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		} else {
			log.Error("unhandled error", zap.Error(err))
		}

		body := errorBody{Error: msg, Kind: kindFor(status)}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("write error response failed", zap.Error(err))
		}
	}
}

func kindFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}
