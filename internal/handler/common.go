package handler

import (
	"net/http"
	"strconv"

	"fooddelivery/internal/config"
	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/middleware"
	"fooddelivery/internal/repository"
	"fooddelivery/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          string `json:"error"`
	Kind           string `json:"kind,omitempty"`
	Reason         string `json:"reason,omitempty"`
	MinOrderAmount *int64 `json:"min_order_amount,omitempty"`
}

// {message: string}
type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		res := ErrorResponse{Error: he.Message, Kind: string(he.Kind)}
		if he.Reason != "" {
			res.Reason = string(he.Reason)
		}
		if he.Kind == usecase.KindEligibility && he.MinOrderAmount > 0 {
			v := he.MinOrderAmount
			res.MinOrderAmount = &v
		}
		return c.JSON(he.Status, res)
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: string(usecase.KindInternal)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(usecase.KindValidation)})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: string(usecase.KindUnauthorized)})
}

// ログイン必須のグループ
func authGroup(e *echo.Echo, prefix string, cfg config.Config, userRepo repository.UserRepository) *echo.Group {
	g := e.Group(prefix)
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))
	return g
}

func adminGroup(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) *echo.Group {
	g := authGroup(e, "/admin", cfg, userRepo)
	g.Use(middleware.AdminRoleGuard())
	return g
}

// ゲストも通す（tokenがあればユーザーとして扱う）
func optionalAuth(cfg config.Config, userRepo repository.UserRepository) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.OptionalAuthJWT(cfg),
		middleware.OptionalTokenVersionGuard(userRepo),
	}
}

//middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す

func getUserIDFromContext(c echo.Context) (int64, bool) {
	return middleware.UserID(c)
}

// ゲストならnil
func optionalUserID(c echo.Context) *int64 {
	id, ok := middleware.UserID(c)
	if !ok {
		return nil
	}
	return &id
}

func actorFromContext(c echo.Context) (usecase.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return usecase.Actor{}, false
	}
	return usecase.Actor{UserID: id, Role: model.Role(middleware.UserRole(c))}, true
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 未指定ならdef
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func queryInt64Ptr(c echo.Context, name string) (*int64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &n, true
}

// include_inactive=true は管理者だけ有効
func includeInactive(c echo.Context) bool {
	v, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	return v && middleware.IsAdmin(c)
}
