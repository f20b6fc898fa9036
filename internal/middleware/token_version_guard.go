package middleware

import (
	"net/http"

	"fooddelivery/internal/repository"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return tokenVersionGuard(userRepo, false)
}

// OptionalAuthJWTの後ろに置く。ゲストは素通し
func OptionalTokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return tokenVersionGuard(userRepo, true)
}

func tokenVersionGuard(userRepo repository.UserRepository, allowGuest bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたuser_id を取得する
			userID, ok := UserID(c)
			if !ok {
				if allowGuest && c.Get(CtxUserIDKey) == nil {
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//AuthJWTが入れたtoken_version(tv)を取得する
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "account disabled", Kind: "FORBIDDEN"})
			}

			//roleはDBの値を正とする
			c.Set(CtxUserRoleKey, string(user.Role))

			return next(c)
		}
	}
}
