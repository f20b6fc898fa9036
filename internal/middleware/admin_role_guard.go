package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fooddelivery/internal/domain/model"
)

//contextに入っているroleがADMINかどうかを確認します。

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := UserRole(c)
			if role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//CUSTOMERは拒否、ADMINだけ許可
			if role != string(model.RoleAdmin) {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "admin only", Kind: "FORBIDDEN"})
			}

			return next(c)
		}
	}
}
