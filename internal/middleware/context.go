package middleware

import (
	"github.com/labstack/echo/v4"

	"fooddelivery/internal/domain/model"
)

// AuthJWTが入れたuser_id。ゲストならfalse
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func UserRole(c echo.Context) string {
	role, _ := c.Get(CtxUserRoleKey).(string)
	return role
}

func IsAdmin(c echo.Context) bool {
	return UserRole(c) == string(model.RoleAdmin)
}
