package handler

import (
	"net/http"

	"fooddelivery/internal/config"
	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/repository"
	"fooddelivery/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin/users と /admin/audit-logs
type AdminUserHandler struct {
	users *usecase.AdminUserUsecase
	audit *usecase.AuditLogUsecase
}

func NewAdminUserHandler(users *usecase.AdminUserUsecase, audit *usecase.AuditLogUsecase) *AdminUserHandler {
	return &AdminUserHandler{users: users, audit: audit}
}

type SetUserActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := adminGroup(e, cfg, userRepo)

	admin.GET("/users", h.listUsers)
	admin.PUT("/users/:id/active", h.setActive)
	admin.GET("/audit-logs", h.listAuditLogs)
}

func (h *AdminUserHandler) listUsers(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.users.List(c.Request().Context(), repository.UserListFilter{
		Q:     c.QueryParam("q"),
		Role:  c.QueryParam("role"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) setActive(c echo.Context) error {
	targetID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req SetUserActiveRequest
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return badRequest(c, "is_active is required")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.users.SetActive(c.Request().Context(), adminID, targetID, *req.IsActive)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) listAuditLogs(c echo.Context) error {
	var f repository.AuditLogFilter

	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return badRequest(c, "invalid offset")
	}
	f.Limit = limit
	f.Offset = offset

	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}

	resourceID, ok := queryInt64Ptr(c, "resource_id")
	if !ok {
		return badRequest(c, "invalid resource_id")
	}
	f.ResourceID = resourceID

	actorID, ok := queryInt64Ptr(c, "actor_user_id")
	if !ok {
		return badRequest(c, "invalid actor_user_id")
	}
	f.ActorUserID = actorID

	if f.CreatedFrom, ok = usecase.ParseDateTimeRFC3339(c.QueryParam("from")); !ok {
		return badRequest(c, "invalid from")
	}
	if f.CreatedTo, ok = usecase.ParseDateTimeRFC3339(c.QueryParam("to")); !ok {
		return badRequest(c, "invalid to")
	}

	out, err := h.audit.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
