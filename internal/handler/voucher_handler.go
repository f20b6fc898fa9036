package handler

import (
	"net/http"
	"time"

	"fooddelivery/internal/config"
	"fooddelivery/internal/repository"
	"fooddelivery/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type VoucherHandler struct {
	uc *usecase.VoucherUsecase
}

func NewVoucherHandler(uc *usecase.VoucherUsecase) *VoucherHandler {
	return &VoucherHandler{uc: uc}
}

type ValidateVoucherRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

// discount_valueは "12.5" でも 12.5 でも受ける
type VoucherRequest struct {
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	DiscountType      string          `json:"discount_type"`
	DiscountValue     decimal.Decimal `json:"discount_value"`
	MinOrderAmount    *int64          `json:"min_order_amount"`
	MaxDiscountAmount *int64          `json:"max_discount_amount"`
	UsageLimit        *int64          `json:"usage_limit"`
	PerUserLimit      *int64          `json:"per_user_limit"`
	ValidFrom         *time.Time      `json:"valid_from"`
	ValidTo           *time.Time      `json:"valid_to"`
	IsActive          *bool           `json:"is_active"`
}

func (r VoucherRequest) toInput() usecase.VoucherInput {
	return usecase.VoucherInput{
		Code:              r.Code,
		Name:              r.Name,
		Description:       r.Description,
		DiscountType:      r.DiscountType,
		DiscountValue:     r.DiscountValue,
		MinOrderAmount:    r.MinOrderAmount,
		MaxDiscountAmount: r.MaxDiscountAmount,
		UsageLimit:        r.UsageLimit,
		PerUserLimit:      r.PerUserLimit,
		ValidFrom:         r.ValidFrom,
		ValidTo:           r.ValidTo,
		IsActive:          r.IsActive,
	}
}

type GrantVoucherRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *VoucherHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.POST("/vouchers/validate", h.validate, optionalAuth(cfg, userRepo)...)

	g := authGroup(e, "/vouchers", cfg, userRepo)
	g.GET("", h.available)

	admin := adminGroup(e, cfg, userRepo)
	admin.GET("/vouchers", h.adminList)
	admin.POST("/vouchers", h.adminCreate)
	admin.PUT("/vouchers/:id", h.adminUpdate)
	admin.DELETE("/vouchers/:id", h.adminDeactivate)
	admin.POST("/vouchers/:id/grants", h.adminGrant)
	admin.GET("/vouchers/:id/grants", h.adminListGrants)
}

// 割引額のプレビュー（カウンタは進めない）
func (h *VoucherHandler) validate(c echo.Context) error {
	var req ValidateVoucherRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Preview(c.Request().Context(), optionalUserID(c), usecase.ValidateVoucherInput{
		Code:     req.Code,
		Subtotal: req.Subtotal,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VoucherHandler) available(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	subtotal, ok := queryInt64Ptr(c, "subtotal")
	if !ok {
		return badRequest(c, "invalid subtotal")
	}

	out, err := h.uc.ListAvailable(c.Request().Context(), userID, subtotal)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VoucherHandler) adminList(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.AdminList(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VoucherHandler) adminCreate(c echo.Context) error {
	var req VoucherRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.AdminCreate(c.Request().Context(), adminID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *VoucherHandler) adminUpdate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req VoucherRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.AdminUpdate(c.Request().Context(), adminID, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 注文履歴が参照するので物理削除はしない
func (h *VoucherHandler) adminDeactivate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.AdminDeactivate(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deactivated"})
}

func (h *VoucherHandler) adminGrant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req GrantVoucherRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.AdminGrant(c.Request().Context(), adminID, id, req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *VoucherHandler) adminListGrants(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.AdminListGrants(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
