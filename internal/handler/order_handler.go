package handler

import (
	"net/http"

	"fooddelivery/internal/config"
	"fooddelivery/internal/repository"
	"fooddelivery/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderLineRequest struct {
	Kind        string `json:"kind"`
	ReferenceID int64  `json:"reference_id"`
	Quantity    int64  `json:"quantity"`
}

// 価格はクライアントから受け取らない
type PlaceOrderRequest struct {
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerEmail   *string            `json:"customer_email"`
	CustomerAddress string             `json:"customer_address"`
	Notes           string             `json:"notes"`
	Items           []OrderLineRequest `json:"items"`
	VoucherCode     string             `json:"voucher_code"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	// ゲスト注文あり
	e.POST("/orders", h.placeOrder, optionalAuth(cfg, userRepo)...)

	g := authGroup(e, "/orders", cfg, userRepo)
	g.GET("", h.listMine)
	g.GET("/:id", h.detail)
	g.DELETE("/:id", h.cancel)
}

func (h *OrderHandler) placeOrder(c echo.Context) error {
	var req PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	items := make([]usecase.LineItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.LineItemInput{
			Kind:        it.Kind,
			ReferenceID: it.ReferenceID,
			Quantity:    it.Quantity,
		})
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), optionalUserID(c), usecase.PlaceOrderInput{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
		Items:           items,
		VoucherCode:     req.VoucherCode,
		IdempotencyKey:  c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) listMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.ListMine(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 本人か管理者だけ。他人の注文は404
func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), actor, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 顧客キャンセル（PENDINGのときだけ）
func (h *OrderHandler) cancel(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Cancel(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
