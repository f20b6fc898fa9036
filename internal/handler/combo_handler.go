package handler

import (
	"net/http"

	"fooddelivery/internal/config"
	"fooddelivery/internal/repository"
	"fooddelivery/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ComboHandler struct {
	uc *usecase.ComboUsecase
}

func NewComboHandler(uc *usecase.ComboUsecase) *ComboHandler {
	return &ComboHandler{uc: uc}
}

type ComboItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type ComboRequest struct {
	CategoryID    *int64             `json:"category_id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Price         int64              `json:"price"`
	OriginalPrice int64              `json:"original_price"`
	ImageURL      string             `json:"image_url"`
	IsActive      *bool              `json:"is_active"`
	Items         []ComboItemRequest `json:"items"`
}

func (r ComboRequest) toInput() usecase.ComboInput {
	items := make([]usecase.ComboItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, usecase.ComboItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return usecase.ComboInput{
		CategoryID:    r.CategoryID,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		ImageURL:      r.ImageURL,
		IsActive:      r.IsActive,
		Items:         items,
	}
}

func (h *ComboHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	opt := optionalAuth(cfg, userRepo)
	e.GET("/combos", h.list, opt...)
	e.GET("/combos/:id", h.detail, opt...)

	admin := adminGroup(e, cfg, userRepo)
	admin.POST("/combos", h.create)
	admin.PUT("/combos/:id", h.update)
	admin.DELETE("/combos/:id", h.delete)
}

func (h *ComboHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	categoryID, ok := queryInt64Ptr(c, "category_id")
	if !ok {
		return badRequest(c, "invalid category_id")
	}

	out, err := h.uc.List(c.Request().Context(), repository.ComboListQuery{
		Page:            page,
		Limit:           limit,
		CategoryID:      categoryID,
		IncludeInactive: includeInactive(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ComboHandler) detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), id, includeInactive(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ComboHandler) create(c echo.Context) error {
	var req ComboRequest
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

func (h *ComboHandler) update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req ComboRequest
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

func (h *ComboHandler) delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.AdminDelete(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
