package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/domain/policy"
	repo "fooddelivery/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 認証済みの呼び出し元
type Actor struct {
	UserID int64
	Role   model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// 配送料・最低注文額は設定値
type OrderSettings struct {
	ShippingFee    int64
	MinOrderAmount int64
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	users     repo.UserRepository
	validator CustomerInfoValidator
	publisher OrderEventPublisher
	metrics   OrderMetrics
	settings  OrderSettings
	log       *zap.Logger
	now       func() time.Time
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	users repo.UserRepository,
	validator CustomerInfoValidator,
	publisher OrderEventPublisher,
	metrics OrderMetrics,
	settings OrderSettings,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		items:     items,
		users:     users,
		validator: validator,
		publisher: publisher,
		metrics:   metrics,
		settings:  settings,
		log:       log,
		now:       time.Now,
	}
}

type LineItemInput struct {
	Kind        string
	ReferenceID int64
	Quantity    int64
}

type PlaceOrderInput struct {
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   *string
	CustomerAddress string
	Notes           string
	Items           []LineItemInput
	VoucherCode     string
	IdempotencyKey  string
}

type OrderItemOutput struct {
	ID          int64          `json:"id"`
	Kind        model.ItemKind `json:"kind"`
	ReferenceID int64          `json:"reference_id"`
	Name        string         `json:"name"`
	UnitPrice   int64          `json:"unit_price"`
	Quantity    int64          `json:"quantity"`
	LineTotal   int64          `json:"line_total"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	OrderNumber     string            `json:"order_number"`
	UserID          *int64            `json:"user_id"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	CustomerEmail   *string           `json:"customer_email"`
	CustomerAddress string            `json:"customer_address"`
	Notes           string            `json:"notes"`
	Subtotal        int64             `json:"subtotal"`
	ShippingFee     int64             `json:"shipping_fee"`
	Discount        int64             `json:"discount"`
	Total           int64             `json:"total"`
	VoucherCode     *string           `json:"voucher_code"`
	Status          string            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Items           []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// PlaceOrder はゲスト（userID=nil）と会員の両方の注文を受ける。
// 価格は必ずカタログから取り直し、明細・割引の消費・カートのクリアを1つのTxで行う。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID *int64, in PlaceOrderInput) (OrderOutput, error) {
	if len(in.Items) == 0 {
		return OrderOutput{}, validationError("items required")
	}
	for _, it := range in.Items {
		if !model.ItemKind(it.Kind).Valid() {
			return OrderOutput{}, validationError("invalid item kind")
		}
		if it.ReferenceID <= 0 {
			return OrderOutput{}, validationError("invalid reference_id")
		}
		if err := policy.ValidateQuantity(it.Quantity); err != nil {
			return OrderOutput{}, validationError(err.Error())
		}
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, validationError("invalid idempotency key")
	}

	//会員はプロフィールで不足分を埋める
	if userID != nil {
		user, err := u.users.FindByID(ctx, *userID)
		if err != nil || user == nil {
			return OrderOutput{}, unauthorizedError()
		}
		if !user.IsActive {
			return OrderOutput{}, forbiddenError("account disabled")
		}
		fillFromProfile(&in, user)
	} else {
		// ゲストは二重送信防止キーを持たない
		key = ""
	}

	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerAddress = strings.TrimSpace(in.CustomerAddress)
	if err := u.validator.ValidateCustomer(ctx, in.CustomerName, in.CustomerPhone, in.CustomerEmail, in.CustomerAddress); err != nil {
		return OrderOutput{}, validationError(err.Error())
	}

	var out OrderOutput
	var replayed bool
	var redeemed string

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, *userID, key)
			if err != nil {
				return dbError()
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return dbError()
				}
				out = toOrderOutput(existing, items)
				replayed = true
				return nil
			}
		}

		lines, subtotal, err := u.priceLines(ctx, r, in.Items)
		if err != nil {
			return err
		}

		//下限は割引より先に見る
		if err := policy.CheckMinimumOrder(subtotal, u.settings.MinOrderAmount); err != nil {
			ee, _ := policy.AsEligibilityError(err)
			return eligibilityError(ee)
		}

		var discount int64
		var voucherID *int64
		var voucherCode *string
		if strings.TrimSpace(in.VoucherCode) != "" {
			quote, err := evaluateVoucher(ctx, r.Vouchers(), u.log, userID, in.VoucherCode, subtotal, u.now(), true)
			if err != nil {
				return err
			}
			discount = quote.Discount
			voucherID = &quote.VoucherID
			voucherCode = &quote.Code
			redeemed = quote.Code
		}

		totals := policy.ComposeTotals(subtotal, u.settings.ShippingFee, discount)

		order := model.Order{
			OrderNumber:     newOrderNumber(u.now()),
			UserID:          userID,
			CustomerName:    in.CustomerName,
			CustomerPhone:   in.CustomerPhone,
			CustomerEmail:   in.CustomerEmail,
			CustomerAddress: in.CustomerAddress,
			Notes:           strings.TrimSpace(in.Notes),
			Subtotal:        totals.Subtotal,
			ShippingFee:     totals.ShippingFee,
			Discount:        totals.Discount,
			Total:           totals.Total,
			VoucherID:       voucherID,
			VoucherCode:     voucherCode,
			Status:          model.OrderStatusPending,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		orderID, err := r.Orders().Create(ctx, order)
		if errors.Is(err, repo.ErrConflict) && key != "" {
			// 同時に同じキーが入った
			return conflictError("duplicate order request")
		}
		if err != nil {
			u.log.Error("create order failed", zap.Error(err))
			return dbError()
		}
		order.ID = orderID

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, lines); err != nil {
			u.log.Error("create order items failed", zap.Int64("order_id", orderID), zap.Error(err))
			return dbError()
		}

		//カートをCHECKED_OUTにして、明細をクリア（再注文防止）
		if userID != nil {
			cart, err := r.Carts().FindActiveByUserID(ctx, *userID)
			switch {
			case err == nil:
				if err := r.Carts().Clear(ctx, cart.ID); err != nil {
					return dbError()
				}
				if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
					return dbError()
				}
			case errors.Is(err, repo.ErrNotFound):
			default:
				return dbError()
			}
		}

		now := u.now()
		order.CreatedAt = now
		order.UpdatedAt = now
		out = toOrderOutput(order, lines)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	if replayed {
		return out, nil
	}

	u.metrics.OrderPlaced(ctx, userID == nil, out.Total)
	if redeemed != "" {
		u.metrics.VoucherRedeemed(ctx, redeemed)
	}
	u.log.Info("order placed",
		zap.Int64("order_id", out.ID),
		zap.String("order_number", out.OrderNumber),
		zap.Bool("guest", userID == nil),
		zap.Int64("total", out.Total),
		zap.String("voucher", redeemed),
	)
	u.publish(ctx, newOrderEvent(model.OrderEventCreated, out, "", u.now()))

	return out, nil
}

// 明細をカタログの現在価格で組み立てる。1つでも不可なら注文全体を失敗にする
func (u *OrderUsecase) priceLines(ctx context.Context, r repo.TxRepos, reqs []LineItemInput) ([]model.OrderItem, int64, error) {
	lines := make([]model.OrderItem, 0, len(reqs))
	var subtotal int64

	for _, it := range reqs {
		ref := it.ReferenceID
		line := model.OrderItem{Kind: model.ItemKind(it.Kind), Quantity: it.Quantity}

		switch line.Kind {
		case model.ItemKindProduct:
			p, err := r.Products().FindByID(ctx, ref)
			if errors.Is(err, repo.ErrNotFound) {
				return nil, 0, notFoundError(fmt.Sprintf("product %d not found", ref))
			}
			if err != nil {
				return nil, 0, dbError()
			}
			if !p.IsActive {
				return nil, 0, inactiveItemError(fmt.Sprintf("item no longer available: %s", p.Name))
			}
			line.ProductID = &ref
			line.NameSnapshot = p.Name
			line.UnitPriceSnapshot = p.Price
		case model.ItemKindCombo:
			c, err := r.Combos().FindByID(ctx, ref)
			if errors.Is(err, repo.ErrNotFound) {
				return nil, 0, notFoundError(fmt.Sprintf("combo %d not found", ref))
			}
			if err != nil {
				return nil, 0, dbError()
			}
			if !c.IsActive {
				return nil, 0, inactiveItemError(fmt.Sprintf("item no longer available: %s", c.Name))
			}
			line.ComboID = &ref
			line.NameSnapshot = c.Name
			line.UnitPriceSnapshot = c.Price
		}

		next, err := policy.AddLineTotal(subtotal, line.UnitPriceSnapshot, line.Quantity)
		if err != nil {
			return nil, 0, validationError("order amount out of range")
		}
		subtotal = next
		lines = append(lines, line)
	}
	return lines, subtotal, nil
}

func fillFromProfile(in *PlaceOrderInput, user *model.User) {
	if strings.TrimSpace(in.CustomerName) == "" {
		in.CustomerName = user.Name
	}
	if strings.TrimSpace(in.CustomerPhone) == "" {
		in.CustomerPhone = user.Phone
	}
	if in.CustomerEmail == nil || strings.TrimSpace(*in.CustomerEmail) == "" {
		in.CustomerEmail = user.Email
	}
	if strings.TrimSpace(in.CustomerAddress) == "" {
		in.CustomerAddress = user.Address
	}
}

// ORD-<unix millis>-<uuid先頭6桁>
func newOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), strings.ToUpper(suffix))
}

func (u *OrderUsecase) ListMine(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, unauthorizedError()
	}
	if page < 1 {
		return OrderListOutput{}, validationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, validationError("invalid limit")
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, dbError()
	}
	outs, err := u.withItems(ctx, orders)
	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}, nil
}

// 本人か管理者のみ。他人の注文は「存在しない扱い」にする
func (u *OrderUsecase) Get(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, notFoundError("order not found")
	}
	if err != nil {
		return OrderOutput{}, dbError()
	}
	if !actor.IsAdmin() && (o.UserID == nil || *o.UserID != actor.UserID) {
		return OrderOutput{}, notFoundError("order not found")
	}

	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, dbError()
	}
	return toOrderOutput(o, items), nil
}

// 顧客本人のキャンセル（PENDINGのみ）
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	var out OrderOutput
	var from model.OrderStatus
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}
		if o.UserID == nil || *o.UserID != userID {
			return forbiddenError("forbidden")
		}
		if err := policy.CanCustomerCancel(o.Status); err != nil {
			return forbiddenError(err.Error())
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return dbError()
		}
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError()
		}

		from = o.Status
		o.Status = model.OrderStatusCancelled
		o.UpdatedAt = u.now()
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.metrics.StatusChanged(ctx, string(model.OrderStatusCancelled))
	u.log.Info("order cancelled by customer", zap.Int64("order_id", orderID), zap.Int64("user_id", userID))
	u.publish(ctx, newOrderEvent(model.OrderEventCancelled, out, from, u.now()))
	return out, nil
}

func (u *OrderUsecase) withItems(ctx context.Context, orders []model.Order) ([]OrderOutput, error) {
	return ordersWithItems(ctx, u.items, orders)
}

// 送信失敗はログだけ（注文は確定済み）
func (u *OrderUsecase) publish(ctx context.Context, ev model.OrderEvent) {
	publishEvent(ctx, u.publisher, u.log, ev)
}

func publishEvent(ctx context.Context, p OrderEventPublisher, log *zap.Logger, ev model.OrderEvent) {
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("order event publish failed",
			zap.String("type", string(ev.Type)),
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}

func newOrderEvent(typ model.OrderEventType, o OrderOutput, from model.OrderStatus, at time.Time) model.OrderEvent {
	return model.OrderEvent{
		EventID:     uuid.NewString(),
		Type:        typ,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		FromStatus:  from,
		Status:      model.OrderStatus(o.Status),
		Total:       o.Total,
		VoucherCode: o.VoucherCode,
		OccurredAt:  at,
	}
}

func ordersWithItems(ctx context.Context, items repo.OrderItemRepository, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		its, err := items.ListByOrderID(ctx, o.ID)
		if err != nil {
			return []OrderOutput{}, dbError()
		}
		outs = append(outs, toOrderOutput(o, its))
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		ref := int64(0)
		if it.Kind == model.ItemKindCombo && it.ComboID != nil {
			ref = *it.ComboID
		} else if it.ProductID != nil {
			ref = *it.ProductID
		}
		outItems = append(outItems, OrderItemOutput{
			ID:          it.ID,
			Kind:        it.Kind,
			ReferenceID: ref,
			Name:        it.NameSnapshot,
			UnitPrice:   it.UnitPriceSnapshot,
			Quantity:    it.Quantity,
			LineTotal:   policy.LineTotal(it.UnitPriceSnapshot, it.Quantity),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerEmail:   o.CustomerEmail,
		CustomerAddress: o.CustomerAddress,
		Notes:           o.Notes,
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		Discount:        o.Discount,
		Total:           o.Total,
		VoucherCode:     o.VoucherCode,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           outItems,
	}
}
