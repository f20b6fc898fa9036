package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"fooddelivery/internal/domain/model"
	"fooddelivery/internal/domain/policy"
	repo "fooddelivery/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	publisher OrderEventPublisher
	metrics   OrderMetrics
	log       *zap.Logger
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	publisher OrderEventPublisher,
	metrics OrderMetrics,
	log *zap.Logger,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		tx:        tx,
		orders:    orders,
		items:     items,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, validationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, validationError("invalid limit")
	}
	if f.Status != "" {
		st, err := policy.ParseOrderStatus(f.Status)
		if err != nil {
			return OrderListOutput{}, validationError("invalid status")
		}
		f.Status = string(st)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, validationError("from must be <= to")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		u.log.Error("admin list orders failed", zap.Error(err))
		return OrderListOutput{}, dbError()
	}
	outs, err := ordersWithItems(ctx, u.items, orders)
	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Items: outs, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// ステータス更新。前進は1段ずつ、キャンセルは終端以外ならいつでも
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	newStatus, err := policy.ParseOrderStatus(in.Status)
	if err != nil {
		return OrderOutput{}, validationError("invalid status")
	}

	var out OrderOutput
	var from model.OrderStatus
	changed := false

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError()
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			out = toOrderOutput(o, items)
			return nil
		}
		if err := policy.CanAdminTransition(o.Status, newStatus); err != nil {
			return validationError(err.Error())
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFoundError("order not found")
			}
			return dbError()
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		if err := writeAudit(ctx, r.AuditLogs(), actorAdminUserID, model.AuditActionUpdateOrderStatus,
			model.AuditResourceOrder, orderID,
			map[string]string{"status": string(o.Status)},
			map[string]string{"status": string(newStatus)},
		); err != nil {
			return dbError()
		}

		from = o.Status
		o.Status = newStatus
		o.UpdatedAt = time.Now()
		out = toOrderOutput(o, items)
		changed = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	if !changed {
		return out, nil
	}

	u.metrics.StatusChanged(ctx, string(newStatus))
	u.log.Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)),
		zap.Int64("admin_id", actorAdminUserID),
	)

	typ := model.OrderEventStatusChanged
	if newStatus == model.OrderStatusCancelled {
		typ = model.OrderEventCancelled
	}
	publishEvent(ctx, u.publisher, u.log, newOrderEvent(typ, out, from, time.Now()))
	return out, nil
}

// 期間パラメータ。handlerでtime.Parseしてここに入れる
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// 日付だけも受ける
		d, derr := time.Parse("2006-01-02", s)
		if derr != nil {
			return nil, false
		}
		t = d
	}
	return &t, true
}
