package policy

import (
	"errors"
	"strings"

	"fooddelivery/internal/domain/model"
)

var (
	ErrInvalidStatus          = errors.New("invalid status")
	ErrTerminalStatus         = errors.New("order is already delivered or cancelled")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrOnlyPendingCancellable = errors.New("only pending orders can be cancelled")
)

// 前進の順序
var forward = map[model.OrderStatus]model.OrderStatus{
	model.OrderStatusPending:   model.OrderStatusConfirmed,
	model.OrderStatusConfirmed: model.OrderStatusPreparing,
	model.OrderStatusPreparing: model.OrderStatusReady,
	model.OrderStatusReady:     model.OrderStatusDelivered,
}

func ParseOrderStatus(s string) (model.OrderStatus, error) {
	st := model.OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case model.OrderStatusPending,
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusReady,
		model.OrderStatusDelivered,
		model.OrderStatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

func IsTerminal(s model.OrderStatus) bool {
	return s == model.OrderStatusDelivered || s == model.OrderStatusCancelled
}

func NextStatus(s model.OrderStatus) (model.OrderStatus, bool) {
	next, ok := forward[s]
	return next, ok
}

// CanAdminTransition は管理者による from→to を判定する。
// 前進は1段ずつ、キャンセルは終端以外ならいつでも。
func CanAdminTransition(from model.OrderStatus, to model.OrderStatus) error {
	if IsTerminal(from) {
		return ErrTerminalStatus
	}
	if to == model.OrderStatusCancelled {
		return nil
	}
	if next, ok := forward[from]; ok && next == to {
		return nil
	}
	return ErrInvalidTransition
}

// 顧客本人のキャンセルはPENDINGのときだけ
func CanCustomerCancel(from model.OrderStatus) error {
	if from != model.OrderStatusPending {
		return ErrOnlyPendingCancellable
	}
	return nil
}
