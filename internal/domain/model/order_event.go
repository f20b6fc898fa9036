package model

import "time"

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventCancelled     OrderEventType = "order.cancelled"
)

// kafkaへ流す注文イベント
type OrderEvent struct {
	EventID     string         `json:"event_id"`
	Type        OrderEventType `json:"type"`
	OrderID     int64          `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	UserID      *int64         `json:"user_id,omitempty"`
	FromStatus  OrderStatus    `json:"from_status,omitempty"`
	Status      OrderStatus    `json:"status"`
	Total       int64          `json:"total"`
	VoucherCode *string        `json:"voucher_code,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
