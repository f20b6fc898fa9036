package usecase

import (
	"context"

	"fooddelivery/internal/domain/model"
)

type SuccessResponse struct {
	Message string `json:"message"`
}

// 注文イベントの送信先（kafka）。commit後に呼ぶ
type OrderEventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

// 業務メトリクス
type OrderMetrics interface {
	OrderPlaced(ctx context.Context, guest bool, total int64)
	VoucherRedeemed(ctx context.Context, code string)
	StatusChanged(ctx context.Context, to string)
}

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, name, phone string, email *string, password string) error
	ValidateLogin(ctx context.Context, phone string, password string) error
}

// 注文者情報の検証
type CustomerInfoValidator interface {
	ValidateCustomer(ctx context.Context, name, phone string, email *string, address string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.OrderEvent) error { return nil }

// kafka未設定のとき用
func NopPublisher() OrderEventPublisher { return nopPublisher{} }

type nopMetrics struct{}

func (nopMetrics) OrderPlaced(context.Context, bool, int64) {}
func (nopMetrics) VoucherRedeemed(context.Context, string) {}
func (nopMetrics) StatusChanged(context.Context, string) {}

func NopMetrics() OrderMetrics { return nopMetrics{} }
