package messaging

import (
	"context"
	"time"

	"fooddelivery/internal/domain/model"
)

// 注文イベントをorder_numberをキーにして送る
type OrderPublisher struct {
	producer *Producer
	timeout  time.Duration
}

func NewOrderPublisher(producer *Producer, timeout time.Duration) *OrderPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OrderPublisher{producer: producer, timeout: timeout}
}

// リクエストが終わっても送り切れるように親のキャンセルは引き継がない
func (p *OrderPublisher) Publish(ctx context.Context, ev model.OrderEvent) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	return p.producer.Send(ctx, ev.OrderNumber, ev)
}

func (p *OrderPublisher) Close() error {
	return p.producer.Close()
}
