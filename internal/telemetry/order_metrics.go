package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "fooddelivery/orders"

// 注文まわりの業務メトリクス
type OrderMetrics struct {
	placed       metric.Int64Counter
	redemptions  metric.Int64Counter
	statusChange metric.Int64Counter
	orderTotal   metric.Int64Histogram
}

// グローバルMeterProviderから作る（未設定ならnoop）
func NewOrderMetrics() (*OrderMetrics, error) {
	meter := otel.Meter(meterName)

	placed, err := meter.Int64Counter("orders_placed_total",
		metric.WithDescription("Orders placed"))
	if err != nil {
		return nil, err
	}
	redemptions, err := meter.Int64Counter("voucher_redemptions_total",
		metric.WithDescription("Vouchers redeemed by placed orders"))
	if err != nil {
		return nil, err
	}
	statusChange, err := meter.Int64Counter("order_status_changes_total",
		metric.WithDescription("Order status changes"))
	if err != nil {
		return nil, err
	}
	orderTotal, err := meter.Int64Histogram("order_total_vnd",
		metric.WithDescription("Payable total of placed orders"),
		metric.WithUnit("VND"))
	if err != nil {
		return nil, err
	}

	return &OrderMetrics{
		placed:       placed,
		redemptions:  redemptions,
		statusChange: statusChange,
		orderTotal:   orderTotal,
	}, nil
}

func (m *OrderMetrics) OrderPlaced(ctx context.Context, guest bool, total int64) {
	attrs := metric.WithAttributes(attribute.String("guest", strconv.FormatBool(guest)))
	m.placed.Add(ctx, 1, attrs)
	m.orderTotal.Record(ctx, total, attrs)
}

func (m *OrderMetrics) VoucherRedeemed(ctx context.Context, code string) {
	m.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *OrderMetrics) StatusChanged(ctx context.Context, to string) {
	m.statusChange.Add(ctx, 1, metric.WithAttributes(attribute.String("to", to)))
}
