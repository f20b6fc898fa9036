package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"fooddelivery/internal/domain/model"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestMessageCarrier_SetGetKeys(t *testing.T) {
	msg := kafka.Message{}
	c := NewMessageCarrier(&msg)

	c.Set("traceparent", "a")
	c.Set("baggage", "b")
	c.Set("traceparent", "c")

	assert.Equal(t, "c", c.Get("traceparent"))
	assert.Equal(t, "b", c.Get("baggage"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, c.Keys())
	assert.Len(t, msg.Headers, 2)
}

func TestOrderPublisher_PublishKeyedByOrderNumber(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	w := &fakeWriter{}
	pub := NewOrderPublisher(NewProducerWithWriter(w, "orders"), time.Second)

	uid := int64(7)
	ev := model.OrderEvent{
		EventID:     "e-1",
		Type:        model.OrderEventCreated,
		OrderID:     10,
		OrderNumber: "ORD-1-ABCDEF",
		UserID:      &uid,
		Status:      model.OrderStatusPending,
		Total:       120000,
		OccurredAt:  time.Unix(0, 0).UTC(),
	}

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	require.NoError(t, pub.Publish(ctx, ev))
	span.End()

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ORD-1-ABCDEF", string(msg.Key))

	var got model.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev.OrderID, got.OrderID)
	assert.Equal(t, ev.Type, got.Type)
	assert.NotEmpty(t, NewMessageCarrier(&msg).Get("traceparent"))

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestOrderPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	pub := NewOrderPublisher(NewProducerWithWriter(w, "orders"), 0)

	err := pub.Publish(context.Background(), model.OrderEvent{OrderNumber: "ORD-2"})
	assert.EqualError(t, err, "broker down")
}
