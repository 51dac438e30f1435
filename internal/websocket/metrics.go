package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records stream session activity. A nil *Metrics records nothing.
type Metrics struct {
	sessionsTotal   metric.Int64Counter
	sessionsActive  metric.Int64UpDownCounter
	sessionDuration metric.Float64Histogram
	messagesTotal   metric.Int64Counter
	messageBytes    metric.Int64Counter
	droppedMessages metric.Int64Counter
}

// NewMetrics creates the stream instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	sessionsTotal, err := meter.Int64Counter(
		"websocket_sessions_total",
		metric.WithDescription("Total number of QoL stream sessions"),
	)
	if err != nil {
		return nil, err
	}

	sessionsActive, err := meter.Int64UpDownCounter(
		"websocket_sessions_active",
		metric.WithDescription("Number of open QoL stream sessions"),
	)
	if err != nil {
		return nil, err
	}

	sessionDuration, err := meter.Float64Histogram(
		"websocket_session_duration_seconds",
		metric.WithDescription("Duration of QoL stream sessions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	messagesTotal, err := meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of stream messages written"),
	)
	if err != nil {
		return nil, err
	}

	messageBytes, err := meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("Total bytes of stream messages written"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	droppedMessages, err := meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Progress messages dropped because the send buffer was full"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		sessionsTotal:   sessionsTotal,
		sessionsActive:  sessionsActive,
		sessionDuration: sessionDuration,
		messagesTotal:   messagesTotal,
		messageBytes:    messageBytes,
		droppedMessages: droppedMessages,
	}, nil
}

func (m *Metrics) sessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsTotal.Add(ctx, 1)
	m.sessionsActive.Add(ctx, 1)
}

func (m *Metrics) sessionClosed(ctx context.Context, duration time.Duration) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, -1)
	m.sessionDuration.Record(ctx, duration.Seconds())
}

func (m *Metrics) messageSent(ctx context.Context, msgType string, size int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("message_type", msgType))
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, int64(size), attrs)
}

func (m *Metrics) messageDropped(ctx context.Context, msgType string) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("message_type", msgType)))
}
