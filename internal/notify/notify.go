package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event is what the scheduling façade emits after a state change. The
// engine never delivers anything to a user itself; a Notifier consumer
// (push, email, toast) decides what to do with the event.
type Event struct {
	Type          string         `json:"type"`
	AppointmentID *uuid.UUID     `json:"appointment_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, ev Event) error
}

// LogNotifier writes events to the service log. The default in dev and
// the fallback when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userID uuid.UUID, ev Event) error {
	fields := []zap.Field{
		zap.String("user_id", userID.String()),
		zap.String("event", ev.Type),
		zap.Any("payload", ev.Payload),
	}
	if ev.AppointmentID != nil {
		fields = append(fields, zap.String("appointment_id", ev.AppointmentID.String()))
	}
	n.logger.Info("notify", fields...)
	return nil
}

// RedisNotifier publishes events to a per-user pub/sub channel. Whoever
// subscribes to notify:user:<id> owns delivery.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, userID uuid.UUID, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}
	channel := "notify:user:" + userID.String()
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
