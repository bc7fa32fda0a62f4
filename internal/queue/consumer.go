package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-ticket-vault/internal/logger"
)

// DefaultAuditLogPath is used when AUDIT_LOG_PATH is unset.
var DefaultAuditLogPath = filepath.Join("logs", "ticket-lifecycle.log")

// StartAuditConsumer consumes the lifecycle queue and appends one line
// per message to path.  It reconnects with backoff and returns only when
// ctx is cancelled.  Messages that cannot be handled are rejected
// without requeue so a bad payload cannot spin the loop.
func StartAuditConsumer(ctx context.Context, url, queue, path string) error {
	if queue == "" {
		queue = DefaultQueueName
	}
	if path == "" {
		path = DefaultAuditLogPath
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warnf(ctx, "audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, path)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warnf(ctx, "audit-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue, path string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warnf(ctx, "audit-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(d.Body, path); err != nil {
				logger.Errorf(ctx, "audit-consumer: handle message %s failed: %v", d.MessageId, err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one lifecycle message and appends its audit line
// to path, creating the directory if needed.
func HandleMessage(body []byte, path string) error {
	var ev LifecycleEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.Event == "" {
		return errors.New("lifecycle message missing type or event")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders a message as a single newline-terminated line.
func FormatAuditLine(ev LifecycleEvent) string {
	line := fmt.Sprintf("[%s] %s | owner=%q | event=%q", ev.OccurredAt, ev.Type, ev.Owner, ev.Event)
	if ev.Ticket != "" {
		line += " | ticket=" + ev.Ticket
	}
	line += fmt.Sprintf(" | total=%d | sold=%d | used=%d | available=%d", ev.Total, ev.Sold, ev.Used, ev.Available)
	if ev.CorrelationID != "" {
		line += " | correlation_id=" + ev.CorrelationID
	}
	return line + "\n"
}
