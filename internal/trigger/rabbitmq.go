package trigger

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"readwise_digest/internal/domain"
)

// Runner is the digest pipeline invoked for each trigger message.
type Runner interface {
	Run(ctx context.Context) (*domain.RunResult, error)
}

type Config struct {
	URL   string
	Queue string
}

// RabbitMQ consumes "run now" messages. The payload is opaque: arrival alone
// starts a run.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.Queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	logger.Info("connected to rabbitmq", "queue", q.Name)

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		logger:  logger,
	}, nil
}

// Listen blocks until the context is cancelled, running the pipeline once per
// delivery. Successful runs ack the message; failed runs nack without
// requeue so a broken digest does not loop.
func (t *RabbitMQ) Listen(ctx context.Context, runner Runner) error {
	deliveries, err := t.channel.Consume(
		t.queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	t.logger.Info("listening for run triggers", "queue", t.queue)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("trigger listener stopped")
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			t.handle(ctx, runner, delivery)
		}
	}
}

func (t *RabbitMQ) handle(ctx context.Context, runner Runner, delivery amqp.Delivery) {
	t.logger.Info("received run trigger", "payload_bytes", len(delivery.Body))

	result, err := runner.Run(ctx)
	if err != nil {
		t.logger.Error("triggered run failed", "error", err)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			t.logger.Error("failed to nack trigger", "error", nackErr)
		}
		return
	}

	t.logger.Info("triggered run completed",
		"path", result.Path,
		"commit", result.CommitSHA,
		"unchanged", result.Unchanged,
	)

	if ackErr := delivery.Ack(false); ackErr != nil {
		t.logger.Error("failed to ack trigger", "error", ackErr)
	}
}

func (t *RabbitMQ) Close() error {
	if t.channel != nil {
		t.channel.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
