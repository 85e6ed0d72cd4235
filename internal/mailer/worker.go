package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Deliverer interface {
	Deliver(ctx context.Context, message PasswordResetMessage) error
}

const defaultRetryDelay = 5 * time.Second

// Worker drains the reset queue. Malformed messages are dropped. A failed
// delivery goes back on the queue once after retryDelay; a redelivered
// message that fails again is dropped.
type Worker struct {
	deliverer  Deliverer
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewWorker(deliverer Deliverer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{deliverer: deliverer, logger: logger, retryDelay: defaultRetryDelay}
}

// Run consumes queue on url until ctx is cancelled or the channel closes.
func (worker *Worker) Run(ctx context.Context, url string, queue string) error {
	conn, channel, err := openQueue(url, queue)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer channel.Close()

	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	deliveries, err := channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", queue, err)
	}

	worker.logger.Info("mail worker started", "queue", queue)
	return worker.Consume(ctx, deliveries)
}

func (worker *Worker) Consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			worker.logger.Info("mail worker stopping")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			worker.Handle(ctx, delivery)
		}
	}
}

func (worker *Worker) Handle(ctx context.Context, delivery amqp.Delivery) {
	logger := worker.logger.With("message_id", delivery.MessageId)

	message, err := DecodePasswordResetMessage(delivery.Body)
	if err != nil {
		logger.Warn("dropping malformed reset message", "error", err)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			logger.Error("nack failed", "error", nackErr)
		}
		return
	}

	if err := worker.deliverer.Deliver(ctx, message); err != nil {
		requeue := !delivery.Redelivered
		logger.Error("reset email delivery failed", "error", err, "requeue", requeue)
		if requeue {
			worker.wait(ctx)
		}
		if nackErr := delivery.Nack(false, requeue); nackErr != nil {
			logger.Error("nack failed", "error", nackErr)
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		logger.Error("ack failed", "error", err)
		return
	}
	logger.Info("reset email sent")
}

func (worker *Worker) wait(ctx context.Context) {
	if worker.retryDelay <= 0 {
		return
	}
	timer := time.NewTimer(worker.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
