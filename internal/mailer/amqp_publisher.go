package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/terraincognita07/roomdesk/internal/logging"
)

const publishTimeout = 5 * time.Second

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher queues reset messages for the mail worker.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
	now     func() time.Time
	logger  *slog.Logger
}

func DialAMQPPublisher(url string, queue string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, channel, err := openQueue(url, queue)
	if err != nil {
		return nil, err
	}
	publisher := NewAMQPPublisher(channel, queue, logger)
	publisher.conn = conn
	return publisher, nil
}

func NewAMQPPublisher(channel amqpChannel, queue string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{channel: channel, queue: queue, now: time.Now, logger: logger}
}

func (publisher *AMQPPublisher) SendPasswordReset(ctx context.Context, email string, resetLink string) error {
	message := NewPasswordResetMessage(email, resetLink, publisher.now())
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode password reset message: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := publisher.channel.PublishWithContext(publishCtx, "", publisher.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    message.ID,
		Timestamp:    message.CreatedAt,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish password reset message: %w", err)
	}

	logging.FromContext(ctx, publisher.logger).Info("password reset queued", "queue", publisher.queue, "message_id", message.ID)
	return nil
}

func (publisher *AMQPPublisher) Close() error {
	var err error
	if publisher.channel != nil {
		err = publisher.channel.Close()
	}
	if publisher.conn != nil {
		if closeErr := publisher.conn.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

func openQueue(url string, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return conn, channel, nil
}
