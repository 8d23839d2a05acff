package database

import (
	"fmt"
	"time"

	"campus_chat_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitRepo definition rabbit consumer side
type RabbitRepo interface {
	Consume(queue, consumer string) (<-chan amqp.Delivery, error)
}

type rabbitRepo struct {
	channel *amqp.Channel
}

// NewRabbitRepository create a RabbitRepository
func NewRabbitRepository(ch *amqp.Channel) RabbitRepo {
	return &rabbitRepo{channel: ch}
}

// ConnectRabbitMQWithRetry 嘗試連線到 RabbitMQ
func ConnectRabbitMQWithRetry(d Connection) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)

	for attempt := 1; attempt <= d.RetryCount; attempt++ {
		conn, err = amqp.Dial(d.ConnectStr)
		if err == nil {
			logger.Log.Info("RabbitMQ connected", zap.Int("attempt", attempt))
			return conn, nil
		}

		logger.Log.Warn("RabbitMQ connect failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max", d.RetryCount),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval)
	}

	return nil, fmt.Errorf("connect RabbitMQ after %d attempts: %w", d.RetryCount, err)
}

// GetRabbitMQChannelWithRetry 使用已有的 RabbitMQ 連線嘗試取得 Channel
func GetRabbitMQChannelWithRetry(conn *amqp.Connection, maxRetries int, delay time.Duration) (*amqp.Channel, error) {
	var (
		ch  *amqp.Channel
		err error
	)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ch, err = conn.Channel()
		if err == nil {
			return ch, nil
		}

		logger.Log.Warn("RabbitMQ channel failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("open RabbitMQ channel after %d attempts: %w", maxRetries, err)
}

// Consume declare queue as durable and start delivering from it
func (r *rabbitRepo) Consume(queue, consumer string) (<-chan amqp.Delivery, error) {
	if _, err := r.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return r.channel.Consume(queue, consumer, false, false, false, false, nil)
}
