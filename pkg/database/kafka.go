package database

import (
	"context"
	"fmt"
	"time"

	"campus_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaReaderWithRetry dial the first reachable broker before building a consumer group reader
func NewKafkaReaderWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Reader, error) {
	var err error

	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		for _, broker := range k.Brokers {
			var conn *kafka.Conn
			conn, err = kafka.DialContext(ctx, "tcp", broker)
			if err != nil {
				continue
			}
			_ = conn.Close()

			logger.Log.Info("Kafka reachable", zap.String("broker", broker), zap.Int("attempt", attempt))
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:  k.Brokers,
				Topic:    k.Topic,
				GroupID:  k.GroupID,
				MinBytes: 1,
				MaxBytes: 10e6,
			}), nil
		}

		logger.Log.Warn("Kafka unreachable, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max", k.RetryCount),
			zap.Error(err),
		)
		time.Sleep(k.RetryInterval)
	}

	return nil, fmt.Errorf("reach kafka %v after %d attempts: %w", k.Brokers, k.RetryCount, err)
}
