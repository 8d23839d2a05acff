package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/database"
	"campus_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ReportNotifier turns report events into system chat messages
type ReportNotifier interface {
	NotifyReport(ctx context.Context, ev domain.ReportEvent) error
}

// ReportSource delivers report events until ctx is done
type ReportSource interface {
	Run(ctx context.Context, notifier ReportNotifier) error
}

// retryable report failures are requeued, everything else is acknowledged and logged
func retryable(err error) bool {
	return err != nil && !errors.Is(err, domain.ErrValidation)
}

func decodeReport(body []byte) (domain.ReportEvent, error) {
	var ev domain.ReportEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, domain.ErrInvalidPayload
	}
	return ev, nil
}

// RabbitReportConsumer 從 RabbitMQ queue 消費報案事件
type RabbitReportConsumer struct {
	rabbit     database.RabbitRepo
	queueName  string
	retryDelay time.Duration
}

// NewRabbitReportConsumer 建構 RabbitReportConsumer
func NewRabbitReportConsumer(rabbit database.RabbitRepo, queueName string) *RabbitReportConsumer {
	return &RabbitReportConsumer{rabbit: rabbit, queueName: queueName, retryDelay: 5 * time.Second}
}

// Run 開始消費訊息
func (c *RabbitReportConsumer) Run(ctx context.Context, notifier ReportNotifier) error {
	msgs, err := c.rabbit.Consume(c.queueName, "chat_service")
	if err != nil {
		return err
	}
	logger.Log.Info("report consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Warn("report delivery channel closed", zap.String("queue", c.queueName))
				return nil
			}

			err := handleReport(ctx, notifier, d.Body)
			if retryable(err) {
				time.Sleep(c.retryDelay)
				if nackErr := d.Nack(false, true); nackErr != nil {
					logger.Log.Error("report nack", zap.Error(nackErr))
				}
				continue
			}
			if ackErr := d.Ack(false); ackErr != nil {
				logger.Log.Error("report ack", zap.Error(ackErr))
			}
		case <-ctx.Done():
			logger.Log.Info("report consumer stopped", zap.String("queue", c.queueName))
			return nil
		}
	}
}

// kafkaReader subset of *kafka.Reader used here
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaReportConsumer 從 Kafka topic 消費報案事件
type KafkaReportConsumer struct {
	reader     kafkaReader
	retryDelay time.Duration
}

// NewKafkaReportConsumer 建構 KafkaReportConsumer
func NewKafkaReportConsumer(reader kafkaReader) *KafkaReportConsumer {
	return &KafkaReportConsumer{reader: reader, retryDelay: 5 * time.Second}
}

// Run fetch, handle and commit until ctx is done. A retryable failure is retried before committing.
func (c *KafkaReportConsumer) Run(ctx context.Context, notifier ReportNotifier) error {
	defer c.reader.Close()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for retryable(handleReport(ctx, notifier, m.Value)) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			logger.Log.Error("report commit", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func handleReport(ctx context.Context, notifier ReportNotifier, body []byte) error {
	ev, err := decodeReport(body)
	if err == nil {
		err = notifier.NotifyReport(ctx, ev)
	}
	if err != nil {
		logger.Log.Error("report event", zap.String("report_id", ev.ReportID), zap.Error(err))
		return err
	}
	logger.Log.Info("report announced", zap.String("report_id", ev.ReportID), zap.String("action", string(ev.Action)))
	return nil
}
