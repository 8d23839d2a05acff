package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var floodEvent = domain.ReportEvent{
	ReportID:   "r1",
	Title:      "Flooded corridor",
	Categories: []string{"Facilities"},
	Status:     "open",
	Action:     domain.ReportCreated,
}

func delivery(ack amqp.Acknowledger, tag uint64, body []byte) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func TestRabbitReportConsumer(t *testing.T) {
	logger.SetNewNop()
	good, _ := json.Marshal(floodEvent)

	ack := new(MockAcknowledger)
	ack.On("Ack", uint64(1), false).Return(nil)
	ack.On("Ack", uint64(2), false).Return(nil)
	ack.On("Nack", uint64(3), false, true).Return(nil)

	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- delivery(ack, 1, good)
	deliveries <- delivery(ack, 2, []byte("not json"))
	deliveries <- delivery(ack, 3, good)
	close(deliveries)

	rabbit := new(MockRabbitRepo)
	rabbit.On("Consume", "report_events", "chat_service").Return((<-chan amqp.Delivery)(deliveries), nil)

	notifier := new(MockReportNotifier)
	notifier.On("NotifyReport", mock.Anything, floodEvent).Return(nil).Once()
	notifier.On("NotifyReport", mock.Anything, floodEvent).Return(fmt.Errorf("x: %w", domain.ErrStore)).Once()

	c := NewRabbitReportConsumer(rabbit, "report_events")
	c.retryDelay = 0
	require.NoError(t, c.Run(context.Background(), notifier))

	ack.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRabbitReportConsumerConsumeError(t *testing.T) {
	logger.SetNewNop()
	rabbit := new(MockRabbitRepo)
	rabbit.On("Consume", "q", "chat_service").Return(nil, errors.New("channel closed"))

	err := NewRabbitReportConsumer(rabbit, "q").Run(context.Background(), new(MockReportNotifier))
	assert.Error(t, err)
}

func TestKafkaReportConsumer(t *testing.T) {
	logger.SetNewNop()
	good, _ := json.Marshal(floodEvent)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m1 := kafka.Message{Offset: 1, Value: good}
	m2 := kafka.Message{Offset: 2, Value: []byte(`{"title":""}`)}

	reader := new(MockKafkaReader)
	reader.On("FetchMessage", mock.Anything).Return(m1, nil).Once()
	reader.On("FetchMessage", mock.Anything).Return(m2, nil).Once()
	reader.On("FetchMessage", mock.Anything).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })
	reader.On("CommitMessages", mock.Anything, []kafka.Message{m1}).Return(nil)
	reader.On("CommitMessages", mock.Anything, []kafka.Message{m2}).Return(nil)
	reader.On("Close").Return(nil)

	notifier := new(MockReportNotifier)
	notifier.On("NotifyReport", mock.Anything, floodEvent).Return(fmt.Errorf("x: %w", domain.ErrStore)).Once()
	notifier.On("NotifyReport", mock.Anything, floodEvent).Return(nil).Once()
	notifier.On("NotifyReport", mock.Anything, domain.ReportEvent{}).Return(domain.ErrInvalidPayload)

	c := NewKafkaReportConsumer(reader)
	c.retryDelay = time.Millisecond

	require.NoError(t, c.Run(ctx, notifier))
	reader.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "NotifyReport", 3)
}
