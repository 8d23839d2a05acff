package app

import (
	"context"

	"campus_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Append mock append
func (m *MockMessageRepository) Append(ctx context.Context, author domain.Author, text, replyToID string) (*domain.Message, error) {
	args := m.Called(ctx, author, text, replyToID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// ToggleReaction mock toggle
func (m *MockMessageRepository) ToggleReaction(ctx context.Context, messageID, userID, emoji string) ([]domain.Reaction, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Reaction), args.Error(1)
	}
	return nil, args.Error(1)
}

// RecentWindow mock history
func (m *MockMessageRepository) RecentWindow(ctx context.Context, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// ResolveReplyTargets mock reply expansion, fills msgs[i].ReplyTo from the "snapshot" argument when set
func (m *MockMessageRepository) ResolveReplyTargets(ctx context.Context, msgs []domain.Message) error {
	args := m.Called(ctx, msgs)
	if snap, ok := args.Get(0).(*domain.ReplySnapshot); ok {
		for i := range msgs {
			msgs[i].ReplyTo = snap
		}
	}
	return args.Error(1)
}

// EnsureIndexes mock index creation
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockMemberRepository Mock MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

// FindByID mock lookup
func (m *MockMemberRepository) FindByID(ctx context.Context, userID string) (*domain.Member, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockBroadcaster Mock Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

// Broadcast mock fan-out
func (m *MockBroadcaster) Broadcast(ctx context.Context, event domain.Event, data interface{}) error {
	return m.Called(ctx, event, data).Error(0)
}

// MockReportNotifier Mock ReportNotifier
type MockReportNotifier struct {
	mock.Mock
}

// NotifyReport mock notify
func (m *MockReportNotifier) NotifyReport(ctx context.Context, ev domain.ReportEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// MockRabbitRepo Mock database.RabbitRepo
type MockRabbitRepo struct {
	mock.Mock
}

// Consume mock consume
func (m *MockRabbitRepo) Consume(queue, consumer string) (<-chan amqp.Delivery, error) {
	args := m.Called(queue, consumer)
	if args.Get(0) != nil {
		return args.Get(0).(<-chan amqp.Delivery), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAcknowledger records ack/nack of amqp deliveries
type MockAcknowledger struct {
	mock.Mock
}

// Ack mock ack
func (m *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	return m.Called(tag, multiple).Error(0)
}

// Nack mock nack
func (m *MockAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	return m.Called(tag, multiple, requeue).Error(0)
}

// Reject mock reject
func (m *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	return m.Called(tag, requeue).Error(0)
}

// MockKafkaReader Mock kafka reader
type MockKafkaReader struct {
	mock.Mock
}

// FetchMessage mock fetch
func (m *MockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

// CommitMessages mock commit
func (m *MockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

// Close mock close
func (m *MockKafkaReader) Close() error {
	return m.Called().Error(0)
}
