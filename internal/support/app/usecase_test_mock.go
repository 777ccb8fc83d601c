package app

import (
	"context"

	"support_chat_service/internal/support/domain"
	"support_chat_service/internal/support/repository"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// ResolveOrCreate moke resolve or create active conversation
func (m *MockConversationRepository) ResolveOrCreate(ctx context.Context, userID, userRole, tenantID string) (*domain.Conversation, bool, error) {
	args := m.Called(ctx, userID, userRole, tenantID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

// FindByID moke find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// ApplyMessage moke apply last message and unread bump
func (m *MockConversationRepository) ApplyMessage(ctx context.Context, conversationID, senderID string, senderIsStaff bool, last domain.LastMessage) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, senderID, senderIsStaff, last)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// ResetUnread moke reset one counter side
func (m *MockConversationRepository) ResetUnread(ctx context.Context, conversationID, counterKey string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, counterKey)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// Close moke archive conversation
func (m *MockConversationRepository) Close(ctx context.Context, conversationID, closedBy string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, closedBy)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetPriority moke set priority
func (m *MockConversationRepository) SetPriority(ctx context.Context, conversationID string, priority domain.Priority) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, priority)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetStatus moke set status
func (m *MockConversationRepository) SetStatus(ctx context.Context, conversationID string, status domain.ConversationStatus) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, status)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// List moke list conversations
func (m *MockConversationRepository) List(ctx context.Context, q repository.ConversationQuery) ([]domain.Conversation, error) {
	args := m.Called(ctx, q)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Append moke append message
func (m *MockMessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, bool, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

// ListSince moke list messages after seq
func (m *MockMessageRepository) ListSince(ctx context.Context, conversationID string, afterSeq int64, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, afterSeq, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkSeen moke mark messages seen
func (m *MockMessageRepository) MarkSeen(ctx context.Context, conversationID, viewerID string) (int64, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventBus Mock EventBus
type MockEventBus struct {
	mock.Mock
}

// Publish moke publisher
func (m *MockEventBus) Publish(room, event string, payload interface{}) error {
	args := m.Called(room, event, payload)
	return args.Error(0)
}

// Subscribe moke subscriber
func (m *MockEventBus) Subscribe(ctx context.Context, room string, handler func(domain.Event)) error {
	args := m.Called(ctx, room, mock.Anything)
	return args.Error(0)
}

// NumSub moke channel subscriber count
func (m *MockEventBus) NumSub(room string) (int64, error) {
	args := m.Called(room)
	return args.Get(0).(int64), args.Error(1)
}

// MockPushQueue Mock PushQueue
type MockPushQueue struct {
	mock.Mock
}

// Enqueue moke push hand-off
func (m *MockPushQueue) Enqueue(notification domain.PushNotification) error {
	args := m.Called(notification)
	return args.Error(0)
}

// ConsumeResults moke result consumer
func (m *MockPushQueue) ConsumeResults(ctx context.Context, handle func(domain.PushResult)) error {
	args := m.Called(ctx, mock.Anything)
	return args.Error(0)
}

// MockJournalRepository Mock JournalRepository
type MockJournalRepository struct {
	mock.Mock
}

// Record moke journal write
func (m *MockJournalRepository) Record(ctx context.Context, entry domain.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockDeviceTokenSource Mock DeviceTokenSource
type MockDeviceTokenSource struct {
	mock.Mock
}

// DeviceTokens moke token lookup
func (m *MockDeviceTokenSource) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// PruneTokens moke token prune
func (m *MockDeviceTokenSource) PruneTokens(ctx context.Context, userID string, invalid []string) error {
	args := m.Called(ctx, userID, invalid)
	return args.Error(0)
}
