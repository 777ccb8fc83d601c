package app

import (
	"context"
	"testing"
	"time"

	"support_chat_service/internal/support/domain"
	"support_chat_service/pkg/logger"

	errprocess "support_chat_service/pkg/err"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// a user message fans out to the conversation room and announces the update
// on the user, staff and tenant rooms
func TestDispatch_Fanout(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	userID := uuid.New().String()

	bus := new(MockEventBus)

	conv := activeConversation(userID)
	conv.TenantID = "tenant-1"
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Seq:            1,
		Sender:         userID,
		SenderRole:     "student",
		Content:        "hi",
		Kind:           domain.KindText,
	}

	bus.On("Publish", domain.ConversationRoom(conv.ID), domain.EventNewMessage, msg).Return(nil)
	bus.On("Publish", domain.UserRoom(userID), domain.EventConversationUpdated, conv).Return(nil)
	bus.On("Publish", domain.StaffRoom(), domain.EventConversationUpdated, conv).Return(nil)
	bus.On("Publish", domain.TenantRoom("tenant-1"), domain.EventConversationUpdated, conv).Return(nil)

	d := NewDispatcher(bus, NewPresence(bus), nil, nil, nil)
	err := d.Dispatch(ctx, conv, msg)

	assert.NoError(t, err)
	bus.AssertExpectations(t)
}

// an unreachable recipient with registered tokens gets a push hand-off
func TestDispatch_PushWhenUnreachable(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	userID := uuid.New().String()
	staffID := uuid.New().String()

	bus := new(MockEventBus)
	pushQueue := new(MockPushQueue)
	tokens := new(MockDeviceTokenSource)

	conv := activeConversation(userID)
	conv.Participants = []string{userID, staffID}
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Seq:            5,
		Sender:         staffID,
		SenderRole:     "admin",
		Content:        "we shipped a fix",
		Kind:           domain.KindText,
	}

	enqueued := make(chan struct{})
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	// nobody listens on the user's room
	bus.On("NumSub", domain.UserRoom(userID)).Return(int64(0), nil)
	tokens.On("DeviceTokens", mock.Anything, userID).Return([]string{"token-a", "token-b"}, nil)
	pushQueue.On("Enqueue", mock.MatchedBy(func(n domain.PushNotification) bool {
		return n.RecipientID == userID && len(n.DeviceTokens) == 2 && n.Body == "we shipped a fix"
	})).Return(nil).Run(func(mock.Arguments) { close(enqueued) })

	d := NewDispatcher(bus, NewPresence(bus), pushQueue, nil, tokens)
	err := d.Dispatch(ctx, conv, msg)
	assert.NoError(t, err)

	// the hand-off runs off the send path
	select {
	case <-enqueued:
	case <-time.After(2 * time.Second):
		t.Fatal("push was never enqueued")
	}
	pushQueue.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

// a reachable recipient gets no push
func TestDispatch_NoPushWhenReachable(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	userID := uuid.New().String()
	staffID := uuid.New().String()

	bus := new(MockEventBus)
	pushQueue := new(MockPushQueue)
	tokens := new(MockDeviceTokenSource)

	conv := activeConversation(userID)
	conv.Participants = []string{userID, staffID}
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Sender:         staffID,
		SenderRole:     "admin",
		Content:        "still there?",
		Kind:           domain.KindText,
	}

	checked := make(chan struct{})
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	bus.On("NumSub", domain.UserRoom(userID)).Return(int64(1), nil).Run(func(mock.Arguments) { close(checked) })

	d := NewDispatcher(bus, NewPresence(bus), pushQueue, nil, tokens)
	err := d.Dispatch(ctx, conv, msg)
	assert.NoError(t, err)

	select {
	case <-checked:
	case <-time.After(2 * time.Second):
		t.Fatal("reachability was never checked")
	}
	pushQueue.AssertNotCalled(t, "Enqueue", mock.Anything)
	tokens.AssertNotCalled(t, "DeviceTokens", mock.Anything, mock.Anything)
}

// typing indicators relay to the conversation room and nothing else
func TestRelayTyping(t *testing.T) {
	logger.SetNewNop()
	conversationID := uuid.New().String()
	senderID := uuid.New().String()

	bus := new(MockEventBus)
	carriesName := mock.MatchedBy(func(p domain.TypingPayload) bool {
		return p.Identity == senderID && p.DisplayName == "Ada"
	})
	bus.On("Publish", domain.ConversationRoom(conversationID), domain.EventTyping, carriesName).Return(nil)
	bus.On("Publish", domain.ConversationRoom(conversationID), domain.EventStopTyping, carriesName).Return(nil)

	d := NewDispatcher(bus, NewPresence(bus), nil, nil, nil)

	assert.NoError(t, d.RelayTyping(conversationID, senderID, "Ada", true))
	assert.NoError(t, d.RelayTyping(conversationID, senderID, "Ada", false))
	bus.AssertExpectations(t)
}

// a dispatcher without a bus refuses to run instead of panicking
func TestDispatch_NotInitialized(t *testing.T) {
	logger.SetNewNop()
	conv := activeConversation(uuid.New().String())

	d := NewDispatcher(nil, nil, nil, nil, nil)
	err := d.Dispatch(context.Background(), conv, &domain.Message{})

	assert.Error(t, err)
	assert.True(t, errprocess.IsKind(err, errprocess.KindNotInitialized))
}

// presence join twice on the same room only subscribes once
func TestPresence_JoinIdempotent(t *testing.T) {
	logger.SetNewNop()
	room := domain.ConversationRoom(uuid.New().String())

	bus := new(MockEventBus)
	bus.On("Subscribe", mock.Anything, room, mock.Anything).Return(nil).Once()

	p := NewPresence(bus)
	sess := NewSession(nil, uuid.New().String(), "student", "")

	assert.NoError(t, p.Join(sess, room, func(domain.Event) {}))
	assert.NoError(t, p.Join(sess, room, func(domain.Event) {}))
	bus.AssertExpectations(t)
}
