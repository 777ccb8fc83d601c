package app

import (
	"context"
	"testing"
	"time"

	"support_chat_service/internal/support/domain"
	"support_chat_service/internal/support/repository"
	"support_chat_service/pkg/logger"

	errprocess "support_chat_service/pkg/err"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestUseCase(convRepo *MockConversationRepository, msgRepo *MockMessageRepository, bus *MockEventBus) *ConversationUseCase {
	logger.SetNewNop()
	dispatcher := NewDispatcher(bus, NewPresence(bus), nil, nil, nil)
	return NewConversationUseCase(convRepo, msgRepo, dispatcher)
}

func activeConversation(userID string) *domain.Conversation {
	now := time.Now().UTC()
	return &domain.Conversation{
		ID:           uuid.New().String(),
		UserID:       userID,
		UserRole:     "student",
		Participants: []string{userID},
		Status:       domain.ConversationActive,
		Priority:     domain.PriorityNormal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// first message from an end user lands in a freshly created conversation and
// bumps the staff counter
func TestRecordInboundMessage_FirstSendCreatesConversation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	caller := Caller{ID: userID, Role: "student", TenantID: "tenant-1"}

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	bus := new(MockEventBus)

	conv := activeConversation(userID)
	conv.TenantID = "tenant-1"
	convRepo.On("ResolveOrCreate", ctx, userID, "student", "tenant-1").Return(conv, true, nil)

	stored := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Seq:            1,
		Sender:         userID,
		SenderRole:     "student",
		Content:        "hello, my build is broken",
		Kind:           domain.KindText,
		Status:         domain.StatusSent,
	}
	msgRepo.On("Append", ctx, mock.Anything).Return(stored, true, nil)

	updated := *conv
	updated.Unread = domain.UnreadCounts{Staff: 1}
	updated.LastMessage = &domain.LastMessage{Content: stored.Content, Sender: userID}
	convRepo.On("ApplyMessage", ctx, conv.ID, userID, false, mock.Anything).Return(&updated, nil)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := newTestUseCase(convRepo, msgRepo, bus)
	msg, got, err := uc.RecordInboundMessage(ctx, caller, "", "hello, my build is broken", "", "", "")

	assert.NoError(t, err)
	assert.Equal(t, int64(1), msg.Seq)
	assert.Equal(t, int64(1), got.Unread.Staff)
	assert.Equal(t, int64(0), got.Unread.User)

	convRepo.AssertExpectations(t)
	msgRepo.AssertExpectations(t)
}

// a retried send with the same client nonce stores one message, bumps the
// counter once and fans new_message out once
func TestRecordInboundMessage_NonceRetryCollapsed(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	caller := Caller{ID: userID, Role: "student"}

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	bus := new(MockEventBus)

	conv := activeConversation(userID)
	convRepo.On("ResolveOrCreate", ctx, userID, "student", "").Return(conv, false, nil)

	stored := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Seq:            7,
		Sender:         userID,
		SenderRole:     "student",
		Content:        "did you get this?",
		Kind:           domain.KindText,
		ClientNonce:    "nonce-abc",
		Status:         domain.StatusSent,
	}
	msgRepo.On("Append", ctx, mock.Anything).Return(stored, true, nil).Once()
	msgRepo.On("Append", ctx, mock.Anything).Return(stored, false, nil).Once()

	updated := *conv
	updated.Unread = domain.UnreadCounts{Staff: 1}
	convRepo.On("ApplyMessage", ctx, conv.ID, userID, false, mock.Anything).Return(&updated, nil).Once()

	newMessages := 0
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		if args.String(1) == domain.EventNewMessage {
			newMessages++
		}
	})

	uc := newTestUseCase(convRepo, msgRepo, bus)
	first, firstConv, err := uc.RecordInboundMessage(ctx, caller, "", "did you get this?", "", "", "nonce-abc")
	assert.NoError(t, err)
	second, _, err := uc.RecordInboundMessage(ctx, caller, "", "did you get this?", "", "", "nonce-abc")
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), firstConv.Unread.Staff)
	convRepo.AssertNumberOfCalls(t, "ApplyMessage", 1)
	assert.Equal(t, 1, newMessages)
	msgRepo.AssertExpectations(t)
}

// staff reply bumps the user counter, not the staff one
func TestRecordInboundMessage_StaffReply(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	staffID := uuid.New().String()
	caller := Caller{ID: staffID, Role: "admin"}

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	bus := new(MockEventBus)

	conv := activeConversation(userID)
	convRepo.On("FindByID", ctx, conv.ID).Return(conv, nil)

	stored := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Seq:            2,
		Sender:         staffID,
		SenderRole:     "admin",
		Content:        "on it",
		Kind:           domain.KindText,
	}
	msgRepo.On("Append", ctx, mock.Anything).Return(stored, true, nil)

	updated := *conv
	updated.Participants = []string{userID, staffID}
	updated.Unread = domain.UnreadCounts{User: 1}
	convRepo.On("ApplyMessage", ctx, conv.ID, staffID, true, mock.Anything).Return(&updated, nil)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := newTestUseCase(convRepo, msgRepo, bus)
	_, got, err := uc.RecordInboundMessage(ctx, caller, conv.ID, "on it", "", "", "")

	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.Unread.User)
	assert.Equal(t, int64(0), got.Unread.Staff)

	convRepo.AssertExpectations(t)
}

// blank text is rejected before anything is stored
func TestRecordInboundMessage_EmptyText(t *testing.T) {
	ctx := context.Background()
	caller := Caller{ID: uuid.New().String(), Role: "student"}

	uc := newTestUseCase(new(MockConversationRepository), new(MockMessageRepository), new(MockEventBus))
	_, _, err := uc.RecordInboundMessage(ctx, caller, "", "   ", "", "", "")

	assert.Error(t, err)
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))
}

// an end user writing into an archived thread gets a fresh conversation
func TestRecordInboundMessage_ArchivedRollsOver(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	caller := Caller{ID: userID, Role: "student"}

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	bus := new(MockEventBus)

	archived := activeConversation(userID)
	archived.Status = domain.ConversationArchived
	convRepo.On("FindByID", ctx, archived.ID).Return(archived, nil)

	fresh := activeConversation(userID)
	convRepo.On("ResolveOrCreate", ctx, userID, "student", "").Return(fresh, true, nil)

	stored := &domain.Message{ID: uuid.New().String(), ConversationID: fresh.ID, Seq: 1, Sender: userID, Kind: domain.KindText}
	msgRepo.On("Append", ctx, mock.Anything).Return(stored, true, nil)

	updated := *fresh
	updated.Unread = domain.UnreadCounts{Staff: 1}
	convRepo.On("ApplyMessage", ctx, fresh.ID, userID, false, mock.Anything).Return(&updated, nil)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := newTestUseCase(convRepo, msgRepo, bus)
	msg, got, err := uc.RecordInboundMessage(ctx, caller, archived.ID, "hello again", "", "", "")

	assert.NoError(t, err)
	assert.Equal(t, fresh.ID, msg.ConversationID)
	assert.Equal(t, fresh.ID, got.ID)
	assert.NotEqual(t, archived.ID, got.ID)
}

// staff replying into an archived thread gets an error instead of a rollover
func TestRecordInboundMessage_StaffReplyToArchived(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	caller := Caller{ID: uuid.New().String(), Role: "admin"}

	convRepo := new(MockConversationRepository)

	archived := activeConversation(userID)
	archived.Status = domain.ConversationArchived
	convRepo.On("FindByID", ctx, archived.ID).Return(archived, nil)

	uc := newTestUseCase(convRepo, new(MockMessageRepository), new(MockEventBus))
	_, _, err := uc.RecordInboundMessage(ctx, caller, archived.ID, "too late", "", "", "")

	assert.Error(t, err)
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))
}

// a blocked thread rejects everyone
func TestRecordInboundMessage_Blocked(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	caller := Caller{ID: userID, Role: "student"}

	convRepo := new(MockConversationRepository)

	blocked := activeConversation(userID)
	blocked.Status = domain.ConversationBlocked
	convRepo.On("FindByID", ctx, blocked.ID).Return(blocked, nil)

	uc := newTestUseCase(convRepo, new(MockMessageRepository), new(MockEventBus))
	_, _, err := uc.RecordInboundMessage(ctx, caller, blocked.ID, "hello?", "", "", "")

	assert.Error(t, err)
	assert.True(t, errprocess.IsKind(err, errprocess.KindForbidden))
}

// staff must address a thread, there is no shared inbox to fall back to
func TestRecordInboundMessage_StaffWithoutConversationID(t *testing.T) {
	ctx := context.Background()
	caller := Caller{ID: uuid.New().String(), Role: "admin"}

	uc := newTestUseCase(new(MockConversationRepository), new(MockMessageRepository), new(MockEventBus))
	_, _, err := uc.RecordInboundMessage(ctx, caller, "", "who am I talking to", "", "", "")

	assert.Error(t, err)
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))
}

// MarkSeen stamps messages and zeroes the caller's side of the counters,
// running it twice modifies nothing the second time
func TestMarkSeen(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	caller := Caller{ID: userID, Role: "student"}

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	bus := new(MockEventBus)

	conv := activeConversation(userID)
	conv.Unread = domain.UnreadCounts{User: 3}
	convRepo.On("FindByID", ctx, conv.ID).Return(conv, nil)

	msgRepo.On("MarkSeen", ctx, conv.ID, userID).Return(int64(3), nil).Once()
	msgRepo.On("MarkSeen", ctx, conv.ID, userID).Return(int64(0), nil).Once()

	cleared := *conv
	cleared.Unread = domain.UnreadCounts{}
	convRepo.On("ResetUnread", ctx, conv.ID, domain.UserCounterKey).Return(&cleared, nil)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := newTestUseCase(convRepo, msgRepo, bus)

	count, err := uc.MarkSeen(ctx, caller, conv.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = uc.MarkSeen(ctx, caller, conv.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)

	msgRepo.AssertExpectations(t)
}

// only staff may close, the end user gets forbidden
func TestCloseConversation_UserForbidden(t *testing.T) {
	ctx := context.Background()
	caller := Caller{ID: uuid.New().String(), Role: "student"}

	uc := newTestUseCase(new(MockConversationRepository), new(MockMessageRepository), new(MockEventBus))
	_, err := uc.CloseConversation(ctx, caller, uuid.New().String())

	assert.Error(t, err)
	assert.True(t, errprocess.IsKind(err, errprocess.KindForbidden))
}

func TestCloseConversation_Staff(t *testing.T) {
	ctx := context.Background()
	staffID := uuid.New().String()
	caller := Caller{ID: staffID, Role: "admin"}

	convRepo := new(MockConversationRepository)
	bus := new(MockEventBus)

	conv := activeConversation(uuid.New().String())
	closed := *conv
	closed.Status = domain.ConversationArchived
	closed.ClosedBy = staffID
	convRepo.On("Close", ctx, conv.ID, staffID).Return(&closed, nil)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := newTestUseCase(convRepo, new(MockMessageRepository), bus)
	got, err := uc.CloseConversation(ctx, caller, conv.ID)

	assert.NoError(t, err)
	assert.Equal(t, domain.ConversationArchived, got.Status)
	assert.Equal(t, staffID, got.ClosedBy)
}

func TestSetPriority_UnknownValue(t *testing.T) {
	ctx := context.Background()
	caller := Caller{ID: uuid.New().String(), Role: "admin"}

	uc := newTestUseCase(new(MockConversationRepository), new(MockMessageRepository), new(MockEventBus))
	_, err := uc.SetPriority(ctx, caller, uuid.New().String(), "asap")

	assert.Error(t, err)
	assert.True(t, errprocess.IsKind(err, errprocess.KindValidation))
}

// end users only ever see their own threads whatever filter they pass
func TestListConversations_UserScoped(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	caller := Caller{ID: userID, Role: "student"}

	convRepo := new(MockConversationRepository)
	own := []domain.Conversation{*activeConversation(userID)}
	convRepo.On("List", ctx, repository.ConversationQuery{Participant: userID}).Return(own, nil)

	uc := newTestUseCase(convRepo, new(MockMessageRepository), new(MockEventBus))
	// the tenant filter is dropped for end users, only their own threads come back
	got, err := uc.ListConversations(ctx, caller, repository.ConversationQuery{TenantID: "tenant-9"})

	assert.NoError(t, err)
	assert.Len(t, got, 1)
	convRepo.AssertExpectations(t)
}
