package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"support_chat_service/internal/support/domain"
	"support_chat_service/internal/support/repository"
	"support_chat_service/pkg/logger"
	"support_chat_service/pkg/token"

	errprocess "support_chat_service/pkg/err"

	"go.mongodb.org/mongo-driver/mongo"
)

const historyPageSize = 50

// Caller the authenticated identity behind a request
type Caller struct {
	ID       string
	Role     string
	TenantID string
}

// Staff report whether the caller belongs to the support pool
func (c Caller) Staff() bool { return token.IsStaff(c.Role) }

// ConversationUseCase the conversation workflows shared by the websocket and
// REST surfaces. Every operation checks access before touching storage.
type ConversationUseCase struct {
	convRepo   repository.ConversationRepository
	msgRepo    repository.MessageRepository
	dispatcher *Dispatcher
}

// NewConversationUseCase create ConversationUseCase
func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	dispatcher *Dispatcher,
) *ConversationUseCase {
	return &ConversationUseCase{
		convRepo:   convRepo,
		msgRepo:    msgRepo,
		dispatcher: dispatcher,
	}
}

// ResolveOrCreate return the caller's active conversation, creating one when
// none exists. Only end users own conversations.
func (uc *ConversationUseCase) ResolveOrCreate(ctx context.Context, caller Caller) (*domain.Conversation, error) {
	if !token.IsEndUser(caller.Role) {
		return nil, errprocess.Validation("only end users own a support conversation")
	}

	conv, created, err := uc.convRepo.ResolveOrCreate(ctx, caller.ID, caller.Role, caller.TenantID)
	if err != nil {
		return nil, errprocess.TransientStore("resolve conversation", err)
	}
	if created {
		logger.Log.Info(fmt.Sprintf("conversation created: id=%s user=%s tenant=%s", conv.ID, caller.ID, caller.TenantID))
		if err := uc.dispatcher.AnnounceConversation(conv); err != nil {
			logger.Log.Errorf("announce new conversation failed:", err)
		}
	}
	return conv, nil
}

// RecordInboundMessage validate, persist and fan out one message. End users
// may omit the conversation id, it resolves to their active thread. A closed
// thread silently rolls over into a fresh one for the end user, staff instead
// get an error so they do not reply into the void.
func (uc *ConversationUseCase) RecordInboundMessage(
	ctx context.Context,
	caller Caller,
	conversationID, content, kind, fileURL, nonce string,
) (*domain.Message, *domain.Conversation, error) {
	if kind == "" {
		kind = string(domain.KindText)
	}
	if !domain.ValidKind(kind) {
		return nil, nil, errprocess.Validation("unknown message kind: " + kind)
	}
	if domain.MessageKind(kind) == domain.KindText && strings.TrimSpace(content) == "" {
		return nil, nil, errprocess.Validation("message content is empty")
	}
	if domain.MessageKind(kind) == domain.KindFile && fileURL == "" {
		return nil, nil, errprocess.Validation("file message without file_url")
	}

	conv, err := uc.targetConversation(ctx, caller, conversationID)
	if err != nil {
		return nil, nil, err
	}

	switch conv.Status {
	case domain.ConversationBlocked:
		return nil, nil, errprocess.Forbidden("conversation is blocked")
	case domain.ConversationArchived:
		if caller.Staff() {
			return nil, nil, errprocess.Validation("conversation is closed")
		}
		// the end user writing to a closed thread starts a fresh one
		conv, err = uc.ResolveOrCreate(ctx, caller)
		if err != nil {
			return nil, nil, err
		}
	}

	if !caller.Staff() && conv.UserID != caller.ID {
		return nil, nil, errprocess.Forbidden("not a participant of this conversation")
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		Sender:         caller.ID,
		SenderRole:     caller.Role,
		Content:        content,
		Kind:           domain.MessageKind(kind),
		FileURL:        fileURL,
		ClientNonce:    nonce,
		CreatedAt:      time.Now().UTC(),
	}

	stored, created, err := uc.msgRepo.Append(ctx, msg)
	if err != nil {
		if errprocess.IsKind(err, errprocess.KindTransientStore) {
			return nil, nil, err
		}
		return nil, nil, errprocess.TransientStore("append message", err)
	}
	if !created {
		// a retried request, the counters and fanout already ran for this
		// message the first time around
		return stored, conv, nil
	}

	last := domain.LastMessage{
		Content:   stored.Content,
		Sender:    stored.Sender,
		Kind:      stored.Kind,
		CreatedAt: stored.CreatedAt,
	}
	updated, err := uc.convRepo.ApplyMessage(ctx, conv.ID, caller.ID, caller.Staff(), last)
	if err != nil {
		return nil, nil, errprocess.TransientStore("apply message to conversation", err)
	}

	if err := uc.dispatcher.Dispatch(ctx, updated, stored); err != nil {
		logger.Log.Errorf(fmt.Sprintf("dispatch failed: conversation=%s seq=%d", updated.ID, stored.Seq), err)
	}
	return stored, updated, nil
}

// MarkSeen stamp unseen messages and zero the caller's unread counter.
// Calling it twice is harmless, the second pass modifies nothing.
func (uc *ConversationUseCase) MarkSeen(ctx context.Context, caller Caller, conversationID string) (int64, error) {
	conv, err := uc.authorizedConversation(ctx, caller, conversationID)
	if err != nil {
		return 0, err
	}

	count, err := uc.msgRepo.MarkSeen(ctx, conv.ID, caller.ID)
	if err != nil {
		return 0, errprocess.TransientStore("mark seen", err)
	}

	updated, err := uc.convRepo.ResetUnread(ctx, conv.ID, conv.CounterFor(caller.ID))
	if err != nil {
		return count, errprocess.TransientStore("reset unread", err)
	}

	if err := uc.dispatcher.AnnounceSeen(updated, caller.ID, count); err != nil {
		logger.Log.Errorf(fmt.Sprintf("announce seen failed: conversation=%s", conv.ID), err)
	}
	if err := uc.dispatcher.AnnounceConversation(updated); err != nil {
		logger.Log.Errorf(fmt.Sprintf("announce conversation failed: conversation=%s", conv.ID), err)
	}
	return count, nil
}

// History page messages after a sequence number, oldest first
func (uc *ConversationUseCase) History(ctx context.Context, caller Caller, conversationID string, afterSeq int64) ([]domain.Message, error) {
	conv, err := uc.authorizedConversation(ctx, caller, conversationID)
	if err != nil {
		return nil, err
	}

	msgs, err := uc.msgRepo.ListSince(ctx, conv.ID, afterSeq, historyPageSize)
	if err != nil {
		return nil, errprocess.TransientStore("list messages", err)
	}
	return msgs, nil
}

// ListConversations staff see every thread matching the filter, end users only
// their own.
func (uc *ConversationUseCase) ListConversations(ctx context.Context, caller Caller, q repository.ConversationQuery) ([]domain.Conversation, error) {
	if q.Status != "" && !domain.ValidStatus(q.Status) {
		return nil, errprocess.Validation("unknown status: " + q.Status)
	}
	if q.Priority != "" && !domain.ValidPriority(q.Priority) {
		return nil, errprocess.Validation("unknown priority: " + q.Priority)
	}

	if !caller.Staff() {
		q = repository.ConversationQuery{Participant: caller.ID}
	}

	convs, err := uc.convRepo.List(ctx, q)
	if err != nil {
		return nil, errprocess.TransientStore("list conversations", err)
	}
	return convs, nil
}

// CloseConversation archive a thread, staff only
func (uc *ConversationUseCase) CloseConversation(ctx context.Context, caller Caller, conversationID string) (*domain.Conversation, error) {
	if !caller.Staff() {
		return nil, errprocess.Forbidden("only staff close conversations")
	}

	conv, err := uc.convRepo.Close(ctx, conversationID, caller.ID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errprocess.NotFound("no active conversation: " + conversationID)
		}
		return nil, errprocess.TransientStore("close conversation", err)
	}

	logger.Log.Info(fmt.Sprintf("conversation closed: id=%s by=%s", conv.ID, caller.ID))
	if err := uc.dispatcher.AnnounceConversation(conv); err != nil {
		logger.Log.Errorf(fmt.Sprintf("announce close failed: conversation=%s", conv.ID), err)
	}
	return conv, nil
}

// SetPriority change the triage priority, staff only
func (uc *ConversationUseCase) SetPriority(ctx context.Context, caller Caller, conversationID, priority string) (*domain.Conversation, error) {
	if !caller.Staff() {
		return nil, errprocess.Forbidden("only staff set priority")
	}
	if !domain.ValidPriority(priority) {
		return nil, errprocess.Validation("unknown priority: " + priority)
	}

	conv, err := uc.convRepo.SetPriority(ctx, conversationID, domain.Priority(priority))
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errprocess.NotFound("conversation not found: " + conversationID)
		}
		return nil, errprocess.TransientStore("set priority", err)
	}

	if err := uc.dispatcher.AnnounceConversation(conv); err != nil {
		logger.Log.Errorf(fmt.Sprintf("announce priority failed: conversation=%s", conv.ID), err)
	}
	return conv, nil
}

// UpdateStatus move a thread between active, archived and blocked, staff only
func (uc *ConversationUseCase) UpdateStatus(ctx context.Context, caller Caller, conversationID, status string) (*domain.Conversation, error) {
	if !caller.Staff() {
		return nil, errprocess.Forbidden("only staff change conversation status")
	}
	if !domain.ValidStatus(status) {
		return nil, errprocess.Validation("unknown status: " + status)
	}

	conv, err := uc.convRepo.SetStatus(ctx, conversationID, domain.ConversationStatus(status))
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errprocess.NotFound("conversation not found: " + conversationID)
		}
		return nil, errprocess.TransientStore("set status", err)
	}

	if err := uc.dispatcher.AnnounceConversation(conv); err != nil {
		logger.Log.Errorf(fmt.Sprintf("announce status failed: conversation=%s", conv.ID), err)
	}
	return conv, nil
}

// Typing relay a typing indicator after an access check
func (uc *ConversationUseCase) Typing(ctx context.Context, caller Caller, conversationID, displayName string, typing bool) error {
	if _, err := uc.authorizedConversation(ctx, caller, conversationID); err != nil {
		return err
	}
	return uc.dispatcher.RelayTyping(conversationID, caller.ID, displayName, typing)
}

// targetConversation resolve the thread a message goes to. End users fall back
// to their active thread when no id is given.
func (uc *ConversationUseCase) targetConversation(ctx context.Context, caller Caller, conversationID string) (*domain.Conversation, error) {
	if conversationID == "" {
		if caller.Staff() {
			return nil, errprocess.Validation("staff must address a conversation id")
		}
		return uc.ResolveOrCreate(ctx, caller)
	}

	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errprocess.NotFound("conversation not found: " + conversationID)
		}
		return nil, errprocess.TransientStore("find conversation", err)
	}
	return conv, nil
}

// authorizedConversation load a thread and verify the caller may read it
func (uc *ConversationUseCase) authorizedConversation(ctx context.Context, caller Caller, conversationID string) (*domain.Conversation, error) {
	if conversationID == "" {
		return nil, errprocess.Validation("conversation id is required")
	}

	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errprocess.NotFound("conversation not found: " + conversationID)
		}
		return nil, errprocess.TransientStore("find conversation", err)
	}

	if !caller.Staff() && !conv.HasParticipant(caller.ID) {
		return nil, errprocess.Forbidden("not a participant of this conversation")
	}
	return conv, nil
}
