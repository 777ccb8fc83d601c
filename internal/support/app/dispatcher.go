package app

import (
	"context"
	"fmt"
	"time"

	"support_chat_service/internal/support/domain"
	"support_chat_service/internal/support/repository"
	"support_chat_service/pkg"
	"support_chat_service/pkg/logger"
	"support_chat_service/pkg/token"

	errprocess "support_chat_service/pkg/err"
)

const pushPreviewRunes = 120

// DeviceTokenSource lookup and prune mobile device tokens for a user
type DeviceTokenSource interface {
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
	PruneTokens(ctx context.Context, userID string, invalid []string) error
}

// Dispatcher fan out conversation events to live rooms and fall back to a
// push notification for recipients with no open connection.
type Dispatcher struct {
	bus       repository.EventBus
	presence  *Presence
	pushQueue repository.PushQueue
	journal   repository.JournalRepository
	tokens    DeviceTokenSource
}

// NewDispatcher create Dispatcher. journal and pushQueue may be nil when the
// broker is not configured, fanout still works without them.
func NewDispatcher(
	bus repository.EventBus,
	presence *Presence,
	pushQueue repository.PushQueue,
	journal repository.JournalRepository,
	tokens DeviceTokenSource,
) *Dispatcher {
	return &Dispatcher{
		bus:       bus,
		presence:  presence,
		pushQueue: pushQueue,
		journal:   journal,
		tokens:    tokens,
	}
}

// Dispatch publish a stored message to everyone who should hear about it.
// Room publishes happen before any push fallback so live clients win.
func (d *Dispatcher) Dispatch(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	if d.bus == nil {
		return errprocess.NotInitialized("event bus")
	}

	if err := d.bus.Publish(domain.ConversationRoom(conv.ID), domain.EventNewMessage, msg); err != nil {
		return err
	}
	d.announceUpdate(conv)

	d.journalAsync(conv, msg)
	d.pushAsync(conv, msg)
	return nil
}

// pushAsync hand unreachable recipients to the push queue off the send path
func (d *Dispatcher) pushAsync(conv *domain.Conversation, msg *domain.Message) {
	if d.pushQueue == nil || d.tokens == nil || d.presence == nil {
		return
	}
	recipients := d.recipients(conv, msg)
	if len(recipients) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, recipient := range recipients {
			d.pushIfUnreachable(ctx, recipient, conv, msg)
		}
	}()
}

// AnnounceConversation broadcast conversation_updated alone, used when the
// thread changes without a new message (close, priority, seen reset).
func (d *Dispatcher) AnnounceConversation(conv *domain.Conversation) error {
	if d.bus == nil {
		return errprocess.NotInitialized("event bus")
	}
	d.announceUpdate(conv)
	return nil
}

// AnnounceSeen tell the conversation room its messages were read
func (d *Dispatcher) AnnounceSeen(conv *domain.Conversation, viewerID string, count int64) error {
	if d.bus == nil {
		return errprocess.NotInitialized("event bus")
	}
	payload := map[string]interface{}{
		"conversation_id": conv.ID,
		"viewer":          viewerID,
		"count":           count,
	}
	return d.bus.Publish(domain.ConversationRoom(conv.ID), domain.EventMessagesSeen, payload)
}

// RelayTyping forward a typing indicator, never persisted
func (d *Dispatcher) RelayTyping(conversationID, senderID, displayName string, typing bool) error {
	if d.bus == nil {
		return errprocess.NotInitialized("event bus")
	}
	event := domain.EventTyping
	if !typing {
		event = domain.EventStopTyping
	}
	return d.bus.Publish(domain.ConversationRoom(conversationID), event, domain.TypingPayload{
		ConversationID: conversationID,
		Identity:       senderID,
		DisplayName:    displayName,
	})
}

// StartResultConsumer drain push delivery results and prune dead tokens
func (d *Dispatcher) StartResultConsumer(ctx context.Context) {
	if d.pushQueue == nil || d.tokens == nil {
		return
	}
	go func() {
		err := d.pushQueue.ConsumeResults(ctx, func(result domain.PushResult) {
			if len(result.InvalidTokens) == 0 {
				return
			}
			pruneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := d.tokens.PruneTokens(pruneCtx, result.RecipientID, result.InvalidTokens); err != nil {
				logger.Log.Errorf(fmt.Sprintf("prune device tokens failed: user=%s", result.RecipientID), err)
			}
		})
		if err != nil && err != context.Canceled {
			logger.Log.Errorf("push result consumer exited:", err)
		}
	}()
}

func (d *Dispatcher) announceUpdate(conv *domain.Conversation) {
	rooms := []string{
		domain.UserRoom(conv.UserID),
		domain.StaffRoom(),
	}
	if conv.TenantID != "" {
		rooms = append(rooms, domain.TenantRoom(conv.TenantID))
	}
	for _, room := range rooms {
		if err := d.bus.Publish(room, domain.EventConversationUpdated, conv); err != nil {
			logger.Log.Errorf(fmt.Sprintf("publish conversation_updated failed: room=%s", room), err)
		}
	}
}

// recipients pick who might need a push. Staff replies target the single end
// user, user messages target every staff participant on the thread.
func (d *Dispatcher) recipients(conv *domain.Conversation, msg *domain.Message) []string {
	if token.IsStaff(msg.SenderRole) {
		return []string{conv.UserID}
	}
	var staff []string
	for _, p := range conv.Participants {
		if p != conv.UserID {
			staff = append(staff, p)
		}
	}
	return staff
}

func (d *Dispatcher) pushIfUnreachable(ctx context.Context, recipient string, conv *domain.Conversation, msg *domain.Message) {
	if d.pushQueue == nil || d.tokens == nil || d.presence == nil {
		return
	}

	reachable, err := d.presence.IsReachable(recipient)
	if err != nil {
		logger.Log.Errorf(fmt.Sprintf("reachability check failed: user=%s", recipient), err)
		return
	}
	if reachable {
		return
	}

	deviceTokens, err := d.tokens.DeviceTokens(ctx, recipient)
	if err != nil {
		logger.Log.Errorf(fmt.Sprintf("device token lookup failed: user=%s", recipient), err)
		return
	}
	if len(deviceTokens) == 0 {
		return
	}

	body := msg.Content
	if msg.Kind == domain.KindFile {
		body = "sent a file"
	}
	notification := domain.PushNotification{
		RecipientID: recipient,
		Title:       "New support message",
		Body:        pkg.TruncateRunes(body, pushPreviewRunes),
		Data: map[string]string{
			"conversation_id": conv.ID,
			"message_id":      msg.ID,
		},
		DeviceTokens: deviceTokens,
	}
	if err := d.pushQueue.Enqueue(notification); err != nil {
		logger.Log.Errorf(fmt.Sprintf("enqueue push failed: user=%s", recipient), err)
	}
}

func (d *Dispatcher) journalAsync(conv *domain.Conversation, msg *domain.Message) {
	if d.journal == nil {
		return
	}
	entry := domain.JournalEntry{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Seq:            msg.Seq,
		Sender:         msg.Sender,
		SenderRole:     msg.SenderRole,
		Kind:           string(msg.Kind),
		TenantID:       conv.TenantID,
		CreatedAt:      msg.CreatedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// best effort, the mongo log stays authoritative
		_ = d.journal.Record(ctx, entry)
	}()
}
