package domain

import "time"

// MessageKind definition message content kind
type MessageKind string

const (
	//KindText plain text content
	KindText MessageKind = "text"
	//KindFile content is a file reference produced by the upload route
	KindFile MessageKind = "file"
)

// ValidKind check kind is a known enum value
func ValidKind(k string) bool {
	switch MessageKind(k) {
	case KindText, KindFile:
		return true
	}
	return false
}

// MessageStatus definition delivery status, only ever advances
type MessageStatus string

const (
	//StatusSent persisted, not yet confirmed at any recipient
	StatusSent MessageStatus = "sent"
	//StatusDelivered reached at least one recipient connection
	StatusDelivered MessageStatus = "delivered"
	//StatusSeen viewed by a recipient, terminal
	StatusSeen MessageStatus = "seen"
)

// StatusRank order for the monotonic status transition
func StatusRank(s MessageStatus) int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusSeen:
		return 2
	}
	return -1
}

// Message one persisted chat message, immutable except status/seen_by
type Message struct {
	ID             string        `bson:"_id" json:"id"`
	ConversationID string        `bson:"conversation_id" json:"conversation_id"`
	Seq            int64         `bson:"seq" json:"seq"`
	Sender         string        `bson:"sender" json:"sender"`
	SenderRole     string        `bson:"sender_role" json:"sender_role"`
	Content        string        `bson:"content" json:"content"`
	Kind           MessageKind   `bson:"kind" json:"kind"`
	FileURL        string        `bson:"file_url,omitempty" json:"file_url,omitempty"`
	Status         MessageStatus `bson:"status" json:"status"`
	SeenBy         []string      `bson:"seen_by,omitempty" json:"seen_by,omitempty"`
	ClientNonce    string        `bson:"client_nonce,omitempty" json:"-"`
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
}

// JournalEntry audit record emitted for every appended message
type JournalEntry struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Seq            int64     `json:"seq"`
	Sender         string    `json:"sender"`
	SenderRole     string    `json:"sender_role"`
	Kind           string    `json:"kind"`
	TenantID       string    `json:"tenant_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PushNotification hand-off payload for the offline push transport
type PushNotification struct {
	RecipientID  string            `json:"recipient_id"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Data         map[string]string `json:"data,omitempty"`
	DeviceTokens []string          `json:"device_tokens,omitempty"`
}

// PushResult transport feedback, tokens flagged invalid get pruned
type PushResult struct {
	RecipientID   string   `json:"recipient_id"`
	InvalidTokens []string `json:"invalid_tokens,omitempty"`
}
