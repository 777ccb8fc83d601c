package domain

import "encoding/json"

// Action websocket request action
type Action string

const (
	// ActionJoin websocket action join, enters the caller's identity room
	ActionJoin Action = "join"
	// ActionJoinStaff websocket action join_staff, enters the shared staff room
	ActionJoinStaff Action = "join_staff"
	// ActionJoinTenant websocket action join_tenant
	ActionJoinTenant Action = "join_tenant"
	// ActionJoinConversation websocket action join_conversation
	ActionJoinConversation Action = "join_conversation"
	// ActionLeaveConversation websocket action leave_conversation
	ActionLeaveConversation Action = "leave_conversation"

	// ActionTyping websocket action typing
	ActionTyping Action = "typing"
	// ActionStopTyping websocket action stop_typing
	ActionStopTyping Action = "stop_typing"

	// ActionSendMessage websocket action send_message
	ActionSendMessage Action = "send_message"
	// ActionMarkSeen websocket action mark_seen
	ActionMarkSeen Action = "mark_seen"
	// ActionGetHistory websocket action get_history
	ActionGetHistory Action = "get_history"
)

// Server-published event names, fanned out over rooms
const (
	// EventNewMessage delivered to the conversation room on every append
	EventNewMessage = "new_message"
	// EventConversationUpdated delivered on every conversation mutation
	EventConversationUpdated = "conversation_updated"
	// EventMessagesSeen delivered when a participant marks the thread seen
	EventMessagesSeen = "messages_seen"
	// EventTyping ephemeral typing indicator, never persisted
	EventTyping = "typing"
	// EventStopTyping ephemeral stop-typing indicator
	EventStopTyping = "stop_typing"
)

// Room name helpers. Rooms are redis channels, one per fanout target.
const roomPrefix = "support:"

// UserRoom per-identity room
func UserRoom(userID string) string { return roomPrefix + "user:" + userID }

// StaffRoom shared staff-pool room
func StaffRoom() string { return roomPrefix + "staff" }

// TenantRoom per-tenant room
func TenantRoom(tenantID string) string { return roomPrefix + "tenant:" + tenantID }

// ConversationRoom per-thread room
func ConversationRoom(conversationID string) string { return roomPrefix + "conv:" + conversationID }

// Event one fanout unit on the bus, the payload stays opaque to the transport
type Event struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSRequest websocket Request
type WSRequest struct {
	Action         string `json:"action"`
	Ref            string `json:"ref,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	TenantID       string `json:"tenant_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Kind           string `json:"kind,omitempty"`
	FileURL        string `json:"file_url,omitempty"`
	Nonce          string `json:"nonce,omitempty"`
	AfterSeq       int64  `json:"after_seq,omitempty"`
	Name           string `json:"name,omitempty"`
}

// WSResponse websocket Response, acknowledges the request carrying the same ref
type WSResponse struct {
	Action  string                 `json:"action"`
	Ref     string                 `json:"ref,omitempty"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// TypingPayload ephemeral typing event body
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	Identity       string `json:"identity"`
	DisplayName    string `json:"name,omitempty"`
}
