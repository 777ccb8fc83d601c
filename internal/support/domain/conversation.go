package domain

import "time"

// ConversationStatus definition conversation lifecycle status
type ConversationStatus string

const (
	//ConversationActive the one open thread an end user may hold
	ConversationActive ConversationStatus = "active"
	//ConversationArchived terminal, a new thread is created instead of reopening
	ConversationArchived ConversationStatus = "archived"
	//ConversationBlocked terminal, user may no longer write
	ConversationBlocked ConversationStatus = "blocked"
)

// ValidStatus check status is a known enum value
func ValidStatus(s string) bool {
	switch ConversationStatus(s) {
	case ConversationActive, ConversationArchived, ConversationBlocked:
		return true
	}
	return false
}

// Priority definition staff triage priority
type Priority string

const (
	//PriorityNormal default priority
	PriorityNormal Priority = "normal"
	//PriorityHigh raised priority
	PriorityHigh Priority = "high"
	//PriorityUrgent highest priority
	PriorityUrgent Priority = "urgent"
)

// ValidPriority check priority is a known enum value
func ValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// StaffCounterKey the shared staff-pool side of the unread counters
const StaffCounterKey = "staff"

// UserCounterKey the end-user side of the unread counters
const UserCounterKey = "user"

// LastMessage summary of the newest message, denormalized onto the conversation
type LastMessage struct {
	Content   string      `bson:"content" json:"content"`
	Sender    string      `bson:"sender" json:"sender"`
	Kind      MessageKind `bson:"kind" json:"kind"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}

// UnreadCounts per-side unread counters, one end user against the staff pool
type UnreadCounts struct {
	User  int64 `bson:"user" json:"user"`
	Staff int64 `bson:"staff" json:"staff"`
}

// Conversation one support thread between an end user and the staff pool
type Conversation struct {
	ID           string             `bson:"_id" json:"id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	UserRole     string             `bson:"user_role" json:"user_role"`
	TenantID     string             `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Participants []string           `bson:"participants" json:"participants"`
	Status       ConversationStatus `bson:"status" json:"status"`
	Priority     Priority           `bson:"priority" json:"priority"`
	LastMessage  *LastMessage       `bson:"last_message,omitempty" json:"last_message,omitempty"`
	Unread       UnreadCounts       `bson:"unread" json:"unread"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
	ClosedAt     *time.Time         `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	ClosedBy     string             `bson:"closed_by,omitempty" json:"closed_by,omitempty"`
}

// HasParticipant check identity is listed on the thread
func (c *Conversation) HasParticipant(identity string) bool {
	for _, p := range c.Participants {
		if p == identity {
			return true
		}
	}
	return false
}

// CounterFor the unread side a viewer identity resets: the user resets their
// own counter, everyone else acts for the staff pool
func (c *Conversation) CounterFor(identity string) string {
	if identity == c.UserID {
		return UserCounterKey
	}
	return StaffCounterKey
}
