package repository

import (
	"context"
	"time"

	"support_chat_service/internal/support/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationQuery filter for listing threads
type ConversationQuery struct {
	Status      string
	Priority    string
	UserRole    string
	TenantID    string
	Participant string
}

// ConversationRepository definition conversation store. Every mutation is a
// single-document atomic update so counters never race.
type ConversationRepository interface {
	// ResolveOrCreate return the user's active conversation, creating it when
	// none exists. The upsert is keyed by user identity, safe under concurrent
	// calls. The bool reports whether a new conversation was created.
	ResolveOrCreate(ctx context.Context, userID, userRole, tenantID string) (*domain.Conversation, bool, error)
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// ApplyMessage set the last-message summary, bump updated_at and increment
	// the counterpart unread counter in one update.
	ApplyMessage(ctx context.Context, conversationID, senderID string, senderIsStaff bool, last domain.LastMessage) (*domain.Conversation, error)
	// ResetUnread zero one side's counter ("user" or "staff").
	ResetUnread(ctx context.Context, conversationID, counterKey string) (*domain.Conversation, error)
	// Close archive an active conversation. Returns nil when no active
	// conversation matched.
	Close(ctx context.Context, conversationID, closedBy string) (*domain.Conversation, error)
	SetPriority(ctx context.Context, conversationID string, priority domain.Priority) (*domain.Conversation, error)
	SetStatus(ctx context.Context, conversationID string, status domain.ConversationStatus) (*domain.Conversation, error)
	List(ctx context.Context, q ConversationQuery) ([]domain.Conversation, error)
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

func (r *conversationRepository) ResolveOrCreate(ctx context.Context, userID, userRole, tenantID string) (*domain.Conversation, bool, error) {
	now := time.Now().UTC()
	candidateID := uuid.New().String()

	filter := bson.M{"user_id": userID, "status": domain.ConversationActive}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":          candidateID,
		"user_id":      userID,
		"user_role":    userRole,
		"tenant_id":    tenantID,
		"participants": []string{userID},
		"status":       domain.ConversationActive,
		"priority":     domain.PriorityNormal,
		"unread":       domain.UnreadCounts{},
		"created_at":   now,
		"updated_at":   now,
	}}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv domain.Conversation
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv); err != nil {
		return nil, false, err
	}
	created := conv.ID == candidateID
	return &conv, created, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ApplyMessage(ctx context.Context, conversationID, senderID string, senderIsStaff bool, last domain.LastMessage) (*domain.Conversation, error) {
	// the sender's counterpart gets the unread bump, never the sender itself
	counter := "unread." + domain.StaffCounterKey
	if senderIsStaff {
		counter = "unread." + domain.UserCounterKey
	}

	update := bson.M{
		"$set": bson.M{
			"last_message": last,
			"updated_at":   time.Now().UTC(),
		},
		"$inc":      bson.M{counter: 1},
		"$addToSet": bson.M{"participants": senderID},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var conv domain.Conversation
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": conversationID}, update, opts).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ResetUnread(ctx context.Context, conversationID, counterKey string) (*domain.Conversation, error) {
	update := bson.M{"$set": bson.M{"unread." + counterKey: 0}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var conv domain.Conversation
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": conversationID}, update, opts).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) Close(ctx context.Context, conversationID, closedBy string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": conversationID, "status": domain.ConversationActive}
	update := bson.M{"$set": bson.M{
		"status":     domain.ConversationArchived,
		"closed_at":  now,
		"closed_by":  closedBy,
		"updated_at": now,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var conv domain.Conversation
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) SetPriority(ctx context.Context, conversationID string, priority domain.Priority) (*domain.Conversation, error) {
	update := bson.M{"$set": bson.M{"priority": priority, "updated_at": time.Now().UTC()}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var conv domain.Conversation
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": conversationID}, update, opts).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) SetStatus(ctx context.Context, conversationID string, status domain.ConversationStatus) (*domain.Conversation, error) {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var conv domain.Conversation
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": conversationID}, update, opts).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) List(ctx context.Context, q ConversationQuery) ([]domain.Conversation, error) {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	if q.UserRole != "" {
		filter["user_role"] = q.UserRole
	}
	if q.TenantID != "" {
		filter["tenant_id"] = q.TenantID
	}
	if q.Participant != "" {
		filter["participants"] = q.Participant
	}

	opts := options.Find().SetSort(bson.M{"updated_at": -1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var conversations []domain.Conversation
	if err := cur.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}
