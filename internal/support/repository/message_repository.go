package repository

import (
	"context"
	"time"

	errprocess "support_chat_service/pkg/err"

	"support_chat_service/internal/support/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition append-only message log. Sequence numbers are
// strictly increasing per conversation and never reused.
type MessageRepository interface {
	// Append persist the message and assign its sequence number. When the
	// message carries a client nonce and a message with the same sender and
	// nonce already exists in the conversation, the stored message is returned
	// instead of writing a duplicate. The bool reports whether a new message
	// was written, false on a nonce hit.
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, bool, error)
	// ListSince return up to limit messages with seq greater than afterSeq,
	// ordered by seq ascending.
	ListSince(ctx context.Context, conversationID string, afterSeq int64, limit int64) ([]domain.Message, error)
	// MarkSeen stamp every message in the conversation not yet seen by the
	// viewer. Returns how many messages changed.
	MarkSeen(ctx context.Context, conversationID, viewerID string) (int64, error)
}

type messageRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll:     db.Collection("messages"),
		counters: db.Collection("counters"),
	}
}

// nextSeq bump the per-conversation counter document and return the new value.
func (r *messageRepository) nextSeq(ctx context.Context, conversationID string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, bool, error) {
	existing, err := r.findByNonce(ctx, msg)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	stored, err := r.insert(ctx, msg)
	if err != nil && isTransient(err) {
		// the first write may have landed even though the ack was lost,
		// check the nonce again before writing a second copy
		if existing, findErr := r.findByNonce(ctx, msg); findErr == nil && existing != nil {
			return existing, false, nil
		}
		stored, err = r.insert(ctx, msg)
		if err != nil {
			return nil, false, errprocess.TransientStore("append message", err)
		}
	}
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// findByNonce return the message already stored under the sender's client
// nonce, nil when the message has no nonce or none matches.
func (r *messageRepository) findByNonce(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if msg.ClientNonce == "" {
		return nil, nil
	}
	var existing domain.Message
	err := r.coll.FindOne(ctx, bson.M{
		"conversation_id": msg.ConversationID,
		"sender":          msg.Sender,
		"client_nonce":    msg.ClientNonce,
	}).Decode(&existing)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *messageRepository) insert(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	seq, err := r.nextSeq(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}

	stored := *msg
	stored.ID = uuid.New().String()
	stored.Seq = seq
	stored.Status = domain.StatusSent
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *messageRepository) ListSince(ctx context.Context, conversationID string, afterSeq int64, limit int64) ([]domain.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"seq":             bson.M{"$gt": afterSeq},
	}
	opts := options.Find().SetSort(bson.M{"seq": 1})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) MarkSeen(ctx context.Context, conversationID, viewerID string) (int64, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"seen_by":         bson.M{"$ne": viewerID},
	}
	update := bson.M{
		"$addToSet": bson.M{"seen_by": viewerID},
		"$set":      bson.M{"status": domain.StatusSeen},
	}

	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func isTransient(err error) bool {
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
