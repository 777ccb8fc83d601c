package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"support_chat_service/internal/support/domain"
	"support_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// JournalRepository definition best-effort message journal, keyed by
// conversation so one conversation's entries stay ordered on a partition.
type JournalRepository interface {
	Record(ctx context.Context, entry domain.JournalEntry) error
}

type kafkaJournalRepository struct {
	writer *kafka.Writer
}

// NewKafkaJournalRepository create a JournalRepository
func NewKafkaJournalRepository(writer *kafka.Writer) JournalRepository {
	return &kafkaJournalRepository{writer: writer}
}

func (r *kafkaJournalRepository) Record(ctx context.Context, entry domain.JournalEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.ConversationID),
		Value: body,
	})
	if err != nil {
		logger.Log.Errorf(fmt.Sprintf("journal write failed: conversation=%s seq=%d", entry.ConversationID, entry.Seq), err)
		return err
	}
	return nil
}
