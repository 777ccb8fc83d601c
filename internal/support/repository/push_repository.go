package repository

import (
	"context"
	"encoding/json"

	"support_chat_service/internal/support/domain"
	"support_chat_service/pkg/logger"

	"github.com/streadway/amqp"
)

// PushQueue definition hand-off to the mobile push worker. Notifications are
// published to a durable queue, delivery results come back on a second queue
// so invalid device tokens can be pruned.
type PushQueue interface {
	Enqueue(notification domain.PushNotification) error
	// ConsumeResults block reading delivery results until ctx is cancelled.
	ConsumeResults(ctx context.Context, handle func(domain.PushResult)) error
}

type rabbitPushQueue struct {
	channel     *amqp.Channel
	pushQueue   string
	resultQueue string
}

// NewRabbitPushQueue create a PushQueue, declaring both queues durable
func NewRabbitPushQueue(channel *amqp.Channel, pushQueue, resultQueue string) (PushQueue, error) {
	for _, name := range []string{pushQueue, resultQueue} {
		if _, err := channel.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			return nil, err
		}
	}

	return &rabbitPushQueue{
		channel:     channel,
		pushQueue:   pushQueue,
		resultQueue: resultQueue,
	}, nil
}

func (q *rabbitPushQueue) Enqueue(notification domain.PushNotification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	return q.channel.Publish(
		"",          // default exchange
		q.pushQueue, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (q *rabbitPushQueue) ConsumeResults(ctx context.Context, handle func(domain.PushResult)) error {
	msgs, err := q.channel.Consume(
		q.resultQueue,
		"",    // consumer tag
		false, // autoAck off, manual confirm
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}

	logger.Log.Infof("push result consumer started: queue=", q.resultQueue)

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Warn("push result channel closed")
				return nil
			}

			var result domain.PushResult
			if err := json.Unmarshal(d.Body, &result); err != nil {
				logger.Log.Errorf("decode push result failed:", err)
				if err := d.Nack(false, false); err != nil {
					logger.Log.Errorf("nack push result failed:", err)
				}
				continue
			}

			handle(result)

			if err := d.Ack(false); err != nil {
				logger.Log.Errorf("ack push result failed:", err)
			}
		case <-ctx.Done():
			logger.Log.Info("push result consumer stopped")
			return ctx.Err()
		}
	}
}
