package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ticketops/triage-service/internal/config"
)

// TriageEvent is the pipeline's entry contract: an event carrying a
// ticket id.
type TriageEvent struct {
	ID       string `json:"id"`
	TicketID string `json:"ticket_id"`
}

// TriageQueue is a Redis-list work queue feeding the triage worker.
type TriageQueue struct {
	client *redis.Client
	key    string
}

// NewTriageQueue constructs the queue on an existing client.
func NewTriageQueue(client *redis.Client, cfg config.RedisConfig) *TriageQueue {
	return &TriageQueue{client: client, key: cfg.QueueKey}
}

// Enqueue pushes a triage event for the given ticket.
func (q *TriageQueue) Enqueue(ctx context.Context, ticketID string) error {
	if q.client == nil {
		return errors.New("queue not configured")
	}
	payload, err := json.Marshal(TriageEvent{
		ID:       uuid.NewString(),
		TicketID: ticketID,
	})
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Dequeue blocks up to timeout for the next triage event. A nil event
// with nil error means the wait timed out; callers just loop.
func (q *TriageQueue) Dequeue(ctx context.Context, timeout time.Duration) (*TriageEvent, error) {
	if q.client == nil {
		return nil, errors.New("queue not configured")
	}
	result, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(result) != 2 {
		return nil, errors.New("unexpected BRPOP reply shape")
	}
	var event TriageEvent
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		return nil, err
	}
	return &event, nil
}
