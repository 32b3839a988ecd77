package storage

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/kigawas/certifier-website/common"
)

const (
	// RefundQueueKey is the list holding pending refund entries.
	RefundQueueKey = "refunds:pending"
	// RefundChannel is published to whenever a new entry is enqueued.
	RefundChannel = "refunds:new"
)

// RefundQueue is the shared pending-refund collection. Entries are pushed by
// the fee payment observation path and consumed by the refund reconciler.
type RefundQueue struct {
	client *redis.Client
}

func NewRefundQueue(client *redis.Client) *RefundQueue {
	return &RefundQueue{client: client}
}

// Push appends entry and notifies subscribers.
func (self *RefundQueue) Push(ctx context.Context, entry common.RefundEntry) error {
	blob, err := json.Marshal(entry)
	if err != nil {
		return common.NewExternalServiceError("can not marshal refund entry: %s", err.Error())
	}
	if err := self.client.RPush(ctx, RefundQueueKey, string(blob)).Err(); err != nil {
		return common.NewExternalServiceError("push refund entry: %s", err.Error())
	}
	if err := self.client.Publish(ctx, RefundChannel, string(blob)).Err(); err != nil {
		return common.NewExternalServiceError("publish refund event: %s", err.Error())
	}
	return nil
}

// All returns every pending entry in queue order.
func (self *RefundQueue) All(ctx context.Context) ([]common.RefundEntry, error) {
	raws, err := self.client.LRange(ctx, RefundQueueKey, 0, -1).Result()
	if err != nil {
		return nil, common.NewExternalServiceError("scan refund queue: %s", err.Error())
	}
	entries := make([]common.RefundEntry, 0, len(raws))
	for _, raw := range raws {
		var entry common.RefundEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, common.NewDataCorruptionError("refund entry holds malformed JSON: %s", err.Error())
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Remove deletes one occurrence of entry from the queue.
func (self *RefundQueue) Remove(ctx context.Context, entry common.RefundEntry) error {
	blob, err := json.Marshal(entry)
	if err != nil {
		return common.NewExternalServiceError("can not marshal refund entry: %s", err.Error())
	}
	if err := self.client.LRem(ctx, RefundQueueKey, 1, string(blob)).Err(); err != nil {
		return common.NewExternalServiceError("remove refund entry: %s", err.Error())
	}
	return nil
}

// Subscribe returns the pub/sub subscription for new refund entries. The
// caller owns closing it.
func (self *RefundQueue) Subscribe(ctx context.Context) *redis.PubSub {
	return self.client.Subscribe(ctx, RefundChannel)
}
