package storage

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/kigawas/certifier-website/common"
)

const (
	// VerificationQueueKey is the list of completed-check resource hrefs
	// waiting for result reconciliation.
	VerificationQueueKey = "verifications:pending"
	// VerificationChannel is published to whenever a new href is enqueued.
	VerificationChannel = "verifications:new"
)

// VerificationQueue holds the vendor resource hrefs reported by completed
// check webhooks until the result reconciliation path picks them up.
type VerificationQueue struct {
	client *redis.Client
}

func NewVerificationQueue(client *redis.Client) *VerificationQueue {
	return &VerificationQueue{client: client}
}

func (self *VerificationQueue) Push(ctx context.Context, href string) error {
	if err := self.client.RPush(ctx, VerificationQueueKey, href).Err(); err != nil {
		return common.NewExternalServiceError("push verification href: %s", err.Error())
	}
	if err := self.client.Publish(ctx, VerificationChannel, href).Err(); err != nil {
		return common.NewExternalServiceError("publish verification event: %s", err.Error())
	}
	return nil
}

func (self *VerificationQueue) All(ctx context.Context) ([]string, error) {
	hrefs, err := self.client.LRange(ctx, VerificationQueueKey, 0, -1).Result()
	if err != nil {
		return nil, common.NewExternalServiceError("scan verification queue: %s", err.Error())
	}
	return hrefs, nil
}

// Remove deletes one occurrence of href. The result reconciliation consumer
// calls it after the fetched outcome has been applied.
func (self *VerificationQueue) Remove(ctx context.Context, href string) error {
	if err := self.client.LRem(ctx, VerificationQueueKey, 1, href).Err(); err != nil {
		return common.NewExternalServiceError("remove verification href: %s", err.Error())
	}
	return nil
}
