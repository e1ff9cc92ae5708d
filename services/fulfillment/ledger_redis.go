package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Gateway redeliveries stop well within this window.
const defaultProcessedTTL = 30 * 24 * time.Hour

type redisLedger struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisLedger shares processed event ids between instances using SETNX.
func NewRedisLedger(client *redis.Client) EventLedger {
	return &redisLedger{
		client:    client,
		keyPrefix: "storefront:webhook:event:",
		ttl:       defaultProcessedTTL,
	}
}

func (l *redisLedger) MarkProcessed(c context.Context, eventID string) (bool, error) {
	first, err := l.client.SetNX(c, l.keyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("error marking event %s as processed: %w", eventID, err)
	}
	return first, nil
}

func (l *redisLedger) Release(c context.Context, eventID string) error {
	err := l.client.Del(c, l.keyPrefix+eventID).Err()
	if err != nil {
		return fmt.Errorf("error releasing event %s: %w", eventID, err)
	}
	return nil
}
