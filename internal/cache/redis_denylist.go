package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenylist shares revocations between the client and db API processes.
type RedisDenylist struct {
	client *redis.Client
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func denylistKey(signature string) string {
	return "svh:denylist:" + signature
}

func (d *RedisDenylist) Revoke(ctx context.Context, signature string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denylistKey(signature), "1", ttl).Err(); err != nil {
		return fmt.Errorf("set denylist entry failed: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, signature string) (bool, error) {
	err := d.client.Get(ctx, denylistKey(signature)).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, fmt.Errorf("get denylist entry failed: %w", err)
}
