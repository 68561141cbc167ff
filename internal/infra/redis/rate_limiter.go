package redis

import (
	"context"
	"fmt"
	"time"
)

type RateLimiter struct {
	client *Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// PhoneOpKey scopes a limit to one phone number and one operation, e.g.
// "rate_limit:0712345678:checkout".
func PhoneOpKey(phone, op string) string {
	return fmt.Sprintf("rate_limit:%s:%s", phone, op)
}

// ClientOpKey scopes a limit to a caller address for endpoints that run
// before a phone number is known.
func ClientOpKey(addr, op string) string {
	return fmt.Sprintf("rate_limit:ip:%s:%s", addr, op)
}
