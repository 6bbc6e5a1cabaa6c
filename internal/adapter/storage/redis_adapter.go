package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const checkoutLockPrefix = "checkout:lock:"

// Deletes the lock only while it still carries this process's token, so an
// expired lock re-taken by another instance is left alone.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local owner = ARGV[1]

if redis.call('GET', key) == owner then
	return redis.call('DEL', key)
end

return 0
`)

type RedisAdapter struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	return &RedisAdapter{
		client: client,
		owner:  uuid.NewString(),
		ttl:    ttl,
	}
}

func (r *RedisAdapter) Acquire(ctx context.Context, cartID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, checkoutLockPrefix+cartID, r.owner, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Release(ctx context.Context, cartID string) error {
	return releaseLockScript.Run(ctx, r.client, []string{checkoutLockPrefix + cartID}, r.owner).Err()
}
