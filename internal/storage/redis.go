package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockRetry = 25 * time.Millisecond
	defaultLockWait  = 5 * time.Second
)

// Libère le verrou uniquement si on en est toujours propriétaire.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisStorage stocke chaque tranche comme une chaîne JSON, comme le panier
// "cart:<user>" historique.
type RedisStorage struct {
	client    *redis.Client
	lockTTL   time.Duration
	lockRetry time.Duration
	lockWait  time.Duration
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{
		client:    client,
		lockTTL:   defaultLockTTL,
		lockRetry: defaultLockRetry,
		lockWait:  defaultLockWait,
	}
}

func (r *RedisStorage) Client() *redis.Client { return r.client }

func (r *RedisStorage) Load(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lecture redis %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return true, fmt.Errorf("décodage %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStorage) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// WithLock pose un bail "lock:<key>" via SET NX, relâché en fin de fn.
func (r *RedisStorage) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lockKey := "lock:" + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()

	for {
		ok, err := r.client.SetNX(waitCtx, lockKey, token, r.lockTTL).Result()
		if ok {
			break
		}
		if waitCtx.Err() != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		if err != nil {
			return fmt.Errorf("verrou redis %s: %w", key, err)
		}
		select {
		case <-waitCtx.Done():
		case <-time.After(r.lockRetry):
		}
	}

	defer releaseScript.Run(context.WithoutCancel(ctx), r.client, []string{lockKey}, token)
	return fn(ctx)
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
