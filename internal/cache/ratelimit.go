// Package cache contient l'état éphémère partagé entre requêtes : compteurs de
// tentatives de connexion et diffusion des mises à jour de panier.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLoginMaxAttempts = 5
	DefaultLoginCooldown    = 15 * time.Minute
)

// AttemptLimiter compte les échecs par clé (email, IP) et bloque la clé
// pendant cooldown une fois max échecs atteints.
type AttemptLimiter interface {
	// Check retourne la durée restante du blocage, 0 si la clé est libre.
	Check(ctx context.Context, key string) (time.Duration, error)
	// Fail enregistre un échec et retourne le nombre d'essais restants.
	Fail(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

// --- Redis ---

type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	max      int
	cooldown time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, max int, cooldown time.Duration) *RedisLimiter {
	if max <= 0 {
		max = DefaultLoginMaxAttempts
	}
	if cooldown <= 0 {
		cooldown = DefaultLoginCooldown
	}
	return &RedisLimiter{client: client, prefix: prefix, max: max, cooldown: cooldown}
}

func (r *RedisLimiter) attemptsKey(key string) string { return r.prefix + "_attempts:" + key }
func (r *RedisLimiter) cooldownKey(key string) string { return r.prefix + "_cooldown:" + key }

func (r *RedisLimiter) Check(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, r.cooldownKey(key)).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 {
		return ttl, nil
	}
	return 0, nil
}

func (r *RedisLimiter) Fail(ctx context.Context, key string) (int, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, r.attemptsKey(key))
	pipe.Expire(ctx, r.attemptsKey(key), r.cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	attempts := int(incr.Val())
	if attempts < r.max {
		return r.max - attempts, nil
	}

	// Activer le cooldown
	pipe = r.client.TxPipeline()
	pipe.Set(ctx, r.cooldownKey(key), "1", r.cooldown)
	pipe.Del(ctx, r.attemptsKey(key))
	_, err := pipe.Exec(ctx)
	return 0, err
}

func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	err := r.client.Del(ctx, r.attemptsKey(key), r.cooldownKey(key)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// --- Mémoire ---

type attemptEntry struct {
	attempts     int
	expiresAt    time.Time
	blockedUntil time.Time
}

// MemoryLimiter : même comportement que RedisLimiter, limité au processus.
type MemoryLimiter struct {
	mu       sync.Mutex
	entries  map[string]*attemptEntry
	max      int
	cooldown time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(max int, cooldown time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = DefaultLoginMaxAttempts
	}
	if cooldown <= 0 {
		cooldown = DefaultLoginCooldown
	}
	return &MemoryLimiter{entries: make(map[string]*attemptEntry), max: max, cooldown: cooldown, now: time.Now}
}

func (m *MemoryLimiter) Check(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return 0, nil
	}
	if remaining := e.blockedUntil.Sub(m.now()); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

func (m *MemoryLimiter) Fail(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || (now.After(e.expiresAt) && now.After(e.blockedUntil)) {
		e = &attemptEntry{}
		m.entries[key] = e
	}
	e.attempts++
	e.expiresAt = now.Add(m.cooldown)

	if e.attempts < m.max {
		return m.max - e.attempts, nil
	}
	e.attempts = 0
	e.blockedUntil = now.Add(m.cooldown)
	return 0, nil
}

func (m *MemoryLimiter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
