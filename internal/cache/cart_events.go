package cache

import (
	"context"
	"encoding/json"
	"sync"

	"storefront/internal/models"

	"github.com/redis/go-redis/v9"
)

// CartEvents diffuse le résumé du panier d'un client à ses connexions websocket.
type CartEvents interface {
	Publish(ctx context.Context, clientID string, summary models.CartSummary) error
	// Subscribe retourne un canal de résumés ; cancel libère l'abonnement.
	Subscribe(ctx context.Context, clientID string) (<-chan models.CartSummary, func(), error)
}

func cartChannel(clientID string) string {
	return "cart:" + clientID
}

// --- Redis pub/sub (plusieurs instances) ---

type RedisCartEvents struct {
	client *redis.Client
}

func NewRedisCartEvents(client *redis.Client) *RedisCartEvents {
	return &RedisCartEvents{client: client}
}

func (r *RedisCartEvents) Publish(ctx context.Context, clientID string, summary models.CartSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, cartChannel(clientID), data).Err()
}

func (r *RedisCartEvents) Subscribe(ctx context.Context, clientID string) (<-chan models.CartSummary, func(), error) {
	pubsub := r.client.Subscribe(ctx, cartChannel(clientID))
	// Attendre la confirmation d'abonnement avant de rendre la main
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan models.CartSummary, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var summary models.CartSummary
				if err := json.Unmarshal([]byte(msg.Payload), &summary); err != nil {
					continue
				}
				select {
				case out <- summary:
				default:
					// client lent : on garde le plus récent au prochain message
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}
	return out, cancel, nil
}

// --- Mémoire (instance unique) ---

type MemoryCartEvents struct {
	mu   sync.Mutex
	subs map[string]map[chan models.CartSummary]struct{}
}

func NewMemoryCartEvents() *MemoryCartEvents {
	return &MemoryCartEvents{subs: make(map[string]map[chan models.CartSummary]struct{})}
}

func (m *MemoryCartEvents) Publish(_ context.Context, clientID string, summary models.CartSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[clientID] {
		select {
		case ch <- summary:
		default:
		}
	}
	return nil
}

func (m *MemoryCartEvents) Subscribe(_ context.Context, clientID string) (<-chan models.CartSummary, func(), error) {
	ch := make(chan models.CartSummary, 8)

	m.mu.Lock()
	if m.subs[clientID] == nil {
		m.subs[clientID] = make(map[chan models.CartSummary]struct{})
	}
	m.subs[clientID][ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[clientID], ch)
			if len(m.subs[clientID]) == 0 {
				delete(m.subs, clientID)
			}
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
