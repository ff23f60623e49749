package store

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/storage"
	"storefront/internal/utils"
)

// OrderStore : journal des commandes, plus récente en tête. Une commande
// n'est jamais recalculée ; seul son statut évolue.
type OrderStore struct {
	storage storage.Storage
	now     func() time.Time
	orders  []models.Order
}

func NewOrderStore(st storage.Storage, opts Options) *OrderStore {
	opts = opts.withDefaults()
	return &OrderStore{storage: st, now: opts.Now, orders: []models.Order{}}
}

func (s *OrderStore) Initialize(ctx context.Context) error {
	return s.load(ctx)
}

func (s *OrderStore) load(ctx context.Context) error {
	var orders []models.Order
	if _, err := s.storage.Load(ctx, storage.KeyOrders, &orders); err != nil {
		return fmt.Errorf("chargement commandes: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	s.orders = orders
	return nil
}

// mutate applique fn à une copie du journal ; s.orders n'est remplacé
// qu'une fois la sauvegarde réussie.
func (s *OrderStore) mutate(ctx context.Context, fn func(orders []models.Order) ([]models.Order, error)) error {
	return s.storage.WithLock(ctx, storage.KeyOrders, func(ctx context.Context) error {
		if err := s.load(ctx); err != nil {
			return err
		}
		working := make([]models.Order, len(s.orders))
		copy(working, s.orders)

		updated, err := fn(working)
		if err != nil {
			return err
		}
		if err := s.storage.Save(ctx, storage.KeyOrders, updated, 0); err != nil {
			return fmt.Errorf("sauvegarde commandes: %w", err)
		}
		s.orders = updated
		return nil
	})
}

func (s *OrderStore) Orders() []models.Order {
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// CreateOrder attribue id, statut, date et livraison estimée (+7 jours), puis
// place la commande en tête du journal.
func (s *OrderStore) CreateOrder(ctx context.Context, draft models.Order) (models.Order, error) {
	now := s.now().UTC()
	order := draft
	order.ID = utils.GenerateOrderID(now)
	order.Status = models.OrderConfirmed
	order.CreatedAt = now
	order.EstimatedDelivery = now.Add(EstimatedDeliveryWindow)

	err := s.mutate(ctx, func(orders []models.Order) ([]models.Order, error) {
		return append([]models.Order{order}, orders...), nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *OrderStore) GetOrderByID(orderID string) (models.Order, bool) {
	for _, order := range s.orders {
		if order.ID == orderID {
			return order, true
		}
	}
	return models.Order{}, false
}

func (s *OrderStore) GetOrdersByUserID(userID string) []models.Order {
	out := []models.Order{}
	for _, order := range s.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out
}

// UpdateOrderStatus refuse les statuts inconnus et toute sortie d'un statut
// définitif (delivered, cancelled).
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	var updated models.Order
	err := s.mutate(ctx, func(orders []models.Order) ([]models.Order, error) {
		for i := range orders {
			if orders[i].ID != orderID {
				continue
			}
			current := orders[i].Status
			if current.Terminal() && current != status {
				return nil, fmt.Errorf("%w: %s", ErrStatusLocked, current)
			}
			orders[i].Status = status
			updated = orders[i]
			return orders, nil
		}
		return nil, ErrOrderNotFound
	})
	return updated, err
}
