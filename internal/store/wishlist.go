package store

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/storage"
)

// WishlistStore : liste d'envies d'un client, sans doublon de produit.
type WishlistStore struct {
	storage storage.Storage
	key     string
	ttl     time.Duration
	items   []models.WishlistItem
}

func NewWishlistStore(st storage.Storage, clientID string, opts Options) *WishlistStore {
	opts = opts.withDefaults()
	return &WishlistStore{
		storage: st,
		key:     storage.ClientKey(storage.KeyWishlist, clientID),
		ttl:     opts.ClientTTL,
		items:   []models.WishlistItem{},
	}
}

func (s *WishlistStore) Initialize(ctx context.Context) error {
	return s.load(ctx)
}

func (s *WishlistStore) load(ctx context.Context) error {
	var items []models.WishlistItem
	if _, err := s.storage.Load(ctx, s.key, &items); err != nil {
		return fmt.Errorf("chargement wishlist: %w", err)
	}
	if items == nil {
		items = []models.WishlistItem{}
	}
	s.items = items
	return nil
}

func (s *WishlistStore) mutate(ctx context.Context, fn func() (bool, error)) (bool, error) {
	var changed bool
	err := s.storage.WithLock(ctx, s.key, func(ctx context.Context) error {
		if err := s.load(ctx); err != nil {
			return err
		}
		var err error
		if changed, err = fn(); err != nil || !changed {
			return err
		}
		return s.storage.Save(ctx, s.key, s.items, s.ttl)
	})
	return changed, err
}

func (s *WishlistStore) Items() []models.WishlistItem {
	out := make([]models.WishlistItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *WishlistStore) ItemCount() int { return len(s.items) }

func (s *WishlistStore) Wishlist() models.Wishlist {
	return models.Wishlist{Items: s.Items(), ItemCount: s.ItemCount()}
}

// AddToWishlist retourne false si le produit y était déjà.
func (s *WishlistStore) AddToWishlist(ctx context.Context, product models.Product) (bool, error) {
	return s.mutate(ctx, func() (bool, error) {
		if s.contains(product.ID) {
			return false, nil
		}
		s.items = append(s.items, models.WishlistItem{Product: product})
		return true, nil
	})
}

func (s *WishlistStore) RemoveFromWishlist(ctx context.Context, productID string) error {
	_, err := s.mutate(ctx, func() (bool, error) {
		out := make([]models.WishlistItem, 0, len(s.items))
		for _, item := range s.items {
			if item.ID != productID {
				out = append(out, item)
			}
		}
		s.items = out
		return true, nil
	})
	return err
}

func (s *WishlistStore) IsInWishlist(productID string) bool {
	return s.contains(productID)
}

func (s *WishlistStore) contains(productID string) bool {
	for _, item := range s.items {
		if item.ID == productID {
			return true
		}
	}
	return false
}

// MoveToCart ajoute une unité au panier puis retire le produit de la wishlist.
// Le produit passé doit être la version live du catalogue.
func (s *WishlistStore) MoveToCart(ctx context.Context, product models.Product, cart *CartStore) error {
	if !s.contains(product.ID) {
		return ErrItemNotFound
	}
	if err := cart.AddToCart(ctx, product, 1); err != nil {
		return err
	}
	return s.RemoveFromWishlist(ctx, product.ID)
}

func (s *WishlistStore) ClearWishlist(ctx context.Context) error {
	_, err := s.mutate(ctx, func() (bool, error) {
		s.items = []models.WishlistItem{}
		return true, nil
	})
	return err
}
