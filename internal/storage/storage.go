// Package storage fournit l'équivalent serveur du localStorage du navigateur :
// des tranches JSON rangées sous des clés, avec un verrou par clé pour les
// séquences lecture → mutation → écriture.
package storage

import (
	"context"
	"errors"
	"time"
)

// Clés des tranches de données.
const (
	KeyUsers       = "ecommerce_users"
	KeyProducts    = "ecommerce_products"
	KeyCart        = "ecommerce_cart"
	KeyWishlist    = "ecommerce_wishlist"
	KeyOrders      = "ecommerce_orders"
	KeyCurrentUser = "ecommerce_current_user"
	KeyAuthToken   = "ecommerce_auth_token"
)

// ErrLockTimeout est retournée quand un verrou n'a pas pu être obtenu à temps.
var ErrLockTimeout = errors.New("storage: lock timeout")

// Storage est implémenté par les backends mémoire, Redis et ScyllaDB.
type Storage interface {
	// Load décode la valeur de key dans dest. found vaut false si la clé est absente.
	Load(ctx context.Context, key string, dest any) (found bool, err error)
	// Save encode value en JSON. ttl <= 0 : pas d'expiration.
	Save(ctx context.Context, key string, value any, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	// WithLock exécute fn en exclusion mutuelle sur key.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
	Close() error
}

// ClientKey range une tranche dans l'espace d'un client (un navigateur).
func ClientKey(base, clientID string) string {
	return base + ":" + clientID
}

// ClientKeys liste toutes les clés propres à un client.
func ClientKeys(clientID string) []string {
	return []string{
		ClientKey(KeyCart, clientID),
		ClientKey(KeyWishlist, clientID),
		ClientKey(KeyCurrentUser, clientID),
		ClientKey(KeyAuthToken, clientID),
	}
}

// ClearClient supprime toutes les données d'un client.
func ClearClient(ctx context.Context, s Storage, clientID string) error {
	for _, key := range ClientKeys(clientID) {
		if err := s.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// LoadOrInit charge key dans dest, ou y écrit init si la clé est absente.
func LoadOrInit(ctx context.Context, s Storage, key string, dest any, init any) error {
	found, err := s.Load(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return s.Save(ctx, key, init, 0)
}
