// Package store contient les conteneurs d'état du storefront : catalogue,
// panier, wishlist, commandes et utilisateurs. Chaque store garde une tranche
// en mémoire, la persiste après chaque mutation puis recalcule ses champs
// dérivés.
package store

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound  = errors.New("produit introuvable")
	ErrOutOfStock       = errors.New("produit en rupture de stock")
	ErrInvalidQuantity  = errors.New("quantité invalide")
	ErrItemNotFound     = errors.New("article absent du panier")
	ErrOrderNotFound    = errors.New("commande introuvable")
	ErrInvalidStatus    = errors.New("statut de commande invalide")
	ErrStatusLocked     = errors.New("statut de commande définitif")
	ErrNotAuthenticated = errors.New("utilisateur non authentifié")
)

// Messages affichés tels quels au client.
var (
	ErrEmailTaken         = errors.New("User with this email already exists")
	ErrInvalidCredentials = errors.New("Invalid email or password")
)

const (
	DefaultTaxRate          = 0.08
	DefaultPageSize         = 12
	DefaultClientTTL        = 30 * 24 * time.Hour
	EstimatedDeliveryWindow = 7 * 24 * time.Hour
)

// Options partagées par les stores.
type Options struct {
	// TTL des tranches propres à un client (panier, wishlist, session).
	ClientTTL time.Duration
	TaxRate   float64
	PageSize  int
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ClientTTL < 0 {
		o.ClientTTL = 0
	}
	if o.TaxRate <= 0 {
		o.TaxRate = DefaultTaxRate
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
