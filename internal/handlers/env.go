// Package handlers regroupe les dépendances partagées par les handlers HTTP
// et la traduction des erreurs métier en réponses JSON.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/cache"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/services"
	"storefront/internal/storage"
	"storefront/internal/store"
	"storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Env : dépendances des handlers. Search, Images, CartEvents et Mailer sont
// optionnels. FreeShippingThreshold <= 0 : pas de livraison gratuite.
type Env struct {
	Storage               storage.Storage
	Hasher                utils.PasswordHasher
	Tokens                utils.TokenCodec
	Options               store.Options
	FreeShippingThreshold float64

	Search     store.SearchIndex
	Images     services.ImageResolver
	CartEvents cache.CartEvents
	Mailer     utils.Mailer
	Logger     *zap.Logger
}

func ClientID(c *gin.Context) string {
	return c.GetString(middleware.ClientIDKey)
}

func UserID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// Les constructeurs ci-dessous chargent le store depuis le stockage ; en cas
// d'échec ils répondent 500 et retournent false.

func (e *Env) Catalog(c *gin.Context) (*store.ProductStore, bool) {
	catalog := store.NewProductStore(e.Storage, e.Options)
	if e.Search != nil {
		catalog.WithSearchIndex(e.Search)
	}
	return catalog, e.initialize(c, "catalogue", catalog.Initialize)
}

func (e *Env) Cart(c *gin.Context, catalog *store.ProductStore) (*store.CartStore, bool) {
	cart := store.NewCartStore(e.Storage, ClientID(c), e.Options)
	if catalog != nil {
		cart.WithStockLookup(catalog.StockOf)
	}
	return cart, e.initialize(c, "panier", cart.Initialize)
}

func (e *Env) Wishlist(c *gin.Context) (*store.WishlistStore, bool) {
	wishlist := store.NewWishlistStore(e.Storage, ClientID(c), e.Options)
	return wishlist, e.initialize(c, "wishlist", wishlist.Initialize)
}

func (e *Env) Orders(c *gin.Context) (*store.OrderStore, bool) {
	orders := store.NewOrderStore(e.Storage, e.Options)
	return orders, e.initialize(c, "commandes", orders.Initialize)
}

func (e *Env) Users(c *gin.Context) (*store.UserStore, bool) {
	users := e.userStore(ClientID(c))
	return users, e.initialize(c, "utilisateurs", users.Initialize)
}

func (e *Env) userStore(clientID string) *store.UserStore {
	return store.NewUserStore(e.Storage, clientID, e.Hasher, e.Tokens, e.Options)
}

func (e *Env) Checkout(catalog *store.ProductStore, orders *store.OrderStore) *service.Checkout {
	checkout := service.NewCheckout(catalog, orders, e.Options.TaxRate, e.FreeShippingThreshold, e.Logger)
	if e.Mailer != nil {
		checkout.WithMailer(e.Mailer)
	}
	return checkout
}

func (e *Env) initialize(c *gin.Context, what string, init func(context.Context) error) bool {
	if err := init(c.Request.Context()); err != nil {
		e.Logger.Error("chargement "+what, zap.Error(err), zap.String("client_id", ClientID(c)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur chargement " + what})
		return false
	}
	return true
}

// Authenticate résout le token bearer, ou à défaut la session du client.
func (e *Env) Authenticate(ctx context.Context, clientID, token string) (models.User, error) {
	users := e.userStore(clientID)
	if token == "" {
		if err := users.Initialize(ctx); err != nil {
			return models.User{}, err
		}
		token = users.Session().AuthToken
		if token == "" {
			return models.User{}, store.ErrNotAuthenticated
		}
	}
	return users.Authenticate(ctx, token)
}

// PublishCart pousse le résumé du panier aux websockets du client.
func (e *Env) PublishCart(c *gin.Context, summary models.CartSummary) {
	if e.CartEvents == nil {
		return
	}
	if err := e.CartEvents.Publish(c.Request.Context(), ClientID(c), summary); err != nil {
		e.Logger.Warn("publication panier impossible", zap.Error(err))
	}
}

// ResolveProducts signe les URLs d'images si MinIO est configuré.
func (e *Env) ResolveProducts(c *gin.Context, products []models.Product) []models.Product {
	return services.ResolveProducts(c.Request.Context(), e.Images, products)
}

func (e *Env) ResolveProduct(c *gin.Context, p models.Product) models.Product {
	return services.ResolveProduct(c.Request.Context(), e.Images, p)
}

// ResolveCart signe les images d'un résumé sans toucher au panier stocké.
func (e *Env) ResolveCart(c *gin.Context, summary models.CartSummary) models.CartSummary {
	if e.Images == nil {
		return summary
	}
	items := make([]models.CartItem, len(summary.Items))
	for i, item := range summary.Items {
		item.Product = e.ResolveProduct(c, item.Product)
		items[i] = item
	}
	summary.Items = items
	return summary
}

// RespondError traduit une erreur métier en statut HTTP.
func (e *Env) RespondError(c *gin.Context, err error) {
	var fieldErrs utils.ValidationErrors
	var conflict *service.CartConflictError

	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrs})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Le panier a été mis à jour", "messages": conflict.Messages})
	case errors.Is(err, store.ErrInvalidCredentials), errors.Is(err, store.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrProductNotFound), errors.Is(err, store.ErrItemNotFound), errors.Is(err, store.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrEmailTaken), errors.Is(err, store.ErrOutOfStock), errors.Is(err, store.ErrStatusLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidQuantity), errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrUnknownShippingMethod),
		errors.Is(err, service.ErrInvalidDiscountCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrLockTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ressource occupée, réessayez"})
	default:
		e.Logger.Error("erreur interne", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
