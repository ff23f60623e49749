package account

import (
	"net/http"

	"storefront/internal/handlers"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

type productInput struct {
	ProductID string `json:"productId" binding:"required"`
}

func GetWishlist(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		wishlist, ok := env.Wishlist(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, resolveWishlist(env, c, wishlist.Wishlist()))
	}
}

func resolveWishlist(env *handlers.Env, c *gin.Context, w models.Wishlist) models.Wishlist {
	if env.Images == nil {
		return w
	}
	items := make([]models.WishlistItem, len(w.Items))
	for i, item := range w.Items {
		item.Product = env.ResolveProduct(c, item.Product)
		items[i] = item
	}
	w.Items = items
	return w
}

// AddToWishlist : sans effet si le produit y est déjà (added=false).
func AddToWishlist(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input productInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}
		product, found := catalog.GetProductByID(input.ProductID)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}

		wishlist, ok := env.Wishlist(c)
		if !ok {
			return
		}
		added, err := wishlist.AddToWishlist(c.Request.Context(), product)
		if err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"added":    added,
			"wishlist": resolveWishlist(env, c, wishlist.Wishlist()),
		})
	}
}

func RemoveFromWishlist(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		wishlist, ok := env.Wishlist(c)
		if !ok {
			return
		}
		if err := wishlist.RemoveFromWishlist(c.Request.Context(), c.Param("productId")); err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resolveWishlist(env, c, wishlist.Wishlist()))
	}
}

// MoveToCart ajoute une unité au panier, au prix et stock actuels, puis retire
// le produit de la wishlist.
func MoveToCart(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("productId")

		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}
		wishlist, ok := env.Wishlist(c)
		if !ok {
			return
		}

		product, found := catalog.GetProductByID(productID)
		if !found {
			// produit retiré du catalogue : on garde l'instantané de la wishlist
			for _, item := range wishlist.Items() {
				if item.ID == productID {
					product, found = item.Product, true
					break
				}
			}
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}

		cart, ok := env.Cart(c, catalog)
		if !ok {
			return
		}
		if err := wishlist.MoveToCart(c.Request.Context(), product, cart); err != nil {
			env.RespondError(c, err)
			return
		}

		summary := cart.GetCartSummary()
		env.PublishCart(c, summary)
		c.JSON(http.StatusOK, gin.H{
			"wishlist": resolveWishlist(env, c, wishlist.Wishlist()),
			"cart":     env.ResolveCart(c, summary),
		})
	}
}

func ClearWishlist(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		wishlist, ok := env.Wishlist(c)
		if !ok {
			return
		}
		if err := wishlist.ClearWishlist(c.Request.Context()); err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, wishlist.Wishlist())
	}
}
