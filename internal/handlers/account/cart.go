package account

import (
	"net/http"

	"storefront/internal/handlers"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
)

func respondCart(env *handlers.Env, c *gin.Context, cart *store.CartStore, status int) {
	summary := cart.GetCartSummary()
	env.PublishCart(c, summary)
	c.JSON(status, env.ResolveCart(c, summary))
}

func GetCart(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, ok := env.Cart(c, nil)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, env.ResolveCart(c, cart.GetCartSummary()))
	}
}

// AddToCart ajoute un produit du catalogue, quantité 1 par défaut.
func AddToCart(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ProductID string `json:"productId" binding:"required"`
			Quantity  *int   `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}
		quantity := 1
		if input.Quantity != nil {
			quantity = *input.Quantity
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

		cart, ok := env.Cart(c, catalog)
		if !ok {
			return
		}
		if err := cart.AddToCart(c.Request.Context(), product, quantity); err != nil {
			env.RespondError(c, err)
			return
		}
		respondCart(env, c, cart, http.StatusOK)
	}
}

// UpdateCartItem : une quantité <= 0 retire la ligne.
func UpdateCartItem(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Quantity *int `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}
		cart, ok := env.Cart(c, catalog)
		if !ok {
			return
		}
		if err := cart.UpdateQuantity(c.Request.Context(), c.Param("productId"), *input.Quantity); err != nil {
			env.RespondError(c, err)
			return
		}
		respondCart(env, c, cart, http.StatusOK)
	}
}

func RemoveFromCart(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, ok := env.Cart(c, nil)
		if !ok {
			return
		}
		if err := cart.RemoveFromCart(c.Request.Context(), c.Param("productId")); err != nil {
			env.RespondError(c, err)
			return
		}
		respondCart(env, c, cart, http.StatusOK)
	}
}

func ClearCart(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, ok := env.Cart(c, nil)
		if !ok {
			return
		}
		if err := cart.ClearCart(c.Request.Context()); err != nil {
			env.RespondError(c, err)
			return
		}
		respondCart(env, c, cart, http.StatusOK)
	}
}

// ValidateCart réconcilie le panier avec le stock et liste les corrections.
func ValidateCart(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}
		cart, ok := env.Cart(c, catalog)
		if !ok {
			return
		}

		messages, err := cart.ValidateCart(c.Request.Context(), catalog.Products())
		if err != nil {
			env.RespondError(c, err)
			return
		}
		if messages == nil {
			messages = []string{}
		}

		summary := cart.GetCartSummary()
		if len(messages) > 0 {
			env.PublishCart(c, summary)
		}
		c.JSON(http.StatusOK, gin.H{
			"valid":    len(messages) == 0,
			"messages": messages,
			"cart":     env.ResolveCart(c, summary),
		})
	}
}
