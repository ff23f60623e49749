package checkout

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"storefront/internal/handlers"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// GetShippingMethods : tarifs pour le sous-total du panier, ou ?subtotal=.
func GetShippingMethods(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}

		var subtotal float64
		if raw := c.Query("subtotal"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Sous-total invalide"})
				return
			}
			subtotal = v
		} else {
			cart, ok := env.Cart(c, nil)
			if !ok {
				return
			}
			subtotal = cart.GetCartSummary().Subtotal
		}

		methods := env.Checkout(catalog, nil).ShippingMethods(subtotal)
		c.JSON(http.StatusOK, gin.H{"methods": methods, "subtotal": subtotal})
	}
}

// ApplyDiscount vérifie un code promo.
func ApplyDiscount(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Code string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		code, rate, err := service.DiscountRate(input.Code)
		if err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": code, "rate": rate})
	}
}

type quoteInput struct {
	ShippingMethod string `json:"shippingMethod"`
	DiscountCode   string `json:"discountCode"`
}

// GetQuote chiffre le panier courant : sous-total, taxe, livraison, remise, total.
func GetQuote(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input quoteInput
		// corps optionnel : livraison standard, sans code
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
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
		if cart.IsEmpty() {
			env.RespondError(c, service.ErrEmptyCart)
			return
		}

		quote, err := env.Checkout(catalog, nil).Quote(cart.Items(), input.ShippingMethod, input.DiscountCode)
		if err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

// PlaceOrder transforme le panier du client en commande pour l'utilisateur connecté.
func PlaceOrder(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}
		orders, ok := env.Orders(c)
		if !ok {
			return
		}
		cart, ok := env.Cart(c, catalog)
		if !ok {
			return
		}

		order, err := env.Checkout(catalog, orders).PlaceOrder(c.Request.Context(), handlers.UserID(c), req, cart)
		if err != nil {
			env.PublishCart(c, cart.GetCartSummary())
			env.RespondError(c, err)
			return
		}

		env.PublishCart(c, cart.GetCartSummary())
		c.JSON(http.StatusCreated, gin.H{"order": order})
	}
}
