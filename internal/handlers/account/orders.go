package account

import (
	"net/http"
	"strconv"

	"storefront/internal/handlers"
	"storefront/internal/models"
	"storefront/internal/utils"

	"github.com/gin-gonic/gin"
)

// GetOrders : commandes de l'utilisateur connecté, plus récentes d'abord.
func GetOrders(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, ok := env.Orders(c)
		if !ok {
			return
		}
		list := orders.GetOrdersByUserID(handlers.UserID(c))
		c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
	}
}

// ownOrder charge la commande :id ; une commande d'un autre utilisateur est
// traitée comme introuvable.
func ownOrder(env *handlers.Env, c *gin.Context) (models.Order, bool) {
	orders, ok := env.Orders(c)
	if !ok {
		return models.Order{}, false
	}
	order, found := orders.GetOrderByID(c.Param("id"))
	if !found || order.UserID != handlers.UserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return models.Order{}, false
	}
	return order, true
}

func GetOrder(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := ownOrder(env, c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GetOrderQRCode retourne le QR code PNG d'une commande (?size=, 256 par défaut).
func GetOrderQRCode(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := ownOrder(env, c)
		if !ok {
			return
		}

		size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
		if size < 64 || size > 1024 {
			size = 256
		}
		png, err := utils.OrderQRCode(order, size)
		if err != nil {
			env.RespondError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	}
}

// UpdateOrderStatus (route admin).
func UpdateOrderStatus(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Status models.OrderStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		orders, ok := env.Orders(c)
		if !ok {
			return
		}
		order, err := orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), input.Status)
		if err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
