package routes

import (
	"net/http"
	"time"

	"storefront/internal/cache"
	"storefront/internal/handlers"
	"storefront/internal/handlers/account"
	"storefront/internal/handlers/catalog"
	"storefront/internal/handlers/checkout"
	"storefront/internal/logger"
	"storefront/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	CORSOrigins  []string
	AdminAPIKey  string
	LoginLimiter cache.AttemptLimiter
}

func SetupRoutes(r *gin.Engine, env *handlers.Env, opts Options) {
	env.Logger = logger.OrNop(env.Logger)
	if opts.LoginLimiter == nil {
		opts.LoginLimiter = cache.NewMemoryLimiter(0, 0)
	}

	corsConfig := cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.ClientIDHeader, "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length", middleware.ClientIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))
	r.Use(middleware.RequestLogger(env.Logger))
	r.Use(middleware.ClientNamespace())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	auth := middleware.AuthRequired(env.Authenticate)
	admin := middleware.AdminAPIKey(opts.AdminAPIKey)

	// Catalogue
	api.GET("/products", catalog.GetProducts(env))
	api.GET("/products/:id", catalog.GetProduct(env))
	api.GET("/categories", catalog.GetCategories(env))

	// Utilisateurs
	users := api.Group("/auth")
	{
		users.POST("/register", account.Register(env))
		users.POST("/login", middleware.LoginRateLimit(opts.LoginLimiter, env.Logger), account.Login(env))
		users.POST("/logout", account.Logout(env))
		users.GET("/session", account.GetSession(env))
	}

	// Panier
	cart := api.Group("/cart")
	{
		cart.GET("", account.GetCart(env))
		cart.POST("/items", account.AddToCart(env))
		cart.PATCH("/items/:productId", account.UpdateCartItem(env))
		cart.DELETE("/items/:productId", account.RemoveFromCart(env))
		cart.DELETE("", account.ClearCart(env))
		cart.POST("/validate", account.ValidateCart(env))
		cart.GET("/ws", account.CartWebSocket(env))
	}

	// Wishlist
	wishlist := api.Group("/wishlist")
	{
		wishlist.GET("", account.GetWishlist(env))
		wishlist.POST("/items", account.AddToWishlist(env))
		wishlist.DELETE("/items/:productId", account.RemoveFromWishlist(env))
		wishlist.POST("/items/:productId/move-to-cart", account.MoveToCart(env))
		wishlist.DELETE("", account.ClearWishlist(env))
	}

	// Commande
	api.GET("/checkout/shipping-methods", checkout.GetShippingMethods(env))
	api.POST("/checkout/discount", checkout.ApplyDiscount(env))
	api.POST("/checkout/quote", checkout.GetQuote(env))
	api.POST("/checkout", auth, checkout.PlaceOrder(env))

	orders := api.Group("/orders", auth)
	{
		orders.GET("", account.GetOrders(env))
		orders.GET("/:id", account.GetOrder(env))
		orders.GET("/:id/qrcode", account.GetOrderQRCode(env))
	}

	// Administration
	adminGroup := api.Group("/admin", admin)
	{
		adminGroup.PUT("/products/:id/stock", catalog.UpdateStock(env))
		adminGroup.PATCH("/orders/:id/status", account.UpdateOrderStatus(env))
	}
}
