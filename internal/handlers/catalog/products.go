package catalog

import (
	"net/http"

	"storefront/internal/handlers"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// GetProducts : recherche, filtres, tri et pagination du catalogue.
//
//	GET /api/products?q=&category=&subcategory=&sort=name|price|rating&order=asc|desc&page=
func GetProducts(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query models.ProductQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètres invalides"})
			return
		}

		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}

		page := catalog.Query(c.Request.Context(), query)
		page.Products = env.ResolveProducts(c, page.Products)
		c.JSON(http.StatusOK, page)
	}
}

func GetProduct(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}

		product, found := catalog.GetProductByID(c.Param("id"))
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"product":         env.ResolveProduct(c, product),
			"discountPercent": product.DiscountPercent(),
		})
	}
}

func GetCategories(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"categories": catalog.Categories()})
	}
}

// UpdateStock fixe le stock d'un produit (route admin).
func UpdateStock(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Stock *int `json:"stock" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		catalog, ok := env.Catalog(c)
		if !ok {
			return
		}
		if err := catalog.UpdateProductStock(c.Request.Context(), c.Param("id"), *req.Stock); err != nil {
			env.RespondError(c, err)
			return
		}

		product, _ := catalog.GetProductByID(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"product": env.ResolveProduct(c, product)})
	}
}
