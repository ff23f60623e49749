package middleware

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

// Authenticator résout un token (éventuellement vide) en utilisateur. Un token
// vide désigne la session enregistrée pour le client.
type Authenticator func(ctx context.Context, clientID, token string) (models.User, error)

// AuthRequired place user_id et email dans le contexte gin.
func AuthRequired(authenticate Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Format Authorization invalide"})
				return
			}
			token = parts[1]
		}

		user, err := authenticate(c.Request.Context(), c.GetString(ClientIDKey), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(EmailKey, user.Email)
		c.Next()
	}
}

// AdminAPIKey protège les routes d'administration par une clé partagée
// (en-tête X-Admin-Key). Sans clé configurée, ces routes sont fermées.
func AdminAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.GetHeader("X-Admin-Key") != key {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
			return
		}
		c.Next()
	}
}
