package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storefront/internal/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxLoginBody borne le corps d'une requête de connexion.
const maxLoginBody = 16 << 10

// LoginRateLimit bloque un email après trop d'échecs de connexion.
func LoginRateLimit(limiter cache.AttemptLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Lire le body sans le consommer
		bodyBytes, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxLoginBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Requête trop volumineuse"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		var input struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(bodyBytes, &input); err != nil || input.Email == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := strings.ToLower(strings.TrimSpace(input.Email))

		wait, err := limiter.Check(ctx, key)
		if err != nil {
			// limiteur indisponible : on laisse passer
			log.Warn("rate limit login indisponible", zap.Error(err))
			c.Next()
			return
		}
		if wait > 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(wait.Minutes())+1),
				"retry_after": int(wait.Seconds()),
			})
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			remaining, err := limiter.Fail(ctx, key)
			if err != nil {
				log.Warn("échec login non comptabilisé", zap.Error(err))
				return
			}
			if remaining == 0 {
				log.Info("login bloqué après trop d'échecs", zap.String("email", key))
			}
		case http.StatusOK:
			if err := limiter.Reset(ctx, key); err != nil {
				log.Warn("réinitialisation rate limit impossible", zap.Error(err))
			}
		}
	}
}
