package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ClientIDHeader = "X-Client-ID"
	ClientIDCookie = "client_id"
	ClientIDKey    = "client_id"

	clientCookieMaxAge = 365 * 24 * time.Hour
)

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ClientNamespace identifie le navigateur appelant : en-tête X-Client-ID,
// sinon cookie client_id, sinon un nouvel identifiant posé en cookie.
func ClientNamespace() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader(ClientIDHeader)
		if !clientIDPattern.MatchString(clientID) {
			clientID, _ = c.Cookie(ClientIDCookie)
		}
		if !clientIDPattern.MatchString(clientID) {
			clientID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ClientIDCookie, clientID, int(clientCookieMaxAge.Seconds()), "/", "", false, true)
		}

		c.Set(ClientIDKey, clientID)
		c.Header(ClientIDHeader, clientID)
		c.Next()
	}
}
