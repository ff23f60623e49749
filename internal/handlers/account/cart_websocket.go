package account

import (
	"net/http"
	"time"

	"storefront/internal/handlers"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// L'origine est déjà filtrée par le middleware CORS
	CheckOrigin: func(r *http.Request) bool { return true },
}

type cartMessage struct {
	Type string             `json:"type"`
	Cart models.CartSummary `json:"cart"`
}

// CartWebSocket pousse le résumé du panier du client à chaque modification.
func CartWebSocket(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		if env.CartEvents == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Synchronisation panier indisponible"})
			return
		}

		cart, ok := env.Cart(c, nil)
		if !ok {
			return
		}

		clientID := handlers.ClientID(c)
		ctx := c.Request.Context()
		updates, cancel, err := env.CartEvents.Subscribe(ctx, clientID)
		if err != nil {
			env.Logger.Error("abonnement panier impossible", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Synchronisation panier indisponible"})
			return
		}
		defer cancel()

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			env.Logger.Warn("upgrade websocket", zap.Error(err))
			return
		}
		defer conn.Close()

		// Lecture en tâche de fond pour détecter la fermeture côté client
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		write := func(msg cartMessage) bool {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				env.Logger.Debug("envoi websocket", zap.Error(err))
				return false
			}
			return true
		}

		if !write(cartMessage{Type: "connected", Cart: env.ResolveCart(c, cart.GetCartSummary())}) {
			return
		}

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-closed:
				return
			case summary, ok := <-updates:
				if !ok {
					return
				}
				if !write(cartMessage{Type: "cart_updated", Cart: env.ResolveCart(c, summary)}) {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			}
		}
	}
}
