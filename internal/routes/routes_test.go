package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/cache"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/storage"
	"storefront/internal/store"
	"storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminKey = "admin-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	hasher, err := utils.NewPasswordHasher("base64")
	require.NoError(t, err)
	tokens, err := utils.NewTokenCodec("base64", "")
	require.NoError(t, err)

	env := &handlers.Env{
		Storage:    storage.NewMemoryStorage(),
		Hasher:     hasher,
		Tokens:     tokens,
		Options:    store.Options{TaxRate: 0.08},
		CartEvents: cache.NewMemoryCartEvents(),

		FreeShippingThreshold: 50,
	}
	r := gin.New()
	SetupRoutes(r, env, Options{AdminAPIKey: adminKey})
	return r
}

type call struct {
	method, path string
	body         any
	clientID     string
	token        string
	admin        bool
}

func do(t *testing.T, r http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.clientID != "" {
		req.Header.Set(middleware.ClientIDHeader, c.clientID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.admin {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func checkoutForm() map[string]any {
	return map[string]any{
		"firstName":     "Ada",
		"lastName":      "Lovelace",
		"email":         "ada@example.com",
		"phone":         "+1 555 123 4567",
		"address":       "12 Analytical St",
		"city":          "London",
		"state":         "LDN",
		"zip":           "10001",
		"sameAsBilling": true,
		"cardNumber":    "4242424242424242",
		"expiryDate":    "12/28",
		"cvv":           "123",
		"cardName":      "Ada Lovelace",
	}
}

func TestHealthAndClientID(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.ClientIDHeader))
}

func TestCatalogRoutes(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, call{method: http.MethodGet, path: "/api/products"})
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[models.ProductPage](t, w)
	assert.Equal(t, 15, page.TotalItems)
	assert.Len(t, page.Products, 12)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNextPage)

	w = do(t, r, call{method: http.MethodGet, path: "/api/products?category=kids&sort=price&order=desc"})
	page = decode[models.ProductPage](t, w)
	require.Len(t, page.Products, 4)
	assert.Equal(t, "k3", page.Products[0].ID)

	w = do(t, r, call{method: http.MethodGet, path: "/api/products?q=kurta"})
	page = decode[models.ProductPage](t, w)
	assert.Equal(t, 3, page.TotalItems)

	w = do(t, r, call{method: http.MethodGet, path: "/api/products/nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, call{method: http.MethodGet, path: "/api/categories"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartRoutes(t *testing.T) {
	r := newTestRouter(t)
	client := "client-cart-0001"

	w := do(t, r, call{method: http.MethodPost, path: "/api/cart/items", clientID: client,
		body: map[string]any{"productId": "m1", "quantity": 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[models.CartSummary](t, w)
	assert.Equal(t, 179.98, summary.Subtotal)
	assert.Equal(t, 14.4, summary.Tax)
	assert.Equal(t, 2, summary.ItemCount)

	// quantité par défaut : 1
	w = do(t, r, call{method: http.MethodPost, path: "/api/cart/items", clientID: client,
		body: map[string]any{"productId": "k1"}})
	summary = decode[models.CartSummary](t, w)
	assert.Equal(t, 3, summary.ItemCount)

	w = do(t, r, call{method: http.MethodPost, path: "/api/cart/items", clientID: client,
		body: map[string]any{"productId": "k4", "quantity": 1}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, call{method: http.MethodPost, path: "/api/cart/items", clientID: client,
		body: map[string]any{"productId": "m1", "quantity": 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, call{method: http.MethodPost, path: "/api/cart/items", clientID: client,
		body: map[string]any{"productId": "ghost"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// bornée au stock (25)
	w = do(t, r, call{method: http.MethodPatch, path: "/api/cart/items/m1", clientID: client,
		body: map[string]any{"quantity": 99}})
	summary = decode[models.CartSummary](t, w)
	assert.Equal(t, 26, summary.ItemCount)

	w = do(t, r, call{method: http.MethodDelete, path: "/api/cart/items/k1", clientID: client})
	summary = decode[models.CartSummary](t, w)
	assert.Equal(t, 25, summary.ItemCount)

	// un autre client a son propre panier
	w = do(t, r, call{method: http.MethodGet, path: "/api/cart", clientID: "client-cart-0002"})
	summary = decode[models.CartSummary](t, w)
	assert.Empty(t, summary.Items)

	// le stock baisse côté admin : la validation corrige le panier
	w = do(t, r, call{method: http.MethodPut, path: "/api/admin/products/m1/stock", admin: true,
		body: map[string]any{"stock": 5}})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, call{method: http.MethodPost, path: "/api/cart/validate", clientID: client})
	validation := decode[struct {
		Valid    bool               `json:"valid"`
		Messages []string           `json:"messages"`
		Cart     models.CartSummary `json:"cart"`
	}](t, w)
	assert.False(t, validation.Valid)
	assert.Equal(t, []string{"Only 5 Traditional Silk Kurta Set available"}, validation.Messages)
	assert.Equal(t, 5, validation.Cart.ItemCount)

	w = do(t, r, call{method: http.MethodDelete, path: "/api/cart", clientID: client})
	summary = decode[models.CartSummary](t, w)
	assert.Zero(t, summary.ItemCount)
}

func TestWishlistRoutes(t *testing.T) {
	r := newTestRouter(t)
	client := "client-wish-0001"

	w := do(t, r, call{method: http.MethodPost, path: "/api/wishlist/items", clientID: client,
		body: map[string]any{"productId": "w1"}})
	require.Equal(t, http.StatusOK, w.Code)
	added := decode[struct {
		Added    bool            `json:"added"`
		Wishlist models.Wishlist `json:"wishlist"`
	}](t, w)
	assert.True(t, added.Added)
	assert.Equal(t, 1, added.Wishlist.ItemCount)

	w = do(t, r, call{method: http.MethodPost, path: "/api/wishlist/items", clientID: client,
		body: map[string]any{"productId": "w1"}})
	added = decode[struct {
		Added    bool            `json:"added"`
		Wishlist models.Wishlist `json:"wishlist"`
	}](t, w)
	assert.False(t, added.Added)
	assert.Equal(t, 1, added.Wishlist.ItemCount)

	w = do(t, r, call{method: http.MethodPost, path: "/api/wishlist/items/w1/move-to-cart", clientID: client})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[struct {
		Wishlist models.Wishlist    `json:"wishlist"`
		Cart     models.CartSummary `json:"cart"`
	}](t, w)
	assert.Zero(t, moved.Wishlist.ItemCount)
	assert.Equal(t, 1, moved.Cart.ItemCount)

	w = do(t, r, call{method: http.MethodPost, path: "/api/wishlist/items/w1/move-to-cart", clientID: client})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthCheckoutAndOrders(t *testing.T) {
	r := newTestRouter(t)
	client := "client-buy-0001"

	w := do(t, r, call{method: http.MethodPost, path: "/api/auth/register", clientID: client,
		body: map[string]any{"name": "A", "email": "bad", "phone": "1", "password": "123"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fieldErrs := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, w)
	assert.Contains(t, fieldErrs.Errors, "email")
	assert.Contains(t, fieldErrs.Errors, "password")

	w = do(t, r, call{method: http.MethodPost, path: "/api/auth/register", clientID: client,
		body: map[string]any{"name": "Ada", "email": "Ada@Example.com", "phone": "+1 555 123 4567", "password": "secret1"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[models.Session](t, w)
	require.True(t, session.IsAuthenticated)
	assert.Equal(t, "ada@example.com", session.CurrentUser.Email)
	token := session.AuthToken

	w = do(t, r, call{method: http.MethodPost, path: "/api/auth/register", clientID: "client-buy-0002",
		body: map[string]any{"name": "Ada", "email": "ada@example.com", "phone": "+1 555 123 4567", "password": "secret1"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	// devis sur panier vide
	w = do(t, r, call{method: http.MethodPost, path: "/api/checkout/quote", clientID: client})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	do(t, r, call{method: http.MethodPost, path: "/api/cart/items", clientID: client,
		body: map[string]any{"productId": "m1", "quantity": 2}})

	w = do(t, r, call{method: http.MethodPost, path: "/api/checkout/quote", clientID: client,
		body: map[string]any{"shippingMethod": "express", "discountCode": "save10"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quote := decode[models.Quote](t, w)
	assert.Equal(t, 12.99, quote.ShippingCost)
	assert.Equal(t, 18.0, quote.DiscountAmount)
	assert.Equal(t, 189.37, quote.Total)

	w = do(t, r, call{method: http.MethodPost, path: "/api/checkout/discount", body: map[string]any{"code": "FREE"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, call{method: http.MethodGet, path: "/api/checkout/shipping-methods", clientID: client})
	methods := decode[struct {
		Methods []models.ShippingMethod `json:"methods"`
	}](t, w)
	require.Len(t, methods.Methods, 3)
	assert.Zero(t, methods.Methods[0].Price)

	// pas de session sur ce client
	w = do(t, r, call{method: http.MethodPost, path: "/api/checkout", clientID: "client-anon-0001", body: checkoutForm()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// session du client, sans bearer
	w = do(t, r, call{method: http.MethodPost, path: "/api/checkout", clientID: client, body: checkoutForm()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decode[struct {
		Order models.Order `json:"order"`
	}](t, w)
	order := placed.Order
	assert.Equal(t, 194.38, order.Total)
	assert.Equal(t, "4242", order.PaymentMethod.Last4)
	assert.Equal(t, models.OrderConfirmed, order.Status)

	w = do(t, r, call{method: http.MethodGet, path: "/api/cart", clientID: client})
	assert.Zero(t, decode[models.CartSummary](t, w).ItemCount)

	w = do(t, r, call{method: http.MethodGet, path: "/api/products/m1"})
	product := decode[struct {
		Product models.Product `json:"product"`
	}](t, w)
	assert.Equal(t, 23, product.Product.Stock)

	// bearer depuis un autre client
	w = do(t, r, call{method: http.MethodGet, path: "/api/orders", clientID: "client-other-01", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Orders []models.Order `json:"orders"`
		Count  int            `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)

	w = do(t, r, call{method: http.MethodGet, path: "/api/orders/" + order.ID + "/qrcode", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	// commande d'un autre utilisateur
	w = do(t, r, call{method: http.MethodPost, path: "/api/auth/register", clientID: "client-eve-0001",
		body: map[string]any{"name": "Eve", "email": "eve@example.com", "phone": "+1 555 987 6543", "password": "secret2"}})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, r, call{method: http.MethodGet, path: "/api/orders/" + order.ID, clientID: "client-eve-0001"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// administration
	status := func(s string, admin bool) int {
		return do(t, r, call{method: http.MethodPatch, path: "/api/admin/orders/" + order.ID + "/status",
			admin: admin, body: map[string]any{"status": s}}).Code
	}
	assert.Equal(t, http.StatusForbidden, status("shipped", false))
	assert.Equal(t, http.StatusBadRequest, status("lost", true))
	assert.Equal(t, http.StatusOK, status("shipped", true))
	assert.Equal(t, http.StatusOK, status("delivered", true))
	assert.Equal(t, http.StatusConflict, status("cancelled", true))

	w = do(t, r, call{method: http.MethodPost, path: "/api/auth/logout", clientID: client})
	assert.False(t, decode[models.Session](t, w).IsAuthenticated)
	w = do(t, r, call{method: http.MethodGet, path: "/api/orders", clientID: client})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRateLimit(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, call{method: http.MethodPost, path: "/api/auth/register", clientID: "client-rl-00001",
		body: map[string]any{"name": "Ada", "email": "ada@example.com", "phone": "+1 555 123 4567", "password": "secret1"}})

	for range cache.DefaultLoginMaxAttempts {
		w := do(t, r, call{method: http.MethodPost, path: "/api/auth/login",
			body: map[string]any{"email": "ada@example.com", "password": "wrong-pass"}})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := do(t, r, call{method: http.MethodPost, path: "/api/auth/login",
		body: map[string]any{"email": "ada@example.com", "password": "secret1"}})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCartWebSocket(t *testing.T) {
	r := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	client := "client-ws-00001"
	header := http.Header{}
	header.Set(middleware.ClientIDHeader, client)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/cart/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	type message struct {
		Type string             `json:"type"`
		Cart models.CartSummary `json:"cart"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)
	assert.Zero(t, msg.Cart.ItemCount)

	body := strings.NewReader(`{"productId":"m3","quantity":3}`)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/cart/items", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ClientIDHeader, client)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "cart_updated", msg.Type)
	assert.Equal(t, 3, msg.Cart.ItemCount)
}
