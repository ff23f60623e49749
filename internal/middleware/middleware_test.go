package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/cache"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClientNamespace(t *testing.T) {
	r := gin.New()
	r.Use(ClientNamespace())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ClientIDKey)) })

	// nouvel identifiant posé en cookie
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Body.String()
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Header().Get(ClientIDHeader))
	require.Len(t, w.Result().Cookies(), 1)
	assert.Equal(t, generated, w.Result().Cookies()[0].Value)

	// cookie existant réutilisé
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: generated})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, generated, w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	// l'en-tête a priorité
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ClientIDHeader, "browser-tab-42")
	req.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: generated})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "browser-tab-42", w.Body.String())

	// valeur invalide ignorée
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ClientIDHeader, "../../etc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "../../etc", w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	var gotToken string
	auth := func(_ context.Context, clientID, token string) (models.User, error) {
		gotToken = token
		if token == "good" || (token == "" && clientID == "logged-in-client") {
			return models.User{ID: "u1", Email: "ada@example.com"}, nil
		}
		return models.User{}, errors.New("nope")
	}

	r := gin.New()
	r.Use(ClientNamespace(), AuthRequired(auth))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(UserIDKey)) })

	do := func(header, clientID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if clientID != "" {
			req.Header.Set(ClientIDHeader, clientID)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do("Bearer good", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
	assert.Equal(t, "good", gotToken)

	assert.Equal(t, http.StatusUnauthorized, do("Bearer bad", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Token good", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do("", "anonymous-client").Code)
	assert.Equal(t, http.StatusOK, do("", "logged-in-client").Code)
}

func TestAdminAPIKey(t *testing.T) {
	for _, tc := range []struct {
		configured, sent string
		want             int
	}{
		{"s3cret", "s3cret", http.StatusOK},
		{"s3cret", "wrong", http.StatusForbidden},
		{"", "", http.StatusForbidden},
	} {
		r := gin.New()
		r.GET("/", AdminAPIKey(tc.configured), func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Admin-Key", tc.sent)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	limiter := cache.NewMemoryLimiter(2, time.Minute)
	r := gin.New()
	r.POST("/login", LoginRateLimit(limiter, zap.NewNop()), func(c *gin.Context) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		if body.Password == "right" {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	})

	login := func(password string) int {
		req := httptest.NewRequest(http.MethodPost, "/login",
			strings.NewReader(`{"email":"Ada@example.com","password":"`+password+`"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("wrong"))
	assert.Equal(t, http.StatusOK, login("right"))

	assert.Equal(t, http.StatusUnauthorized, login("wrong"))
	assert.Equal(t, http.StatusUnauthorized, login("wrong"))
	assert.Equal(t, http.StatusTooManyRequests, login("right"))
}

func TestLoginRateLimit_RejectsOversizedBody(t *testing.T) {
	called := false
	r := gin.New()
	r.POST("/login", LoginRateLimit(cache.NewMemoryLimiter(2, time.Minute), zap.NewNop()), func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})

	body := `{"email":"ada@example.com","password":"` + strings.Repeat("x", maxLoginBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, called)
}
