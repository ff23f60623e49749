package account

import (
	"net/http"

	"storefront/internal/handlers"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
)

func Register(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input store.RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		users, ok := env.Users(c)
		if !ok {
			return
		}
		session, err := users.Register(c.Request.Context(), input)
		if err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	}
}

func Login(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input store.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		users, ok := env.Users(c)
		if !ok {
			return
		}
		session, err := users.Login(c.Request.Context(), input)
		if err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func Logout(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, ok := env.Users(c)
		if !ok {
			return
		}
		if err := users.Logout(c.Request.Context()); err != nil {
			env.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users.Session())
	}
}

// GetSession retourne la session revalidée du client.
func GetSession(env *handlers.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, ok := env.Users(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, users.Session())
	}
}
