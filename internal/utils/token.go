package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("token invalide")

// TokenClaims : ce qu'un token d'authentification transporte.
type TokenClaims struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

// TokenCodec émet et valide les tokens de session.
type TokenCodec interface {
	Generate(user models.User) (string, error)
	Validate(token string) (*TokenClaims, error)
}

// NewTokenCodec : "jwt" (HS256 signé) ou "base64" (défaut, aucune signature).
func NewTokenCodec(kind, secret string) (TokenCodec, error) {
	switch strings.ToLower(kind) {
	case "", "base64", "mock":
		return Base64Tokens{Now: time.Now}, nil
	case "jwt":
		if secret == "" {
			return nil, errors.New("JWT_SECRET manquant")
		}
		return JWTTokens{Secret: []byte(secret), TTL: 24 * time.Hour, Now: time.Now}, nil
	}
	return nil, fmt.Errorf("format de token inconnu: %s", kind)
}

// Base64Tokens : base64(json{id,email,timestamp}). Validé par la seule
// présence de id et email, sans expiration.
type Base64Tokens struct {
	Now func() time.Time
}

func (b Base64Tokens) Generate(user models.User) (string, error) {
	data, err := json.Marshal(TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Timestamp: b.Now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (Base64Tokens) Validate(token string) (*TokenClaims, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// JWTTokens signe en HS256 avec expiration.
type JWTTokens struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (j JWTTokens) Generate(user models.User) (string, error) {
	now := j.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"iat":     now.Unix(),
		"exp":     now.Add(j.TTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j JWTTokens) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(j.Now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	if userID == "" || email == "" {
		return nil, ErrInvalidToken
	}

	var issued int64
	if iat, ok := claims["iat"].(float64); ok {
		issued = int64(iat) * 1000
	}
	return &TokenClaims{UserID: userID, Email: email, Timestamp: issued}, nil
}
