package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Paramètres Argon2id optimisés pour la performance
const (
	Argon2Time    = 1         // Nombre d'itérations
	Argon2Memory  = 32 * 1024 // 32 MB
	Argon2Threads = 4
	Argon2KeyLen  = 32
	Argon2SaltLen = 16
)

// Sel fixe du hash "mock" historique.
const mockSalt = "salt123"

// PasswordHasher hash et vérifie des mots de passe.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// NewPasswordHasher choisit l'implémentation : "argon2id" ou "base64" (défaut).
func NewPasswordHasher(kind string) (PasswordHasher, error) {
	switch strings.ToLower(kind) {
	case "", "base64", "mock":
		return Base64Hasher{}, nil
	case "argon2id", "argon2":
		return Argon2Hasher{}, nil
	}
	return nil, fmt.Errorf("hasher inconnu: %s", kind)
}

// Base64Hasher : base64(password + sel). Ce n'est PAS un hash sécurisé.
type Base64Hasher struct{}

func (Base64Hasher) Hash(password string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(password + mockSalt)), nil
}

func (h Base64Hasher) Verify(password, encodedHash string) (bool, error) {
	hash, _ := h.Hash(password)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(encodedHash)) == 1, nil
}

// Argon2Hasher hash avec Argon2id.
type Argon2Hasher struct{}

func (Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	// Format: $argon2id$v=19$m=32768,t=1,p=4$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, Argon2Memory, Argon2Time, Argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

func (Argon2Hasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.New("hash invalide")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, err
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	otherHash := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))

	// Comparaison en temps constant
	return subtle.ConstantTimeCompare(hash, otherHash) == 1, nil
}
