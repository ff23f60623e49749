package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/storage"
	"storefront/internal/utils"

	"github.com/google/uuid"
)

// RegisterInput : formulaire d'inscription.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserStore : comptes partagés (ecommerce_users) et session du client
// (utilisateur courant + token).
type UserStore struct {
	storage storage.Storage
	hasher  utils.PasswordHasher
	tokens  utils.TokenCodec
	ttl     time.Duration
	now     func() time.Time

	userKey  string
	tokenKey string

	users   []models.User
	session models.Session
}

func NewUserStore(st storage.Storage, clientID string, hasher utils.PasswordHasher, tokens utils.TokenCodec, opts Options) *UserStore {
	opts = opts.withDefaults()
	return &UserStore{
		storage:  st,
		hasher:   hasher,
		tokens:   tokens,
		ttl:      opts.ClientTTL,
		now:      opts.Now,
		userKey:  storage.ClientKey(storage.KeyCurrentUser, clientID),
		tokenKey: storage.ClientKey(storage.KeyAuthToken, clientID),
		users:    []models.User{},
	}
}

// Initialize recharge la session et la revalide : un token invalide, un
// utilisateur courant absent ou qui ne correspond pas au token effacent les deux.
func (s *UserStore) Initialize(ctx context.Context) error {
	if err := s.loadUsers(ctx); err != nil {
		return err
	}

	var current models.User
	hasUser, err := s.storage.Load(ctx, s.userKey, &current)
	if err != nil {
		return fmt.Errorf("chargement utilisateur courant: %w", err)
	}
	var token string
	hasToken, err := s.storage.Load(ctx, s.tokenKey, &token)
	if err != nil {
		return fmt.Errorf("chargement token: %w", err)
	}

	if hasUser && hasToken && token != "" {
		if claims, err := s.tokens.Validate(token); err == nil && claims.UserID == current.ID {
			current = current.Public()
			s.session = models.Session{CurrentUser: &current, AuthToken: token, IsAuthenticated: true}
			return nil
		}
	}

	s.session = models.Session{}
	return s.clearSession(ctx)
}

func (s *UserStore) loadUsers(ctx context.Context) error {
	var users []models.User
	if _, err := s.storage.Load(ctx, storage.KeyUsers, &users); err != nil {
		return fmt.Errorf("chargement utilisateurs: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	s.users = users
	return nil
}

func (s *UserStore) Session() models.Session { return s.session }

func (s *UserStore) IsAuthenticated() bool { return s.session.IsAuthenticated }

func (s *UserStore) CurrentUser() *models.User { return s.session.CurrentUser }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) findByEmail(email string) (models.User, bool) {
	for _, u := range s.users {
		if normalizeEmail(u.Email) == email {
			return u, true
		}
	}
	return models.User{}, false
}

// Register crée le compte puis ouvre la session (connexion automatique).
func (s *UserStore) Register(ctx context.Context, input RegisterInput) (models.Session, error) {
	input.Email = normalizeEmail(input.Email)
	if errs := utils.ValidateStruct(input); errs != nil {
		return models.Session{}, errs
	}

	email := input.Email
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.Session{}, fmt.Errorf("hash mot de passe: %w", err)
	}

	var created models.User
	err = s.storage.WithLock(ctx, storage.KeyUsers, func(ctx context.Context) error {
		if err := s.loadUsers(ctx); err != nil {
			return err
		}
		if _, exists := s.findByEmail(email); exists {
			return ErrEmailTaken
		}
		created = models.User{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(input.Name),
			Email:     email,
			Phone:     input.Phone,
			Password:  hash,
			CreatedAt: s.now().UTC(),
		}
		users := append(s.users[:len(s.users):len(s.users)], created)
		if err := s.storage.Save(ctx, storage.KeyUsers, users, 0); err != nil {
			return err
		}
		s.users = users
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}

	return s.openSession(ctx, created)
}

func (s *UserStore) Login(ctx context.Context, input LoginInput) (models.Session, error) {
	input.Email = normalizeEmail(input.Email)
	if errs := utils.ValidateStruct(input); errs != nil {
		return models.Session{}, errs
	}
	if err := s.loadUsers(ctx); err != nil {
		return models.Session{}, err
	}

	user, ok := s.findByEmail(input.Email)
	if !ok {
		return models.Session{}, ErrInvalidCredentials
	}
	valid, err := s.hasher.Verify(input.Password, user.Password)
	if err != nil || !valid {
		return models.Session{}, ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

func (s *UserStore) openSession(ctx context.Context, user models.User) (models.Session, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return models.Session{}, fmt.Errorf("génération token: %w", err)
	}

	public := user.Public()
	if err := s.storage.Save(ctx, s.userKey, public, s.ttl); err != nil {
		return models.Session{}, err
	}
	if err := s.storage.Save(ctx, s.tokenKey, token, s.ttl); err != nil {
		return models.Session{}, err
	}

	s.session = models.Session{CurrentUser: &public, AuthToken: token, IsAuthenticated: true}
	return s.session, nil
}

func (s *UserStore) Logout(ctx context.Context) error {
	s.session = models.Session{}
	return s.clearSession(ctx)
}

func (s *UserStore) clearSession(ctx context.Context) error {
	return errors.Join(
		s.storage.Remove(ctx, s.userKey),
		s.storage.Remove(ctx, s.tokenKey),
	)
}

// Authenticate résout un token bearer en utilisateur (sans mot de passe).
func (s *UserStore) Authenticate(ctx context.Context, token string) (models.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return models.User{}, ErrNotAuthenticated
	}
	if err := s.loadUsers(ctx); err != nil {
		return models.User{}, err
	}
	for _, u := range s.users {
		if u.ID == claims.UserID {
			return u.Public(), nil
		}
	}
	return models.User{}, ErrNotAuthenticated
}
