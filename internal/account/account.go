// Package account registers users and issues session tokens.
package account

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rockps/rockps/internal/auth"
	"github.com/rockps/rockps/internal/match"
	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidUsername    = &match.Error{Kind: match.KindValidation, Code: "invalid_username", Field: "username", Reason: "username must be 2 to 128 characters"}
	ErrInvalidPassword    = &match.Error{Kind: match.KindValidation, Code: "invalid_password", Field: "password", Reason: "password must be 8 to 64 characters"}
	ErrUsernameTaken      = &match.Error{Kind: match.KindConflict, Code: "username_taken", Field: "username", Reason: "username already exists"}
	ErrInvalidCredentials = &match.Error{Kind: match.KindForbidden, Code: "invalid_credentials", Reason: "wrong username or password"}
)

type Service struct {
	store  store.Store
	issuer *auth.Issuer
	params auth.Params
	logger *logrus.Logger
}

func NewService(st store.Store, issuer *auth.Issuer, params auth.Params, logger *logrus.Logger) *Service {
	return &Service{store: st, issuer: issuer, params: params, logger: logger}
}

// Register creates a user with an argon2id-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if n := utf8.RuneCountInString(username); n < 2 || n > 128 {
		return nil, ErrInvalidUsername
	}
	if n := utf8.RuneCountInString(password); n < 8 || n > 64 {
		return nil, ErrInvalidPassword
	}

	hash, err := auth.HashPassword(password, s.params)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := &models.User{Username: username, Password: hash}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertUser(ctx, u)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	s.logger.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

// Login checks the credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	var u *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUserByUsername(ctx, username)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("user lookup: %w", err)
	}

	ok, err := auth.CheckPassword(password, u.Password)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID, "error": err}).Warn("stored password hash unreadable")
		return "", nil, ErrInvalidCredentials
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.CreateJWT(u.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create jwt: %w", err)
	}
	return token, u, nil
}

// Get returns the user by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.User, error) {
	var u *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, match.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Authenticate resolves a session token to a user id.
func (s *Service) Authenticate(token string) (int64, error) {
	return s.issuer.AuthenticateJWT(token)
}

// TokenTTL is how long issued tokens stay valid, zero for no expiry.
func (s *Service) TokenTTL() int {
	return int(s.issuer.TTL().Seconds())
}
