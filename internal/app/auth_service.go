package app

import (
	"context"
	"fmt"
	"strings"

	"bloom-client/internal/domain"
	"go.uber.org/zap"
)

const minPasswordLength = 6

// AuthAPI is the account half of the backend.
type AuthAPI interface {
	Register(ctx context.Context, username, password string) (domain.Registration, error)
	Login(ctx context.Context, username, password string) (domain.Tokens, error)
}

// CredentialStore persists credentials for the current consumer.
type CredentialStore interface {
	Save(ctx context.Context, creds domain.Credentials) error
	Clear(ctx context.Context) error
}

// AuthService exchanges usernames and passwords for stored credentials.
type AuthService struct {
	api   AuthAPI
	store CredentialStore
	log   *zap.Logger
}

func NewAuthService(client AuthAPI, store CredentialStore, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{api: client, store: store, log: log}
}

// Register creates an account and stores the tokens it returns.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.Credentials, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Credentials{}, domain.ErrMissingCredentials
	}
	if len([]rune(password)) < minPasswordLength {
		return domain.Credentials{}, domain.ErrPasswordTooShort
	}

	reg, err := s.api.Register(ctx, username, password)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("register: %w", err)
	}
	if reg.Username != "" {
		username = reg.Username
	}
	creds := domain.Credentials{AccessToken: reg.Access, RefreshToken: reg.Refresh, Username: username}
	if err := s.store.Save(ctx, creds); err != nil {
		return domain.Credentials{}, fmt.Errorf("save session: %w", err)
	}
	s.log.Info("account registered", zap.String("username", username))
	return creds, nil
}

// Login exchanges a username and password for tokens and stores them.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Credentials, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Credentials{}, domain.ErrMissingCredentials
	}

	tokens, err := s.api.Login(ctx, username, password)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("login: %w", err)
	}
	creds := domain.Credentials{AccessToken: tokens.Access, RefreshToken: tokens.Refresh, Username: username}
	if err := s.store.Save(ctx, creds); err != nil {
		return domain.Credentials{}, fmt.Errorf("save session: %w", err)
	}
	s.log.Info("logged in", zap.String("username", username))
	return creds, nil
}

// Logout removes every stored credential value.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
