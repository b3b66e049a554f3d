package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/talksphere/server/internal/assistant/model"
	errx "github.com/talksphere/server/internal/core/error"
	logx "github.com/talksphere/server/pkg/logger"
)

const maxPasswordBytes = 72

var (
	ErrInvalidCredentials = errx.Unauthorized("invalid email or password")
	ErrNotAuthenticated   = errx.Unauthorized("user not authenticated")
	ErrInvalidToken       = errx.Unauthorized("invalid token")
)

// Service implements signup, login, logout and token verification.
type Service struct {
	users   model.UserRepository
	revoked model.TokenDenylist
	tokens  *TokenIssuer
	cfg     model.AuthConfig
}

func NewService(users model.UserRepository, revoked model.TokenDenylist, cfg model.AuthConfig) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:   users,
		revoked: revoked,
		tokens:  NewTokenIssuer(cfg.Secret, cfg.TTL),
		cfg:     cfg,
	}
}

// Tokens exposes the issuer, mainly for cookie lifetimes.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Signup creates an account and signs the new user in.
func (s *Service) Signup(ctx context.Context, in model.SignupInput) (*model.User, *Token, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, nil, errx.BadRequest("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, errx.BadRequest("invalid email address")
	}
	if len(in.Password) < s.cfg.PasswordMinLength {
		return nil, nil, errx.BadRequest(fmt.Sprintf("password must be at least %d characters long", s.cfg.PasswordMinLength))
	}
	// bcrypt only hashes the first 72 bytes and rejects longer input.
	if len(in.Password) > maxPasswordBytes {
		return nil, nil, errx.BadRequest(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, nil, errx.Conflict("email already exists")
	} else if !errx.HasStatus(err, http.StatusNotFound) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, nil, errx.Internal(fmt.Errorf("hash password: %w", err))
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	token, err := s.tokens.Issue(user.IDHex())
	if err != nil {
		return nil, nil, errx.Internal(err)
	}
	logx.Info().Str("user_id", user.IDHex()).Msg("user signed up")
	return user, token, nil
}

// Login verifies credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, in model.LoginInput) (*model.User, *Token, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, nil, errx.BadRequest("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errx.HasStatus(err, http.StatusNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.IDHex())
	if err != nil {
		return nil, nil, errx.Internal(err)
	}
	logx.Info().Str("user_id", user.IDHex()).Msg("user signed in")
	return user, token, nil
}

// Logout revokes raw until it expires. Missing or invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil
	}
	if claims.ID == "" || claims.ExpiresAt == nil || s.revoked == nil {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Authenticate returns the user ID carried by a valid, unrevoked token.
func (s *Service) Authenticate(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrNotAuthenticated
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		logx.Debug().Err(err).Msg("rejected token")
		return "", ErrInvalidToken
	}
	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return "", err
		}
		if revoked {
			return "", ErrInvalidToken
		}
	}
	return claims.UserID, nil
}
