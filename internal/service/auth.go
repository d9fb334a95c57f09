package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/car_dealership/internal/hash"
	"github.com/Skotchmaster/car_dealership/internal/logging"
	"github.com/Skotchmaster/car_dealership/internal/models"
	"github.com/Skotchmaster/car_dealership/internal/repo"
	"github.com/Skotchmaster/car_dealership/internal/tokens"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

type AuthService struct {
	Repo             *repo.GormRepo
	Validator        *validation.Validator
	JWTSecret        []byte
	TokenTTL         time.Duration
	AllowAdminSignup bool
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := s.Validator.Validate(&req); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Username:     req.Username,
		PasswordHash: pwHash,
		IsAdmin:      req.IsAdmin && s.AllowAdminSignup,
	}
	if req.IsAdmin && !s.AllowAdminSignup {
		l.Warn("admin_signup_ignored", "username", req.Username)
	}

	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*LoginResult, error) {
	if err := s.Validator.Validate(&req); err != nil {
		return nil, err
	}

	user, err := s.Repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(*user)
}

// EnsureAdmin makes sure username exists and is an administrator. An
// existing account is promoted and keeps its password.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin")

	user, err := s.Repo.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if user.IsAdmin {
			return nil
		}
		if err := s.Repo.PromoteUser(ctx, user.ID); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		l.Info("admin_promoted", "user_id", user.ID)
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("get user: %w", err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := models.User{Username: username, PasswordHash: pwHash, IsAdmin: true}
	if err := s.Repo.CreateUser(ctx, &admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	l.Info("admin_created", "user_id", admin.ID)
	return nil
}

func (s *AuthService) issue(user models.User) (*LoginResult, error) {
	token, exp, err := tokens.CreateAccessToken(user.ID, user.IsAdmin, s.TokenTTL, s.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}
