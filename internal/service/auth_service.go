package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/config"
	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

// CredentialService is the opaque hashing and token service.
type CredentialService interface {
	PasswordHasher
	Verify(secret, hash string) bool
	IssueToken(user *domain.User) (domain.IssuedToken, error)
}

// AuthService coordinates login and the administrator bootstrap.
type AuthService struct {
	users       repository.UserRepository
	credentials CredentialService
	rt          Runtime
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Credentials CredentialService
	Runtime     Runtime
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:       deps.UserRepo,
		credentials: deps.Credentials,
		rt:          deps.Runtime.withDefaults(),
	}
}

// Login authenticates an account and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.IssuedToken, error) {
	if isBlank(email) || password == "" {
		return nil, domain.IssuedToken{}, apperrors.NewValidationError("email and password required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.IssuedToken{}, apperrors.NewInternalError(err)
	}
	if !s.credentials.Verify(password, user.PasswordHash) {
		return nil, domain.IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, domain.IssuedToken{}, apperrors.NewForbidden("account deactivated")
	}

	token, err := s.credentials.IssueToken(user)
	if err != nil {
		return nil, domain.IssuedToken{}, apperrors.NewInternalError(err)
	}
	s.rt.Logger.Info("login succeeded", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, token, nil
}

// BootstrapAdmin creates the configured administrator once. It reports
// whether an account was created.
func (s *AuthService) BootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	email := domain.NormalizeEmail(cfg.AdminEmail)
	if email == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.IsAdmin() {
			s.rt.Logger.Warn("bootstrap admin email belongs to a client account", zap.String("email", email))
		}
		return false, nil
	case !isNotFound(err):
		return false, err
	}

	if err := s.credentials.CheckStrength(cfg.AdminPassword); err != nil {
		return false, err
	}
	hash, err := s.credentials.Hash(cfg.AdminPassword)
	if err != nil {
		return false, err
	}
	admin := &domain.User{
		Name:         strings.TrimSpace(cfg.AdminName),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Active:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	s.rt.Logger.Info("bootstrap admin created", zap.String("user_id", admin.ID), zap.String("email", email))
	return true, nil
}
