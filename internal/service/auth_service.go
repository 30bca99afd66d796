package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ticketops/triage-service/internal/auth"
	"github.com/ticketops/triage-service/internal/config"
	"github.com/ticketops/triage-service/internal/domain"
	"github.com/ticketops/triage-service/internal/repository"
	apperrors "github.com/ticketops/triage-service/pkg/util"
)

// AuthService manages registration, login and account updates.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// AuthResult carries the issued token alongside the account.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an account. New accounts start as end users; roles
// are promoted through UpdateUser by an admin.
func (s *AuthService) Register(ctx context.Context, name, email, password string, skills []string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Skills:       normalizeSkills(skills),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.issueToken(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issueToken(user)
}

// UpdateUser lets an admin change another account's role and skills,
// which is how handlers enter the assignment pool.
func (s *AuthService) UpdateUser(ctx context.Context, actor *domain.User, email string, role *domain.UserRole, skills []string) (*domain.User, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin required")
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}

	if role != nil {
		if !domain.ValidRole(*role) {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *role})
		}
		user.Role = *role
	}
	if skills != nil {
		user.Skills = normalizeSkills(skills)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListHandlers returns the current assignment pool.
func (s *AuthService) ListHandlers(ctx context.Context) ([]domain.User, error) {
	handlers, err := s.users.ListByRoles(ctx, domain.AssignableRoles())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return handlers, nil
}

func (s *AuthService) issueToken(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeSkills(skills []string) []string {
	result := make([]string, 0, len(skills))
	for _, skill := range skills {
		trimmed := strings.TrimSpace(skill)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
