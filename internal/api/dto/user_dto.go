package dto

import (
	"time"

	"github.com/ticketops/triage-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Skills   []string `json:"skills"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest payload; admin only.
type UpdateUserRequest struct {
	Email  string           `json:"email"`
	Role   *domain.UserRole `json:"role,omitempty"`
	Skills []string         `json:"skills,omitempty"`
}

// UserResponse describes an account.
type UserResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      domain.UserRole `json:"role"`
	Skills    []string        `json:"skills"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuthResponse carries the issued token.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
