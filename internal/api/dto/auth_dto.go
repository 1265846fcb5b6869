package dto

import (
	"time"

	"github.com/fdbank/deposit-service/internal/domain"
)

// RegisterRequest payload for new customers.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
}

// NewUserResponse hides the password hash.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{ID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role}
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"token_expires_at"`
}
