package models

import "time"

// LoginRequest represents credentials provided by the client.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest holds the data for creating a new user.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// UserDTO is a minimal user representation for responses.
type UserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
}

// LoginResponse is returned upon successful authentication.
type LoginResponse struct {
	Token     string    `json:"token"`
	User      UserDTO   `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is a simple error shape for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
