package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes carried in operator tokens.
const (
	ScopeOwner    = "owner"
	ScopeOperator = "operator"
	ScopeAgent    = "agent"
)

type CustomClaims struct {
	UserID  string          `json:"user_id"`
	Address string          `json:"address"` // on-ledger identity of the caller
	Scopes  map[string]bool `json:"scopes"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Username     string          `json:"username"`
	Address      string          `json:"address"`
	PasswordHash string          `json:"-"`
	Role         string          `json:"role"`
	Scopes       map[string]bool `json:"scopes"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
