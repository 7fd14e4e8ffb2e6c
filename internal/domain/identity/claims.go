package identity

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/tally/internal/domain/model"
)

// Claims are the token claims an identity can be rebuilt from.
type Claims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Role  model.Role `json:"role"`
	Event string     `json:"event,omitempty"`
}
