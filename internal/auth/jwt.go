package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

// AdminIDKey carries the authenticated admin's id through the request
// context.
const AdminIDKey contextKey = "adminID"

// AdminClaims includes standard JWT claims plus the admin identity. The
// middleware in internal/api parses into this struct.
type AdminClaims struct {
	AdminID uuid.UUID `json:"admin_id"`
	jwt.RegisteredClaims
}

// NewAdminToken generates a signed admin access token for the stats
// surface.
func NewAdminToken(adminID uuid.UUID, jwtSecret string, expiration time.Duration) (string, error) {
	claims := AdminClaims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "siachat-backend",
			Subject:   adminID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
