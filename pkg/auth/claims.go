// Package auth provides JWT-based principal verification for rcfa-engine.
// It validates tokens issued by the external identity service using JWKS
// endpoints and hands the rest of the engine a verified (userId, role)
// principal. Session issuance and password management live upstream.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/causetrace/rcfa-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
)

// Claims represents the JWT claims structure from the identity service.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the role claim used for promotion authorization.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role,omitempty"`  // "admin" or "member"
	Email string `json:"email,omitempty"` // User email address
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// PrincipalFromContext builds the verified principal from JWT claims in
// context. Returns an error if not authenticated or claims are invalid.
func PrincipalFromContext(ctx context.Context) (models.Principal, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return models.Principal{}, fmt.Errorf("authentication required: no claims in context")
	}

	if claims.Subject == "" {
		return models.Principal{}, fmt.Errorf("missing user ID in JWT claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid user ID format: %w", err)
	}

	role := claims.Role
	if role == "" {
		role = models.RoleMember
	}
	if !models.IsValidRole(role) {
		return models.Principal{}, fmt.Errorf("invalid role in JWT claims: %s", claims.Role)
	}

	return models.Principal{UserID: userID, Role: role}, nil
}
