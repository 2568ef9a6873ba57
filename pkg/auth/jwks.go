package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSClientInterface abstracts token validation so AuthService can be
// tested with a stub.
type JWKSClientInterface interface {
	// ValidateToken checks a bearer token and returns its claims.
	// Fails on bad signatures, expiry, or an issuer with no configured keys.
	ValidateToken(tokenString string) (*Claims, error)
	// Close releases any resources held by the client.
	Close()
}

// JWKSConfig contains configuration for the JWKS client.
type JWKSConfig struct {
	// EnableVerification controls whether JWT signatures are verified.
	// False means tokens are parsed but not verified; local use only.
	EnableVerification bool
	// JWKSEndpoints maps issuer URLs to their JWKS endpoint URLs. A token
	// whose issuer has no entry here is rejected.
	JWKSEndpoints map[string]string
}

// JWKSClient verifies bearer tokens against the identity service's
// published JSON Web Key Sets, one key set per trusted issuer.
type JWKSClient struct {
	issuerKeys map[string]keyfunc.Keyfunc
	config     *JWKSConfig
}

// NewJWKSClient builds a client and, when verification is on, eagerly
// fetches the key set of every configured issuer so a bad endpoint fails
// at startup rather than on the first request.
func NewJWKSClient(config *JWKSConfig) (*JWKSClient, error) {
	client := &JWKSClient{
		issuerKeys: make(map[string]keyfunc.Keyfunc),
		config:     config,
	}

	if !config.EnableVerification {
		return client, nil
	}

	for issuer, jwksURL := range config.JWKSEndpoints {
		jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("failed to load JWKS for issuer %s: %w", issuer, err)
		}
		client.issuerKeys[issuer] = jwks
	}

	return client, nil
}

// ValidateToken checks a token and returns its claims. With verification
// enabled the RSA signature is verified against the issuer's key set.
func (c *JWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	if !c.config.EnableVerification {
		return c.parseUnverifiedToken(tokenString)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, errors.New("invalid claims type")
		}

		jwks, exists := c.issuerKeys[claims.Issuer]
		if !exists {
			return nil, fmt.Errorf("unauthorized issuer: %s", claims.Issuer)
		}

		keyfuncFn := jwks.KeyfuncCtx(context.Background())
		return keyfuncFn(token)
	})

	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

// parseUnverifiedToken decodes a token without checking its signature.
// Only reachable when EnableVerification is false.
func (c *JWKSClient) parseUnverifiedToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

// Close releases any resources held by the client. keyfunc v3 needs no
// explicit cleanup, so this is a no-op today.
func (c *JWKSClient) Close() {}

var _ JWKSClientInterface = (*JWKSClient)(nil)
