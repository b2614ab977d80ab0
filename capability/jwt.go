package capability

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// JWT checker errors
var (
	// ErrSecretTooShort indicates the HMAC secret is under 32 bytes.
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 bytes")

	// ErrInvalidToken indicates the token failed parsing or validation.
	ErrInvalidToken = errors.New("invalid capability token")

	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("capability token expired")
)

// DefaultTokenTTL is the lifetime of issued capability tokens.
const DefaultTokenTTL = 15 * time.Minute

// JWTConfig holds configuration for capability token issuance and
// validation.
type JWTConfig struct {
	// Secret is the HMAC signing key (must be at least 32 bytes).
	Secret []byte

	// Issuer is the token issuer (e.g., "tiervault").
	Issuer string

	// TokenTTL is the lifetime of issued tokens.
	// Defaults to DefaultTokenTTL (15 minutes) if zero.
	TokenTTL time.Duration
}

func (c JWTConfig) ttl() time.Duration {
	if c.TokenTTL == 0 {
		return DefaultTokenTTL
	}
	return c.TokenTTL
}

// Claims carries an actor's granted capabilities inside a signed token.
type Claims struct {
	jwt.RegisteredClaims
	Capabilities []Capability `json:"capabilities"`
}

// IssueToken signs a capability token for an actor. The actor string is
// the JWT subject; the token is what callers pass to JWTChecker.Has.
func IssueToken(cfg JWTConfig, actor string, caps []Capability) (string, error) {
	if len(cfg.Secret) < 32 {
		return "", ErrSecretTooShort
	}

	tokenID, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ttl())),
			ID:        tokenID,
		},
		Capabilities: caps,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// JWTChecker validates capability tokens. The "actor" handed to Has is
// a signed token; an expired or tampered token grants nothing.
type JWTChecker struct {
	Config JWTConfig
}

// NewJWTChecker creates a checker validating tokens signed with cfg.
func NewJWTChecker(cfg JWTConfig) *JWTChecker {
	return &JWTChecker{Config: cfg}
}

// Has implements Checker.
func (c *JWTChecker) Has(actor string, cap Capability) bool {
	claims, err := c.Validate(actor)
	if err != nil {
		return false
	}
	for _, g := range claims.Capabilities {
		if g == cap {
			return true
		}
	}
	return false
}

// Validate parses and verifies a capability token.
func (c *JWTChecker) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.Config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	// Verify issuer if configured
	if c.Config.Issuer != "" {
		issuer, err := token.Claims.GetIssuer()
		if err != nil || issuer != c.Config.Issuer {
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}
