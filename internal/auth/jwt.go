package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/riobizsols/assetledger/internal/model"
)

// Issuer is written to and required in every token.
const Issuer = "assetledger"

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for tokens that fail parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the acting user. Username is recorded as the actor on
// ledger and group writes.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	OrgID    string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// Signer signs and validates tokens.
type Signer struct {
	Secret []byte
	TTL    time.Duration
}

// NewSigner returns a Signer. A non-positive ttl selects DefaultTTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{Secret: []byte(secret), TTL: ttl}
}

// Issue creates a signed token for u with a unique ID.
func (s *Signer) Issue(u *model.User) (string, error) {
	jti, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating token id: %w", err)
	}

	now := time.Now()
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		OrgID:    u.OrgID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Issuer:    Issuer,
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims.
func (s *Signer) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
