package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrUnknownRole      = errors.New("unknown role in claims")
)

// Claims are the claims the identity provider puts in access tokens
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Principal converts validated claims into the caller identity
func (c *Claims) Principal() (rental.Principal, error) {
	if c.UserID == "" {
		return rental.Principal{}, ErrMissingUserID
	}
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return rental.Principal{}, ErrInvalidClaims
	}
	role, err := rental.ParseRole(c.Role)
	if err != nil {
		return rental.Principal{}, ErrUnknownRole
	}
	return rental.Principal{ID: id, Role: role}, nil
}

// JWTVerifier checks HS256 bearer tokens issued by the external identity provider.
// Tokens are never minted here outside of tests and local tooling.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier creates a verifier from config
func NewJWTVerifier(cfg config.JWTConfig) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// Verify parses and validates tokenString and returns the caller
func (v *JWTVerifier) Verify(tokenString string) (rental.Principal, error) {
	claims, err := v.ParseClaims(tokenString)
	if err != nil {
		return rental.Principal{}, err
	}
	return claims.Principal()
}

// ParseClaims validates signature, algorithm, time claims and issuer
func (v *JWTVerifier) ParseClaims(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// Sign issues a token for p valid for ttl
func (v *JWTVerifier) Sign(p rental.Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    v.issuer,
			Subject:   p.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: p.ID.String(),
		Role:   string(p.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
