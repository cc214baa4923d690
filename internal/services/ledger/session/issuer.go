// Package session carries a signed-in identity between requests: bearer
// tokens for the HTTP API and a remembered email for the CLI.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTTL bounds a session that was not remembered.
	DefaultTTL = 12 * time.Hour
	// RememberTTL bounds a remembered session.
	RememberTTL = 30 * 24 * time.Hour

	tokenIssuer   = "dp-pass-ledger"
	minSecretSize = 32
)

// Claims are the validated contents of a session token.
type Claims struct {
	Email     string
	Remember  bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Remember bool `json:"remember,omitempty"`
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an issuer. The secret must be at least 32 bytes.
func NewIssuer(secret []byte, now func() time.Time) (*Issuer, error) {
	if len(secret) < minSecretSize {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretSize)
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: append([]byte(nil), secret...), now: now}, nil
}

// Issue returns a signed token for email and its expiry.
func (i *Issuer) Issue(email string, remember bool) (string, time.Time, error) {
	email = account.NormalizeEmail(email)
	if email == "" {
		return "", time.Time{}, errors.New("session email is required")
	}
	issuedAt := i.now().UTC().Truncate(time.Second)
	ttl := DefaultTTL
	if remember {
		ttl = RememberTTL
	}
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Remember: remember,
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates token and returns its claims. Any failure is reported as
// an invalid session.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.AuthFailed("session_required", "session token is required")
	}
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Claims{}, apperrors.WrapWithMetadata(apperrors.CodeAuthFailed, "session token is invalid",
			map[string]string{"Reason": "session_invalid"}, err)
	}
	email := account.NormalizeEmail(parsed.Subject)
	if email == "" {
		return Claims{}, apperrors.AuthFailed("session_invalid", "session token has no subject")
	}
	claims := Claims{
		Email:     email,
		Remember:  parsed.Remember,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}
