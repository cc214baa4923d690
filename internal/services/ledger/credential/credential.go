// Package credential derives and verifies password digests.
//
// Digests are PBKDF2-HMAC-SHA256 with 150,000 iterations and a 32-byte output
// over a fresh 16-byte salt. Both are stored base64-encoded.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 work factor.
	Iterations = 150_000
	// KeyLength is the derived digest size in bytes.
	KeyLength = 32
	// SaltLength is the random salt size in bytes.
	SaltLength = 16
	// MinPasswordLength is the shortest accepted password after trimming.
	MinPasswordLength = 6
)

// Credential is a stored digest and its salt.
type Credential struct {
	Digest string
	Salt   string
}

// NewSalt returns SaltLength random bytes, base64-encoded.
func NewSalt(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(random, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// Derive computes the base64 digest of password under the base64 salt.
func Derive(password, salt string) (string, error) {
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), rawSalt, Iterations, KeyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key), nil
}

// Verify reports whether password matches the stored credential. The digest
// comparison is constant-time.
func Verify(password string, stored Credential) bool {
	derived, err := Derive(password, stored.Salt)
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(stored.Digest)
	if err != nil {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(derived)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NormalizePassword trims surrounding whitespace the same way at setup and
// at sign-in.
func NormalizePassword(password string) string {
	return strings.TrimSpace(password)
}

// CheckPolicy validates a new password and its confirmation. An empty
// confirmation skips the match check.
func CheckPolicy(password, confirmation string) error {
	password = NormalizePassword(password)
	if len(password) < MinPasswordLength {
		return apperrors.Validation("password_length", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if confirmation != "" && NormalizePassword(confirmation) != password {
		return apperrors.Validation("password_mismatch", "passwords do not match")
	}
	return nil
}

// New derives a fresh credential for password using random for the salt.
func New(password string, random io.Reader) (Credential, error) {
	salt, err := NewSalt(random)
	if err != nil {
		return Credential{}, err
	}
	digest, err := Derive(NormalizePassword(password), salt)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Digest: digest, Salt: salt}, nil
}
