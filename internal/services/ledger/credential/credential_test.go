package credential

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
)

func TestNewAndVerify(t *testing.T) {
	t.Parallel()

	cred, err := New("  hunter22 ", nil)
	if err != nil {
		t.Fatalf("new credential: %v", err)
	}
	salt, err := base64.StdEncoding.DecodeString(cred.Salt)
	if err != nil || len(salt) != SaltLength {
		t.Fatalf("salt = %q (%v), want %d bytes", cred.Salt, err, SaltLength)
	}
	digest, err := base64.StdEncoding.DecodeString(cred.Digest)
	if err != nil || len(digest) != KeyLength {
		t.Fatalf("digest = %q (%v), want %d bytes", cred.Digest, err, KeyLength)
	}

	if !Verify(NormalizePassword("hunter22  "), cred) {
		t.Fatal("expected trimmed password to verify")
	}
	if Verify("hunter23", cred) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestDeriveIsDeterministicPerSalt(t *testing.T) {
	t.Parallel()

	salt, err := NewSalt(bytes.NewReader(bytes.Repeat([]byte{7}, SaltLength)))
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	first, err := Derive("secret1", salt)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := Derive("secret1", salt)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first != second {
		t.Fatal("expected same digest for same password and salt")
	}

	other, err := NewSalt(bytes.NewReader(bytes.Repeat([]byte{8}, SaltLength)))
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	third, err := Derive("secret1", other)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if third == first {
		t.Fatal("expected different digest for different salt")
	}
}

func TestNewSaltShortReader(t *testing.T) {
	t.Parallel()

	if _, err := NewSalt(bytes.NewReader([]byte{1, 2})); err == nil {
		t.Fatal("expected short random source to fail")
	}
}

func TestVerifyRejectsCorruptCredential(t *testing.T) {
	t.Parallel()

	if Verify("anything", Credential{Digest: "!!", Salt: "!!"}) {
		t.Fatal("expected corrupt credential to fail verification")
	}
}

func TestCheckPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		password     string
		confirmation string
		constraint   string
	}{
		{name: "ok", password: "abcdef", confirmation: "abcdef"},
		{name: "ok without confirmation", password: "abcdef"},
		{name: "trimmed too short", password: "  abc  ", constraint: "password_length"},
		{name: "mismatch", password: "abcdef", confirmation: "abcdeg", constraint: "password_mismatch"},
		{name: "confirmation trimmed", password: "abcdef ", confirmation: " abcdef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPolicy(tc.password, tc.confirmation)
			if tc.constraint == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var domainErr *apperrors.Error
			if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := domainErr.Metadata["Constraint"]; got != tc.constraint {
				t.Fatalf("constraint = %q, want %q", got, tc.constraint)
			}
		})
	}
}
