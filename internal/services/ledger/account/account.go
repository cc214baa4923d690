// Package account defines ledger accounts, resource kinds, and requests.
package account

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
)

// ResourceKind names a tracked balance.
type ResourceKind string

const (
	// KindPass is the pass balance.
	KindPass ResourceKind = "pass"
	// KindCDNA is the CDNA balance.
	KindCDNA ResourceKind = "cdna"
)

// Kinds lists every resource kind in display order.
var Kinds = []ResourceKind{KindPass, KindCDNA}

// ParseResourceKind accepts the wire name of a kind, case-insensitively.
func ParseResourceKind(value string) (ResourceKind, error) {
	switch ResourceKind(strings.ToLower(strings.TrimSpace(value))) {
	case KindPass, "passes":
		return KindPass, nil
	case KindCDNA, "cdnas":
		return KindCDNA, nil
	}
	return "", apperrors.Validation("kind", fmt.Sprintf("unknown resource kind %q", value))
}

// Label is the plural display name used in messages.
func (k ResourceKind) Label() string {
	switch k {
	case KindPass:
		return "passes"
	case KindCDNA:
		return "CDNAs"
	default:
		return string(k)
	}
}

// RequestType distinguishes debits from credits.
type RequestType string

const (
	// TypeTransfer debits the balance on approval.
	TypeTransfer RequestType = "transfer"
	// TypeIncentive credits the balance on approval.
	TypeIncentive RequestType = "incentive"
)

// RequestTypes lists every request type.
var RequestTypes = []RequestType{TypeTransfer, TypeIncentive}

// ParseRequestType accepts the wire name of a request type.
func ParseRequestType(value string) (RequestType, error) {
	switch RequestType(strings.ToLower(strings.TrimSpace(value))) {
	case TypeTransfer:
		return TypeTransfer, nil
	case TypeIncentive:
		return TypeIncentive, nil
	}
	return "", apperrors.Validation("type", fmt.Sprintf("unknown request type %q", value))
}

// Sign is the balance direction applied on approval.
func (t RequestType) Sign() int64 {
	if t == TypeTransfer {
		return -1
	}
	return 1
}

// Account is one member's ledger row keyed by normalized email.
type Account struct {
	Email          string
	Name           string
	PassBalance    int64
	CDNABalance    int64
	IsAdmin        bool
	OnProbation    bool
	PasswordDigest string
	PasswordSalt   string
}

// NormalizeEmail trims and lower-cases an email into its account key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Balance returns the balance held for kind.
func (a Account) Balance(kind ResourceKind) int64 {
	if kind == KindCDNA {
		return a.CDNABalance
	}
	return a.PassBalance
}

// WithBalance returns a copy of a with kind's balance replaced.
func (a Account) WithBalance(kind ResourceKind, value int64) Account {
	if kind == KindCDNA {
		a.CDNABalance = value
	} else {
		a.PassBalance = value
	}
	return a
}

// HasCredential reports whether a password has been set.
func (a Account) HasCredential() bool {
	return a.PasswordDigest != "" && a.PasswordSalt != ""
}

// Validate checks the stored-row invariants: non-empty key, non-negative
// balances, and a credential that is either complete or absent.
func (a Account) Validate() error {
	if a.Email == "" {
		return fmt.Errorf("account email is required")
	}
	if a.PassBalance < 0 || a.CDNABalance < 0 {
		return fmt.Errorf("account %s has a negative balance", a.Email)
	}
	if (a.PasswordDigest == "") != (a.PasswordSalt == "") {
		return fmt.Errorf("account %s has a partial credential", a.Email)
	}
	return nil
}

// Request is a queued transfer or incentive awaiting an administrator.
type Request struct {
	ID        int64
	Kind      ResourceKind
	Type      RequestType
	Email     string
	Name      string
	Amount    int64
	Reason    string
	CreatedAt time.Time
}
