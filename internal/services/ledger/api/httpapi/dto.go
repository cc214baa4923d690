package httpapi

import (
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
)

type accountJSON struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Passes      int64  `json:"passes"`
	CDNAs       int64  `json:"cdnas"`
	IsAdmin     bool   `json:"is_admin"`
	OnProbation bool   `json:"on_probation"`
	HasPassword bool   `json:"has_password"`
}

func toAccountJSON(acct account.Account) accountJSON {
	return accountJSON{
		Email:       acct.Email,
		Name:        acct.Name,
		Passes:      acct.PassBalance,
		CDNAs:       acct.CDNABalance,
		IsAdmin:     acct.IsAdmin,
		OnProbation: acct.OnProbation,
		HasPassword: acct.HasCredential(),
	}
}

type requestJSON struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toRequestJSON(request account.Request) requestJSON {
	return requestJSON{
		ID:        request.ID,
		Kind:      string(request.Kind),
		Type:      string(request.Type),
		Email:     request.Email,
		Name:      request.Name,
		Amount:    request.Amount,
		Reason:    request.Reason,
		CreatedAt: request.CreatedAt.UTC(),
	}
}

type sessionJSON struct {
	Outcome   string       `json:"outcome"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	Account   *accountJSON `json:"account,omitempty"`
}
