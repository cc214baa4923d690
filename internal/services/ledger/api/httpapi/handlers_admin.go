package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
)

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views := make([]accountJSON, 0, len(accounts))
	for _, acct := range accounts {
		views = append(views, toAccountJSON(acct))
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": views})
}

type balanceBody struct {
	Balance json.Number `json:"balance"`
}

func (h *Handler) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	kind, err := account.ParseResourceKind(r.PathValue("kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body balanceBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	value, err := wholeNumber(body.Balance, "balance_whole")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	email := r.PathValue("email")
	if err := h.ledger.SetBalance(r.Context(), email, kind, value); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeAccount(w, r, email)
}

type probationBody struct {
	OnProbation bool `json:"on_probation"`
}

func (h *Handler) handleSetProbation(w http.ResponseWriter, r *http.Request) {
	var body probationBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	email := r.PathValue("email")
	if err := h.ledger.SetProbation(r.Context(), email, body.OnProbation); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeAccount(w, r, email)
}

func (h *Handler) handleResetCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.ResetCredential(r.Context(), r.PathValue("email")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeAccount(w http.ResponseWriter, r *http.Request, email string) {
	acct, err := h.ledger.GetAccount(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountJSON(acct))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	kind, requestType, err := queuePath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	requests, err := h.ledger.ListPending(r.Context(), kind, requestType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views := make([]requestJSON, 0, len(requests))
	for _, request := range requests {
		views = append(views, toRequestJSON(request))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": views})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	kind, requestType, id, err := requestPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var approval domain.Approval
	if requestType == account.TypeTransfer {
		approval, err = h.ledger.ApproveTransfer(r.Context(), kind, id)
	} else {
		approval, err = h.ledger.ApproveIncentive(r.Context(), kind, id)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request": toRequestJSON(approval.Request),
		"balance": approval.Balance,
	})
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	kind, requestType, id, err := requestPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.ledger.Deny(r.Context(), kind, requestType, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requestPath(r *http.Request) (account.ResourceKind, account.RequestType, int64, error) {
	kind, requestType, err := queuePath(r)
	if err != nil {
		return "", "", 0, err
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return "", "", 0, apperrors.NotFound("request", r.PathValue("id"))
	}
	return kind, requestType, id, nil
}
