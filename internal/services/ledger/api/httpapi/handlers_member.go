package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/fighterspassapp/dp-pass-app/internal/platform/requestctx"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.ledger.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if result.Outcome == domain.LoginNeedsCredentialSetup {
		writeJSON(w, http.StatusOK, sessionJSON{Outcome: string(result.Outcome)})
		return
	}
	h.writeSession(w, r, result.Account, body.Remember)
}

type credentialBody struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
	Remember     bool   `json:"remember"`
}

func (h *Handler) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	var body credentialBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	acct, err := h.ledger.SetCredential(r.Context(), body.Email, body.Password, body.Confirmation)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, acct, body.Remember)
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, acct account.Account, remember bool) {
	token, expiresAt, err := h.issuer.Issue(acct.Email, remember)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view := toAccountJSON(acct)
	writeJSON(w, http.StatusOK, sessionJSON{
		Outcome:   string(domain.LoginSignedIn),
		Token:     token,
		ExpiresAt: &expiresAt,
		Account:   &view,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	acct, err := h.ledger.GetAccount(r.Context(), requestctx.EmailFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountJSON(acct))
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	kind, requestType, err := queuePath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request, found, err := h.ledger.FindLatestByAccount(r.Context(), requestctx.EmailFromContext(r.Context()), kind, requestType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"request": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": toRequestJSON(request)})
}

type transferBody struct {
	Amount json.Number `json:"amount"`
}

func (h *Handler) handleSubmitTransfer(w http.ResponseWriter, r *http.Request) {
	kind, err := account.ParseResourceKind(r.PathValue("kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body transferBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := wholeNumber(body.Amount, "amount_positive")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.ledger.SubmitTransfer(r.Context(), requestctx.EmailFromContext(r.Context()), kind, amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestJSON(request))
}

type incentiveBody struct {
	Amount json.Number `json:"amount"`
	Reason string      `json:"reason"`
}

func (h *Handler) handleSubmitIncentive(w http.ResponseWriter, r *http.Request) {
	kind, err := account.ParseResourceKind(r.PathValue("kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body incentiveBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := wholeNumber(body.Amount, "amount_positive")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.ledger.SubmitIncentive(r.Context(), requestctx.EmailFromContext(r.Context()), kind, amount, body.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestJSON(request))
}

func queuePath(r *http.Request) (account.ResourceKind, account.RequestType, error) {
	kind, err := account.ParseResourceKind(r.PathValue("kind"))
	if err != nil {
		return "", "", err
	}
	requestType, err := account.ParseRequestType(r.PathValue("type"))
	if err != nil {
		return "", "", err
	}
	return kind, requestType, nil
}
