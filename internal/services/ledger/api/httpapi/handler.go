// Package httpapi exposes the ledger over a JSON HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/domain"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/session"
)

const maxBodyBytes = 1 << 16

// Handler serves the ledger HTTP API.
type Handler struct {
	ledger *domain.Service
	issuer *session.Issuer
	logger *slog.Logger
	mux    *http.ServeMux
}

// New builds the API handler.
func New(ledger *domain.Service, issuer *session.Issuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{ledger: ledger, issuer: issuer, logger: logger, mux: http.NewServeMux()}
	h.routes()
	return h
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /up", h.handleUp)

	h.mux.HandleFunc("POST /v1/sessions", h.handleLogin)
	h.mux.HandleFunc("POST /v1/credentials", h.handleSetCredential)

	h.mux.Handle("GET /v1/me", h.member(h.handleMe))
	h.mux.Handle("GET /v1/me/requests/{kind}/{type}/latest", h.member(h.handleLatest))
	h.mux.Handle("POST /v1/me/requests/{kind}/transfer", h.member(h.handleSubmitTransfer))
	h.mux.Handle("POST /v1/me/requests/{kind}/incentive", h.member(h.handleSubmitIncentive))

	h.mux.Handle("GET /v1/admin/accounts", h.admin(h.handleListAccounts))
	h.mux.Handle("PUT /v1/admin/accounts/{email}/balances/{kind}", h.admin(h.handleSetBalance))
	h.mux.Handle("PUT /v1/admin/accounts/{email}/probation", h.admin(h.handleSetProbation))
	h.mux.Handle("DELETE /v1/admin/accounts/{email}/credential", h.admin(h.handleResetCredential))
	h.mux.Handle("GET /v1/admin/requests/{kind}/{type}", h.admin(h.handleListPending))
	h.mux.Handle("POST /v1/admin/requests/{kind}/{type}/{id}/approve", h.admin(h.handleApprove))
	h.mux.Handle("POST /v1/admin/requests/{kind}/{type}/{id}/deny", h.admin(h.handleDeny))
}

// ServeHTTP dispatches to the registered routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chain(h.mux, requestID(), recoverPanic(h.logger)).ServeHTTP(w, r)
}

func (h *Handler) handleUp(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
