package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/platform/requestctx"
)

type middleware func(http.Handler) http.Handler

var requestIDCounter atomic.Uint64

// chain applies middleware in declaration order.
func chain(handler http.Handler, mw ...middleware) http.Handler {
	wrapped := handler
	for idx := len(mw) - 1; idx >= 0; idx-- {
		wrapped = mw[idx](wrapped)
	}
	return wrapped
}

// requestID injects and echoes a request id for correlation.
func requestID() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if id == "" {
				id = fmt.Sprintf("ledger-%d-%d", time.Now().UnixNano(), requestIDCounter.Add(1))
				r.Header.Set("X-Request-ID", id)
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r)
		})
	}
}

// recoverPanic converts panics into HTTP 500 responses.
func recoverPanic(logger *slog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", r.Header.Get("X-Request-ID"),
						"panic", recovered,
						"stack", strings.TrimSpace(string(debug.Stack())),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// member requires a valid bearer token whose account still exists. The
// caller's email is stored in the request context.
func (h *Handler) member(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			h.writeError(w, r, apperrors.AuthFailed("session_required", "bearer token is required"))
			return
		}
		claims, err := h.issuer.Verify(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if _, err := h.ledger.GetAccount(r.Context(), claims.Email); err != nil {
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				err = apperrors.AuthFailed("session_invalid", "session account no longer exists")
			}
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithEmail(r.Context(), claims.Email)))
	})
}

// admin additionally requires the administrator role.
func (h *Handler) admin(next http.HandlerFunc) http.Handler {
	return h.member(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.ledger.RequireAdmin(r.Context(), requestctx.EmailFromContext(r.Context())); err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r)
	})
}
