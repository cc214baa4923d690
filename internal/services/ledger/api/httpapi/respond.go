package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/platform/errors/i18n"
	"google.golang.org/grpc/codes"
)

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// writeJSON writes a JSON body with normalized headers and status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders err with a localized message. Errors without a domain
// code are logged and reported as internal.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	var metadata map[string]string
	var appErr *apperrors.Error
	if stderrors.As(err, &appErr) {
		metadata = appErr.Metadata
	}
	status := httpStatus(code.GRPCCode())
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-ID"),
			"code", string(code),
			"error", err,
		)
	}
	catalog := i18n.GetCatalog(r.Header.Get("Accept-Language"))
	writeJSON(w, status, errorBody{
		Code:     string(code),
		Message:  catalog.Format(string(code), metadata),
		Metadata: metadata,
	})
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition, codes.Aborted:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON object, keeping numbers as json.Number so
// fractional amounts can be rejected.
func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.UseNumber()
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeValidation, fmt.Sprintf("decode request body: %v", err),
			map[string]string{"Constraint": "body"}, err)
	}
	return nil
}

// wholeNumber parses a JSON number that must be an integer.
func wholeNumber(value json.Number, constraint string) (int64, error) {
	n, err := value.Int64()
	if err != nil {
		return 0, apperrors.Validation(constraint, fmt.Sprintf("%q is not a whole number", value.String()))
	}
	return n, nil
}
