package api

import (
	"errors"
	"log/slog"
	"net/http"

	"blogmate/internal/domain"
	"blogmate/internal/middleware"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindDuplicatePrincipal:   http.StatusBadRequest,
	domain.KindSelfDeleteForbidden:  http.StatusBadRequest,
	domain.KindIdentityServiceError: http.StatusBadGateway,
	domain.KindAuthExchangeFailed:   http.StatusBadRequest,
	domain.KindNotConnected:         http.StatusConflict,
	domain.KindReauthRequired:       http.StatusUnauthorized,
	domain.KindDeliveryFailed:       http.StatusBadGateway,
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	if status, ok := kindStatus[domain.KindOf(err)]; ok {
		return status
	}

	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err to a status and writes the JSON error body.
// Internal errors and identity service causes are logged and their text is
// not sent to the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := httpStatusFromDomainError(err)
	msg := err.Error()
	var kindErr *domain.Error
	switch {
	case status == http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	case errors.As(err, &kindErr) && kindErr.Kind == domain.KindIdentityServiceError:
		logger.ErrorContext(r.Context(), "identity service call failed", "path", r.URL.Path, "error", err)
		msg = kindErr.Message
	}
	writeJSON(w, status, ErrorResponse{
		Code:      status,
		Kind:      string(domain.KindOf(err)),
		Message:   msg,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrorResponse{
		Code:      status,
		Message:   msg,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}
