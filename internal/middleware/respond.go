package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody matches the JSON error shape written by the api package.
type errorBody struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Code:      status,
		Message:   msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
