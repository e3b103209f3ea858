package api

import (
	"net/http"
	"strings"
)

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}
	p, err := h.login.Authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		status := httpStatusFromDomainError(err)
		if status == http.StatusForbidden {
			writeError(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeDomainError(w, r, h.logger, err)
		return
	}
	token, exp, err := h.login.Issuer.Issue(p.ID, p.Email, h.login.TTL)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
