package api

import (
	"net/http"
	"net/url"

	"blogmate/internal/domain"
)

// Callback result messages shown on the profile page.
const (
	callbackMissingCode   = "인가코드없음"
	callbackExchangeError = "토큰발급실패"
	callbackInvalidState  = "잘못된요청"
)

func (h *Handler) kakaoEnabled(w http.ResponseWriter, r *http.Request) bool {
	if h.tokens == nil {
		writeError(w, r, http.StatusServiceUnavailable, "kakao integration is not configured")
		return false
	}
	return true
}

func (h *Handler) kakaoAuthorize(w http.ResponseWriter, r *http.Request) {
	if !h.kakaoEnabled(w, r) {
		return
	}
	caller, _ := domain.PrincipalFromContext(r.Context())
	u, err := h.tokens.AuthorizeURL(caller.ID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, AuthorizeResponse{URL: u})
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (h *Handler) kakaoStatus(w http.ResponseWriter, r *http.Request) {
	if !h.kakaoEnabled(w, r) {
		return
	}
	caller, _ := domain.PrincipalFromContext(r.Context())
	st, err := h.tokens.Status(r.Context(), caller.ID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, KakaoStatus{Connected: st.Connected, Expired: st.Expired})
}

func (h *Handler) kakaoSend(w http.ResponseWriter, r *http.Request) {
	if !h.kakaoEnabled(w, r) {
		return
	}
	var req SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	caller, _ := domain.PrincipalFromContext(r.Context())
	if err := h.tokens.Send(r.Context(), caller.ID, req.Message); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (h *Handler) kakaoDisconnect(w http.ResponseWriter, r *http.Request) {
	if !h.kakaoEnabled(w, r) {
		return
	}
	caller, _ := domain.PrincipalFromContext(r.Context())
	if err := h.tokens.Disconnect(r.Context(), caller.ID); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// kakaoCallback completes the consent flow. It is public: the signed state
// identifies the principal. Every outcome redirects to the result page.
func (h *Handler) kakaoCallback(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		h.redirectResult(w, r, callbackExchangeError)
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.redirectResult(w, r, e)
		return
	}
	code := q.Get("code")
	if code == "" {
		h.redirectResult(w, r, callbackMissingCode)
		return
	}
	principalID, err := h.tokens.VerifyState(q.Get("state"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "kakao callback with invalid state", "error", err)
		h.redirectResult(w, r, callbackInvalidState)
		return
	}
	if err := h.tokens.Acquire(r.Context(), code, principalID); err != nil {
		h.logger.WarnContext(r.Context(), "kakao token exchange failed", "principal_id", principalID, "error", err)
		h.redirectResult(w, r, callbackExchangeError)
		return
	}
	h.redirectResult(w, r, "")
}

// redirectResult sends the browser to the result page with kakao=success,
// or kakao=error and message when errMsg is set.
func (h *Handler) redirectResult(w http.ResponseWriter, r *http.Request, errMsg string) {
	target, err := url.Parse(h.kakaoResultURL)
	if err != nil || h.kakaoResultURL == "" {
		target = &url.URL{Path: "/profile"}
	}
	q := target.Query()
	if errMsg == "" {
		q.Set("kakao", "success")
	} else {
		q.Set("kakao", "error")
		q.Set("message", errMsg)
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}
