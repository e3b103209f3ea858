package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogmate/internal/domain"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, userToAPI(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	user, err := h.users.Create(r.Context(), domain.CreateUserRequest{
		Email: req.Email, Password: req.Password, Name: req.Name,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, User{
		ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt, Name: user.Name,
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setUserPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	err := h.users.SetPassword(r.Context(), domain.SetPasswordRequest{
		PrincipalID: chi.URLParam(r, "id"), Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setUserAdmin(w http.ResponseWriter, r *http.Request) {
	var req SetAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if err := h.users.SetAdmin(r.Context(), chi.URLParam(r, "id"), req.IsAdmin); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
