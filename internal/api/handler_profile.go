package api

import (
	"errors"
	"fmt"
	"net/http"

	"blogmate/internal/domain"
	"blogmate/internal/service/avatar"
)

// multipartOverhead leaves room for form boundaries around the file part.
const multipartOverhead = 64 << 10

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToAPI(p))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	p, err := h.profiles.Save(r.Context(), domain.UpdateProfileRequest(req))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToAPI(p))
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	limit := h.avatars.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("file must be at most %d MB", limit>>20))
			return
		}
		writeError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	url, err := h.avatars.Upload(r.Context(), avatar.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AvatarResponse{AvatarURL: url})
}

func (h *Handler) deleteAvatar(w http.ResponseWriter, r *http.Request) {
	if err := h.avatars.Delete(r.Context()); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
