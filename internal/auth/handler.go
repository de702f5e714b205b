// backend/internal/auth/handler.go
package auth

import (
	"encoding/json"
	"net/http"

	"course-portal/internal/apperr"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Invalid("", "invalid request"))
		return
	}

	user, err := h.service.SignUp(r.Context(), req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, user.ToProfile())
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, apperr.Invalid("", "invalid request"))
		return
	}

	token, err := h.service.SignIn(r.Context(), req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		apperr.Write(w, apperr.ErrUnauthorized)
		return
	}
	profile, err := h.service.Session(r.Context(), userID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		apperr.Write(w, apperr.ErrUnauthorized)
		return
	}
	if err := h.service.SignOut(r.Context(), claims); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
