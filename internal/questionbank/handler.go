// backend/internal/questionbank/handler.go
package questionbank

import (
	"net/http"

	"course-portal/internal/apperr"
	"course-portal/internal/auth"
	"course-portal/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, Preview(req.Text))
}

func (h *Handler) SaveDrafts(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	n, err := h.service.SaveDrafts(r.Context(), userID, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, map[string]int{"saved": n})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	courseID, err := httpx.OptionalUUID(r, "course")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	lectureID, err := httpx.OptionalUUID(r, "lecture")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	questions, err := h.service.List(r.Context(), ListQuery{
		CourseID:        courseID,
		LectureID:       lectureID,
		Search:          r.URL.Query().Get("q"),
		IncludeArchived: r.URL.Query().Get("archived") == "1",
	})
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, questions)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	var req EditRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	q, err := h.service.Edit(r.Context(), id, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, q)
}

func (h *Handler) SetArchived(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	var req struct {
		Archived bool `json:"archived"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.service.SetArchived(r.Context(), id, req.Archived); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	res := h.service.Delete(r.Context(), id)
	if res.Outcome == Failed {
		apperr.Write(w, res.Err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, res)
}
