// backend/internal/course/handler.go
package course

import (
	"net/http"

	"course-portal/internal/apperr"
	"course-portal/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.ListCourses(r.Context())
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, courses)
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	c, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	c, err := h.service.CreateCourse(r.Context(), req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) SeedCourses(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SeedDefaultCourses(r.Context()); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.service.DeleteCourse(r.Context(), id); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListLectures(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	g, err := h.service.ListLectures(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, g)
}

func (h *Handler) AddLecture(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	var req AddLectureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	l, err := h.service.AddLecture(r.Context(), id, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, l)
}

func (h *Handler) SeedLectures(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.service.SeedLectures(r.Context(), id, req.Count); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EditLecture(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	var req EditLectureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.service.EditLecture(r.Context(), id, req); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MoveUp(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	moved, err := h.service.MoveUp(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]bool{"moved": moved})
}

func (h *Handler) DeleteLecture(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.service.DeleteLecture(r.Context(), id); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
