// backend/internal/quiz/handler.go
package quiz

import (
	"net/http"

	"course-portal/internal/apperr"
	"course-portal/internal/auth"
	"course-portal/internal/httpx"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// filtersFrom reads filters from the query string when present, else
// from a JSON body.
func filtersFrom(r *http.Request) (Filters, error) {
	if r.URL.RawQuery != "" {
		return ParseFilters(r.URL.Query())
	}
	var f Filters
	if err := httpx.DecodeJSON(r, &f); err != nil {
		return Filters{}, err
	}
	return f.Normalize(), nil
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var inc *IncompleteError
	if errors.As(err, &inc) {
		apperr.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   inc.Error(),
			"missing": inc.Missing,
		})
		return
	}
	apperr.Write(w, err)
}

func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		apperr.Write(w, apperr.ErrUnauthorized)
	}
	return id, ok
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	f, err := filtersFrom(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	res, err := h.service.Start(r.Context(), f)
	if errors.Is(err, ErrNoQuestions) {
		apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"questions": []interface{}{},
			"empty":     true,
			"message":   err.Error(),
		})
		return
	}
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	res, err := h.service.Submit(r.Context(), uid, req)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	f, err := filtersFrom(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	q, err := h.service.StartAttempt(r.Context(), uid, f)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, q)
}

func (h *Handler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	quizID, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	view, err := h.service.LoadAttempt(r.Context(), uid, quizID)
	if errors.Is(err, ErrSubmitted) {
		http.Redirect(w, r, "/api/quiz/attempts/"+quizID.String()+"/results", http.StatusSeeOther)
		return
	}
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	quizID, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	var req AnswerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	fb, err := h.service.Answer(r.Context(), uid, quizID, req)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"saved": true, "feedback": fb})
}

func (h *Handler) SavePosition(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	quizID, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	var req struct {
		Index int `json:"index"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.service.SavePosition(r.Context(), uid, quizID, req.Index); err != nil {
		apperr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	quizID, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	var req struct {
		FillBlanks bool `json:"fill_blanks"`
	}
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			apperr.Write(w, err)
			return
		}
	}
	res, err := h.service.SubmitAttempt(r.Context(), uid, quizID, req.FillBlanks)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	quizID, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	f, err := ParseResultFilter(r.URL.Query().Get("filter"))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	view, err := h.service.Results(r.Context(), uid, quizID, f)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	courseID, err := httpx.OptionalUUID(r, "course")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	view, err := h.service.History(r.Context(), uid, courseID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, view)
}
