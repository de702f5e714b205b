// backend/internal/resource/handler.go
package resource

import (
	"net/http"
	"strconv"
	"strings"

	"course-portal/internal/apperr"
	"course-portal/internal/auth"
	"course-portal/internal/httpx"

	"github.com/google/uuid"
)

const maxUploadBytes = 64 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// formFile returns the optional "file" part of a multipart form.
func formFile(r *http.Request) (*Upload, func(), error) {
	f, hdr, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, apperr.Invalid("file", "could not read upload")
	}
	return &Upload{Name: hdr.Filename, Body: f}, func() { f.Close() }, nil
}

func parseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return apperr.Invalid("", "invalid multipart form")
	}
	return nil
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		apperr.Write(w, err)
		return
	}
	courseID, err := uuid.Parse(r.FormValue("course_id"))
	if err != nil {
		apperr.Write(w, apperr.Invalid("course_id", "must be a valid id"))
		return
	}
	req := CreateRequest{
		CourseID:    courseID,
		Title:       r.FormValue("title"),
		Type:        r.FormValue("type"),
		Description: r.FormValue("description"),
		ExternalURL: r.FormValue("external_url"),
	}
	if raw := strings.TrimSpace(r.FormValue("lecture_id")); raw != "" && raw != GeneralNode {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperr.Write(w, apperr.Invalid("lecture_id", "must be a valid id"))
			return
		}
		req.LectureID = &id
	}

	file, closeFile, err := formFile(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	defer closeFile()

	uploader, _ := auth.UserIDFromContext(r.Context())
	res, err := h.service.Create(r.Context(), uploader, req, file)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	redirect := PageQuery{Lecture: GeneralNode}
	if res.LectureID != nil {
		redirect.Lecture = res.LectureID.String()
	}
	apperr.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"resource": res,
		"page":     "/courses/" + res.CourseID.String() + "?" + redirect.Encode().Encode(),
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if err := parseForm(r); err != nil {
		apperr.Write(w, err)
		return
	}
	deleteOld, _ := strconv.ParseBool(r.FormValue("delete_old_file"))
	req := UpdateRequest{
		Title:         r.FormValue("title"),
		Type:          r.FormValue("type"),
		Description:   r.FormValue("description"),
		ExternalURL:   r.FormValue("external_url"),
		DeleteOldFile: deleteOld,
	}

	file, closeFile, err := formFile(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	defer closeFile()

	res, warning, err := h.service.Update(r.Context(), id, req, file)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]interface{}{"resource": res, "warning": warning})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	warning, err := h.service.Delete(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"warning": warning})
}

func (h *Handler) SignedURL(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	link, err := h.service.SignedURL(r.Context(), id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *Handler) CoursePage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDVar(r, "id")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	page, err := h.service.CoursePage(r.Context(), id, ParsePageQuery(r.URL.Query()))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, page)
}
