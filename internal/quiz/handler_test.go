package quiz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"course-portal/internal/auth"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asUser(r *http.Request, user uuid.UUID) *http.Request {
	ctx := auth.WithClaims(r.Context(), &auth.Claims{UserID: user.String(), Role: models.RoleStudent})
	return r.WithContext(ctx)
}

func TestStartSessionEmptyState(t *testing.T) {
	fx := newFixture()
	h := NewHandler(fx.svc)

	req := httptest.NewRequest(http.MethodPost, "/api/quiz/sessions?course="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.StartSession(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["empty"])
	assert.Empty(t, body["questions"])

	req = httptest.NewRequest(http.MethodPost, "/api/quiz/sessions", strings.NewReader(`{"course_id":"`+fx.course.String()+`","group":"all"}`))
	rec = httptest.NewRecorder()
	h.StartSession(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var res StartResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Len(t, res.Questions, 3)
	assert.Equal(t, DefaultCount, res.Filters.Count)
}

func TestSubmitAttemptReportsMissing(t *testing.T) {
	fx := newFixture()
	h := NewHandler(fx.svc)
	user := uuid.New()
	quiz, err := fx.svc.StartAttempt(context.Background(), user, fx.filters(models.ModeExam))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/quiz/attempts/"+quiz.ID.String()+"/submit", strings.NewReader(`{}`))
	req = mux.SetURLVars(asUser(req, user), map[string]string{"id": quiz.ID.String()})
	rec := httptest.NewRecorder()
	h.SubmitAttempt(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Missing int `json:"missing"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 3, body.Missing)

	req = httptest.NewRequest(http.MethodPost, "/api/quiz/attempts/"+quiz.ID.String()+"/submit", strings.NewReader(`{"fill_blanks":true}`))
	req = mux.SetURLVars(asUser(req, user), map[string]string{"id": quiz.ID.String()})
	rec = httptest.NewRecorder()
	h.SubmitAttempt(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/quiz/attempts/"+quiz.ID.String(), nil)
	req = mux.SetURLVars(asUser(req, user), map[string]string{"id": quiz.ID.String()})
	rec = httptest.NewRecorder()
	h.GetAttempt(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/api/quiz/attempts/"+quiz.ID.String()+"/results", rec.Header().Get("Location"))
}

func TestAttemptRoutesNeedUser(t *testing.T) {
	h := NewHandler(newFixture().svc)
	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/history", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
