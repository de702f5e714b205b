package resource

import (
	"context"
	"net/url"
	"testing"

	"course-portal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestPageQueryRoundTrip(t *testing.T) {
	for _, pq := range []PageQuery{
		{},
		{Lecture: GeneralNode},
		{Q: "cardio drugs", Type: "slides", Lecture: uuid.NewString()},
	} {
		v, err := url.ParseQuery(pq.Encode().Encode())
		require.NoError(t, err)
		assert.Equal(t, pq, ParsePageQuery(v))
	}
}

func TestFilterAndTypes(t *testing.T) {
	list := []models.Resource{
		{Title: "Week 1 slides", Type: "slides"},
		{Title: "Lecture recording", Type: "recording", Description: ptr("Beta blockers")},
		{Title: "Summary", Type: "slides", Description: ptr("beta agonists")},
	}
	assert.Len(t, Filter(list, "", ""), 3)
	assert.Len(t, Filter(list, "BETA", ""), 2)
	assert.Len(t, Filter(list, "beta", "slides"), 1)
	assert.Equal(t, []string{"recording", "slides"}, Types(list))
}

func TestBuildPage(t *testing.T) {
	courseID := uuid.New()
	no := 1
	l1 := models.Lecture{ID: uuid.New(), CourseID: courseID, Kind: models.KindLecture, OrderIndex: 1, Title: "Lecture 1"}
	l2 := models.Lecture{ID: uuid.New(), CourseID: courseID, Kind: models.KindLecture, OrderIndex: 2, Title: "Lecture 2"}
	f1 := models.Lecture{ID: uuid.New(), CourseID: courseID, Kind: models.KindFormative, OrderIndex: 1, FormativeNo: &no, Title: "Formative 1"}

	resources := []models.Resource{
		{ID: uuid.New(), CourseID: courseID, LectureID: &l2.ID, Title: "Slides", Type: "slides"},
		{ID: uuid.New(), CourseID: courseID, Title: "Syllabus", Type: "pdf"},
	}

	page := BuildPage([]models.Lecture{l2, f1, l1}, resources, PageQuery{})
	require.Len(t, page.Lectures, 3)
	assert.Equal(t, GeneralNode, page.Lectures[0].ID)
	assert.Equal(t, l1.ID.String(), page.Lectures[1].ID)
	require.Len(t, page.Formatives, 1)
	assert.Equal(t, "Formative 1", page.Formatives[0].Title)
	assert.Equal(t, GeneralNode, page.Open, "first node with resources")

	page = BuildPage([]models.Lecture{l2, f1, l1}, resources, PageQuery{Type: "slides"})
	require.Len(t, page.Lectures, 2, "general bucket hidden when filtered empty")
	assert.Equal(t, l2.ID.String(), page.Open)
	assert.Equal(t, []string{"pdf", "slides"}, page.Types)
	assert.Equal(t, "type=slides", page.Query)

	page = BuildPage([]models.Lecture{l1}, nil, PageQuery{Lecture: l1.ID.String()})
	assert.Equal(t, l1.ID.String(), page.Open)
}

func TestCoursePage(t *testing.T) {
	svc, _, _ := newTestService()
	courseID := uuid.New()
	_, err := svc.Create(context.Background(), uuid.Nil, CreateRequest{CourseID: courseID, Title: "Link", Type: "link", ExternalURL: "https://x.io"}, nil)
	require.NoError(t, err)

	page, err := svc.CoursePage(context.Background(), courseID, PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Lectures, 1)
	assert.Len(t, page.Lectures[0].Resources, 1)
}
