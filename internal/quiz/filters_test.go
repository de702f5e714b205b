package quiz

import (
	"net/url"
	"testing"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiltersRoundTrip(t *testing.T) {
	course, l1, l2, f1 := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name string
		in   Filters
	}{
		{"whole course", Filters{CourseID: course, Group: GroupAll, Count: 50, Shuffle: true, Mode: models.ModePractice}},
		{"lectures with general", Filters{CourseID: course, Group: GroupLectures, Lectures: []uuid.UUID{l1, l2}, IncludeGeneral: true, Count: 20, Mode: models.ModeExam}},
		{"formatives", Filters{CourseID: course, Group: GroupFormatives, Formatives: []uuid.UUID{f1}, Count: 200, Shuffle: true, Mode: models.ModePractice}},
		{"mixed", Filters{CourseID: course, Group: GroupMixed, Lectures: []uuid.UUID{l1}, Formatives: []uuid.UUID{f1}, Count: 5, Mode: models.ModeExam}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.in.Normalize()
			got, err := ParseFilters(want.Encode())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseFiltersDefaults(t *testing.T) {
	f, err := ParseFilters(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, GroupAll, f.Group)
	assert.Equal(t, DefaultCount, f.Count)
	assert.True(t, f.Shuffle)
	assert.Equal(t, models.ModePractice, f.Mode)
	assert.False(t, f.IncludeGeneral)

	for raw, want := range map[string]int{"abc": 50, "0": 5, "4": 5, "999": 200, "37": 37} {
		f, err := ParseFilters(url.Values{"count": {raw}})
		require.NoError(t, err)
		assert.Equal(t, want, f.Count, "count=%s", raw)
	}

	f, err = ParseFilters(url.Values{"shuffle": {"0"}, "mode": {"exam"}})
	require.NoError(t, err)
	assert.False(t, f.Shuffle)
	assert.Equal(t, models.ModeExam, f.Mode)

	f, err = ParseFilters(url.Values{"mode": {"EXAM"}})
	require.NoError(t, err)
	assert.Equal(t, models.ModePractice, f.Mode)
}

func TestParseFiltersRejectsBadIDs(t *testing.T) {
	_, err := ParseFilters(url.Values{"course": {"nope"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ParseFilters(url.Values{"group": {"lectures"}, "lectures": {uuid.NewString() + ",bad"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestNormalizeDropsUnusedIDs(t *testing.T) {
	l1, f1 := uuid.New(), uuid.New()
	base := Filters{CourseID: uuid.New(), Lectures: []uuid.UUID{l1}, Formatives: []uuid.UUID{f1}, IncludeGeneral: true}

	all := base
	all.Group = GroupAll
	n := all.Normalize()
	assert.Nil(t, n.Lectures)
	assert.Nil(t, n.Formatives)
	assert.False(t, n.IncludeGeneral)

	lec := base
	lec.Group = GroupLectures
	n = lec.Normalize()
	assert.Equal(t, []uuid.UUID{l1}, n.Lectures)
	assert.Nil(t, n.Formatives)
	assert.True(t, n.IncludeGeneral)
	assert.Equal(t, &l1, n.SingleLectureID())

	mixed := base
	mixed.Group = GroupMixed
	n = mixed.Normalize()
	assert.Equal(t, []uuid.UUID{l1, f1}, n.SelectedIDs())
	assert.Nil(t, n.SingleLectureID())
	assert.Equal(t, "1", n.Encode().Get("general"))
	assert.Empty(t, all.Normalize().Encode().Get("general"))
}

func TestFiltersValidate(t *testing.T) {
	assert.ErrorIs(t, Filters{Group: GroupAll}.Validate(), apperr.ErrValidation)
	assert.NoError(t, Filters{CourseID: uuid.New(), Group: GroupAll}.Validate())

	err := Filters{CourseID: uuid.New(), Group: GroupLectures}.Validate()
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lectures", verr.Field)
}

func TestSelectionLabel(t *testing.T) {
	l1, l2, f3 := uuid.New(), uuid.New(), uuid.New()
	titles := map[uuid.UUID]string{l1: "Lecture 1", l2: "Lecture 2 (Renal)", f3: "Formative 3"}
	titleOf := func(id uuid.UUID) string { return titles[id] }

	assert.Equal(t, "All course", Filters{Group: GroupAll}.SelectionLabel(titleOf))
	assert.Equal(t, "Lectures: Lecture 1 + Lecture 2 (Renal)",
		Filters{Group: GroupLectures, Lectures: []uuid.UUID{l1, l2}}.SelectionLabel(titleOf))
	assert.Equal(t, "Formatives: Formative 3",
		Filters{Group: GroupFormatives, Formatives: []uuid.UUID{f3}}.SelectionLabel(titleOf))
	assert.Equal(t, "Custom: Lecture 1 + Formative 3",
		Filters{Group: GroupMixed, Lectures: []uuid.UUID{l1}, Formatives: []uuid.UUID{f3}}.SelectionLabel(titleOf))
}
