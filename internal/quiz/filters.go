package quiz

import (
	"net/url"
	"strconv"
	"strings"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
)

// Group selects which groupings feed an attempt.
type Group string

const (
	GroupAll        Group = "all"
	GroupLectures   Group = "lectures"
	GroupFormatives Group = "formatives"
	GroupMixed      Group = "mixed"
)

const (
	MinCount     = 5
	MaxCount     = 200
	DefaultCount = 50
)

func (g Group) Valid() bool {
	switch g {
	case GroupAll, GroupLectures, GroupFormatives, GroupMixed:
		return true
	}
	return false
}

// Filters is the addressable state of the quiz start page.
type Filters struct {
	CourseID       uuid.UUID       `json:"course_id"`
	Group          Group           `json:"group"`
	Lectures       []uuid.UUID     `json:"lectures,omitempty"`
	Formatives     []uuid.UUID     `json:"formatives,omitempty"`
	IncludeGeneral bool            `json:"general"`
	Count          int             `json:"count"`
	Shuffle        bool            `json:"shuffle"`
	Mode           models.QuizMode `json:"mode"`
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Normalize clamps the count, fills defaults and drops ids the group
// does not use.
func (f Filters) Normalize() Filters {
	if !f.Group.Valid() {
		f.Group = GroupAll
	}
	if !f.Mode.Valid() {
		f.Mode = models.ModePractice
	}
	if f.Count == 0 {
		f.Count = DefaultCount
	}
	f.Count = clamp(f.Count, MinCount, MaxCount)

	switch f.Group {
	case GroupAll:
		f.Lectures, f.Formatives, f.IncludeGeneral = nil, nil, false
	case GroupLectures:
		f.Formatives = nil
	case GroupFormatives:
		f.Lectures = nil
	}
	if len(f.Lectures) == 0 {
		f.Lectures = nil
	}
	if len(f.Formatives) == 0 {
		f.Formatives = nil
	}
	return f
}

// SelectedIDs is the grouping set in scope; empty for the whole course.
func (f Filters) SelectedIDs() []uuid.UUID {
	switch f.Group {
	case GroupLectures:
		return f.Lectures
	case GroupFormatives:
		return f.Formatives
	case GroupMixed:
		ids := make([]uuid.UUID, 0, len(f.Lectures)+len(f.Formatives))
		ids = append(ids, f.Lectures...)
		return append(ids, f.Formatives...)
	}
	return nil
}

// SingleLectureID is set only when exactly one grouping is in scope.
func (f Filters) SingleLectureID() *uuid.UUID {
	ids := f.SelectedIDs()
	if len(ids) != 1 {
		return nil
	}
	id := ids[0]
	return &id
}

// Validate checks what is needed to start an attempt.
func (f Filters) Validate() error {
	if f.CourseID == uuid.Nil {
		return apperr.Invalid("course", "choose a course first")
	}
	if f.Group != GroupAll && len(f.SelectedIDs()) == 0 {
		return apperr.Invalid("lectures", "choose at least one lecture or formative")
	}
	return nil
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func splitIDs(raw, field string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, apperr.Invalid(field, "must be a list of ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Encode writes the filters as query parameters.
func (f Filters) Encode() url.Values {
	v := url.Values{}
	if f.CourseID != uuid.Nil {
		v.Set("course", f.CourseID.String())
	}
	v.Set("group", string(f.Group))
	if (f.Group == GroupLectures || f.Group == GroupMixed) && len(f.Lectures) > 0 {
		v.Set("lectures", joinIDs(f.Lectures))
	}
	if (f.Group == GroupFormatives || f.Group == GroupMixed) && len(f.Formatives) > 0 {
		v.Set("formatives", joinIDs(f.Formatives))
	}
	if f.Group != GroupAll && f.IncludeGeneral {
		v.Set("general", "1")
	}
	v.Set("count", strconv.Itoa(f.Count))
	if f.Shuffle {
		v.Set("shuffle", "1")
	} else {
		v.Set("shuffle", "0")
	}
	v.Set("mode", string(f.Mode))
	return v
}

// ParseFilters reads query parameters back into normalized filters.
// Missing values take their defaults; shuffle is on unless "0".
func ParseFilters(v url.Values) (Filters, error) {
	f := Filters{
		Group:          Group(v.Get("group")),
		IncludeGeneral: v.Get("general") == "1",
		Count:          DefaultCount,
		Shuffle:        v.Get("shuffle") != "0",
		Mode:           models.QuizMode(v.Get("mode")),
	}
	if raw := v.Get("course"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Filters{}, apperr.Invalid("course", "must be a valid id")
		}
		f.CourseID = id
	}
	if raw := v.Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			f.Count = clamp(n, MinCount, MaxCount)
		}
	}
	var err error
	if f.Lectures, err = splitIDs(v.Get("lectures"), "lectures"); err != nil {
		return Filters{}, err
	}
	if f.Formatives, err = splitIDs(v.Get("formatives"), "formatives"); err != nil {
		return Filters{}, err
	}
	return f.Normalize(), nil
}

// SelectionLabel describes the scope for history rows.
func (f Filters) SelectionLabel(titleOf func(uuid.UUID) string) string {
	join := func(ids []uuid.UUID) string {
		titles := make([]string, len(ids))
		for i, id := range ids {
			titles[i] = titleOf(id)
		}
		return strings.Join(titles, " + ")
	}
	switch f.Group {
	case GroupLectures:
		return "Lectures: " + join(f.Lectures)
	case GroupFormatives:
		return "Formatives: " + join(f.Formatives)
	case GroupMixed:
		return "Custom: " + join(f.SelectedIDs())
	}
	return "All course"
}
