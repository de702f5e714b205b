// backend/internal/course/service.go
package course

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"course-portal/internal/apperr"
	"course-portal/internal/models"
	"course-portal/internal/ordering"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	maxLectureNo  = 9999
	maxSeedCount  = 60
	msgDupCourse  = "a course with this code already exists"
	msgDupLecture = "a lecture with this number already exists"
	msgDupForm    = "a formative with this number already exists"
)

type Store interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
	CreateCourse(ctx context.Context, c *models.Course) error
	CreateCoursesIgnoringDuplicates(ctx context.Context, courses []models.Course) error
	DeleteCourse(ctx context.Context, id uuid.UUID) error

	ListLectures(ctx context.Context, courseID uuid.UUID) ([]models.Lecture, error)
	GetLecture(ctx context.Context, id uuid.UUID) (*models.Lecture, error)
	CreateLecture(ctx context.Context, l *models.Lecture) error
	CreateLecturesIgnoringDuplicates(ctx context.Context, lectures []models.Lecture) error
	UpdateLecture(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeleteLecture(ctx context.Context, id uuid.UUID) error
}

// CourseCache holds the full course list between writes.
type CourseCache interface {
	GetCourses(ctx context.Context) ([]models.Course, error)
	SetCourses(ctx context.Context, courses []models.Course) error
	InvalidateCourses(ctx context.Context) error
}

type Service struct {
	store Store
	cache CourseCache
}

func NewService(store Store, cache CourseCache) *Service {
	return &Service{store: store, cache: cache}
}

var defaultCourses = []models.Course{
	{Code: "PHARMA", Name: "Pharmacology", Semester: intPtr(2), Description: strPtr("Term 2 - 1st year Medicine")},
	{Code: "PARA", Name: "Parasitology", Semester: intPtr(2), Description: strPtr("Term 2 - 1st year Medicine")},
	{Code: "MICRO", Name: "Microbiology", Semester: intPtr(2), Description: strPtr("Term 2 - 1st year Medicine")},
	{Code: "PATHO", Name: "Pathology", Semester: intPtr(2), Description: strPtr("Term 2 - 1st year Medicine")},
	{Code: "ECE1", Name: "ECE1", Semester: intPtr(2), Description: strPtr("Term 2 - 1st year Medicine")},
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

type CreateCourseRequest struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Semester    *int    `json:"semester" validate:"omitempty,gte=1,lte=20"`
	Description *string `json:"description"`
}

func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCourses(ctx); err == nil {
			return cached, nil
		}
	}
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetCourses(ctx, courses); err != nil {
			glog.V(2).Infof("course cache write failed: %v", err)
		}
	}
	return courses, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCourses(ctx); err != nil {
		glog.Warningf("course cache invalidation failed: %v", err)
	}
}

func (s *Service) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return s.store.GetCourse(ctx, id)
}

func (s *Service) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}

	c := &models.Course{
		Code:        req.Code,
		Name:        req.Name,
		Semester:    req.Semester,
		Description: trimmedOrNil(req.Description),
	}
	if err := s.store.CreateCourse(ctx, c); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.Duplicate(msgDupCourse)
		}
		return nil, err
	}
	s.invalidate(ctx)
	glog.Infof("created course %s (%s)", c.Code, c.ID)
	return c, nil
}

// SeedDefaultCourses inserts the default course set, keeping any course
// whose code already exists.
func (s *Service) SeedDefaultCourses(ctx context.Context) error {
	rows := make([]models.Course, len(defaultCourses))
	copy(rows, defaultCourses)
	if err := s.store.CreateCoursesIgnoringDuplicates(ctx, rows); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteCourse(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func LectureTitle(order int, topic, custom string) string {
	if c := strings.TrimSpace(custom); c != "" {
		return c
	}
	if t := strings.TrimSpace(topic); t != "" {
		return fmt.Sprintf("Lecture %d (%s)", order, t)
	}
	return fmt.Sprintf("Lecture %d", order)
}

func FormativeTitle(no int) string {
	return fmt.Sprintf("Formative %d", no)
}

// Groupings is a course's lectures and formatives, each in display order,
// plus the next suggested numbers.
type Groupings struct {
	Lectures        []models.Lecture `json:"lectures"`
	Formatives      []models.Lecture `json:"formatives"`
	NextLectureNo   int              `json:"next_lecture_no"`
	NextFormativeNo int              `json:"next_formative_no"`
}

// Split separates lectures from formatives. Lectures sort by order key,
// formatives by their number.
func Split(all []models.Lecture) Groupings {
	var g Groupings
	for _, l := range all {
		if l.IsFormative() {
			g.Formatives = append(g.Formatives, l)
		} else {
			g.Lectures = append(g.Lectures, l)
		}
	}
	sort.SliceStable(g.Lectures, func(i, j int) bool { return g.Lectures[i].OrderIndex < g.Lectures[j].OrderIndex })
	sort.SliceStable(g.Formatives, func(i, j int) bool { return g.Formatives[i].Number() < g.Formatives[j].Number() })

	maxLec, maxForm := 0, 0
	for _, l := range g.Lectures {
		if l.OrderIndex > maxLec {
			maxLec = l.OrderIndex
		}
	}
	for _, f := range g.Formatives {
		if f.Number() > maxForm {
			maxForm = f.Number()
		}
	}
	g.NextLectureNo = max(1, maxLec+1)
	g.NextFormativeNo = max(1, maxForm+1)
	return g
}

func (s *Service) ListLectures(ctx context.Context, courseID uuid.UUID) (Groupings, error) {
	all, err := s.store.ListLectures(ctx, courseID)
	if err != nil {
		return Groupings{}, err
	}
	return Split(all), nil
}

type AddLectureRequest struct {
	Kind        models.LectureKind `json:"kind"`
	Number      *int               `json:"number"`
	Topic       string             `json:"topic"`
	CustomTitle string             `json:"custom_title"`
}

func checkNumber(kind models.LectureKind, n *int) error {
	if n == nil {
		return apperr.Invalid("number", "is required")
	}
	if kind == models.KindFormative {
		if *n < 1 || *n > maxLectureNo {
			return apperr.Invalid("number", "formative number must be between 1 and 9999")
		}
		return nil
	}
	if *n < 0 || *n > maxLectureNo {
		return apperr.Invalid("number", "lecture number must be between 0 and 9999")
	}
	return nil
}

func duplicateMessage(kind models.LectureKind) string {
	if kind == models.KindFormative {
		return msgDupForm
	}
	return msgDupLecture
}

func (s *Service) AddLecture(ctx context.Context, courseID uuid.UUID, req AddLectureRequest) (*models.Lecture, error) {
	if req.Kind == "" {
		req.Kind = models.KindLecture
	}
	if req.Kind != models.KindLecture && req.Kind != models.KindFormative {
		return nil, apperr.Invalid("kind", "must be lecture or formative")
	}
	if err := checkNumber(req.Kind, req.Number); err != nil {
		return nil, err
	}

	n := *req.Number
	l := &models.Lecture{CourseID: courseID, Kind: req.Kind, OrderIndex: n}
	if req.Kind == models.KindFormative {
		l.FormativeNo = &n
		l.Title = FormativeTitle(n)
	} else {
		l.Title = LectureTitle(n, req.Topic, req.CustomTitle)
	}

	if err := s.store.CreateLecture(ctx, l); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.Duplicate(duplicateMessage(req.Kind))
		}
		return nil, err
	}
	return l, nil
}

// SeedLectures creates Lecture 1..n, skipping numbers that already exist.
func (s *Service) SeedLectures(ctx context.Context, courseID uuid.UUID, n int) error {
	if n < 1 || n > maxSeedCount {
		return apperr.Invalid("count", "must be between 1 and 60")
	}
	rows := make([]models.Lecture, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, models.Lecture{
			CourseID:   courseID,
			Kind:       models.KindLecture,
			OrderIndex: i,
			Title:      LectureTitle(i, "", ""),
		})
	}
	return s.store.CreateLecturesIgnoringDuplicates(ctx, rows)
}

type EditLectureRequest struct {
	Number *int   `json:"number"`
	Title  string `json:"title"`
}

// EditLecture renumbers a grouping. Lectures keep a custom title;
// formatives regenerate theirs from the number.
func (s *Service) EditLecture(ctx context.Context, id uuid.UUID, req EditLectureRequest) error {
	l, err := s.store.GetLecture(ctx, id)
	if err != nil {
		return err
	}
	if req.Number == nil || *req.Number < 0 || *req.Number > maxLectureNo {
		return apperr.Invalid("number", "must be between 0 and 9999")
	}
	n := *req.Number

	var fields map[string]interface{}
	if l.IsFormative() {
		fields = formativeFields(n)
	} else {
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return apperr.Invalid("title", "is required")
		}
		fields = map[string]interface{}{"order_index": n, "title": title}
	}

	if err := s.store.UpdateLecture(ctx, id, fields); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return apperr.Duplicate(duplicateMessage(l.Kind))
		}
		return err
	}
	return nil
}

func formativeFields(n int) map[string]interface{} {
	return map[string]interface{}{
		"order_index":  n,
		"formative_no": n,
		"title":        FormativeTitle(n),
	}
}

// orderStore adapts Store to ordering.Store for one kind of grouping.
type orderStore struct {
	store     Store
	formative bool
}

func (o orderStore) SetOrder(ctx context.Context, id uuid.UUID, order int) error {
	fields := map[string]interface{}{"order_index": order}
	if o.formative {
		fields = formativeFields(order)
	}
	return o.store.UpdateLecture(ctx, id, fields)
}

// MoveUp swaps a grouping with the one before it of the same kind.
// It reports false when the grouping is already first.
func (s *Service) MoveUp(ctx context.Context, id uuid.UUID) (bool, error) {
	l, err := s.store.GetLecture(ctx, id)
	if err != nil {
		return false, err
	}
	all, err := s.store.ListLectures(ctx, l.CourseID)
	if err != nil {
		return false, err
	}
	g := Split(all)
	list := g.Lectures
	if l.IsFormative() {
		list = g.Formatives
	}

	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return false, nil
	}

	a, b := list[idx], list[idx-1]
	err = ordering.Swap(ctx, orderStore{store: s.store, formative: l.IsFormative()},
		ordering.Item{ID: a.ID, Order: a.Number()},
		ordering.Item{ID: b.ID, Order: b.Number()})
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteLecture removes a grouping; the store detaches its resources and
// questions so they become general course content.
func (s *Service) DeleteLecture(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteLecture(ctx, id)
}
