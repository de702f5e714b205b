package quiz

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	questions map[uuid.UUID]models.Question
	quizzes   map[uuid.UUID]*models.Quiz
	order     map[uuid.UUID][]models.QuizQuestion
	answers   map[uuid.UUID]map[uuid.UUID]models.QuizAnswer

	failAttempt error
	failOrder   error
	failAnswers error
	failUpsert  error
	failMark    error
}

func newMemStore(questions ...models.Question) *memStore {
	m := &memStore{
		questions: map[uuid.UUID]models.Question{},
		quizzes:   map[uuid.UUID]*models.Quiz{},
		order:     map[uuid.UUID][]models.QuizQuestion{},
		answers:   map[uuid.UUID]map[uuid.UUID]models.QuizAnswer{},
	}
	for _, q := range questions {
		m.questions[q.ID] = q
	}
	return m
}

func (m *memStore) CreateAttempt(_ context.Context, q *models.Quiz) error {
	if m.failAttempt != nil {
		return m.failAttempt
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	cp := *q
	m.quizzes[q.ID] = &cp
	return nil
}

func (m *memStore) CreateOrder(_ context.Context, rows []models.QuizQuestion) error {
	if m.failOrder != nil {
		return m.failOrder
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.order[r.QuizID] = append(m.order[r.QuizID], r)
	}
	return nil
}

func (m *memStore) putAnswers(rows []models.QuizAnswer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if m.answers[r.QuizID] == nil {
			m.answers[r.QuizID] = map[uuid.UUID]models.QuizAnswer{}
		}
		m.answers[r.QuizID][r.QuestionID] = r
	}
}

func (m *memStore) CreateAnswers(_ context.Context, rows []models.QuizAnswer) error {
	if m.failAnswers != nil {
		return m.failAnswers
	}
	m.putAnswers(rows)
	return nil
}

func (m *memStore) CourseQuestions(_ context.Context, courseID uuid.UUID) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Question
	for _, q := range m.questions {
		if q.CourseID == courseID && !q.IsArchived {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) QuestionsByIDs(_ context.Context, ids []uuid.UUID) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Question
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memStore) StartAttempt(ctx context.Context, q *models.Quiz, questionIDs []uuid.UUID) error {
	if err := m.CreateAttempt(ctx, q); err != nil {
		return err
	}
	rows := make([]models.QuizQuestion, len(questionIDs))
	for i, id := range questionIDs {
		rows[i] = models.QuizQuestion{QuizID: q.ID, QuestionID: id, OrderIndex: i}
	}
	return m.CreateOrder(ctx, rows)
}

func (m *memStore) GetAttempt(_ context.Context, id uuid.UUID) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return nil, apperr.NotFound("record not found")
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) AttemptItems(_ context.Context, quizID uuid.UUID) ([]models.QuizQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.QuizQuestion, len(m.order[quizID]))
	copy(items, m.order[quizID])
	for i := range items {
		q := m.questions[items[i].QuestionID]
		items[i].Question = &q
	}
	sort.Slice(items, func(i, j int) bool { return items[i].OrderIndex < items[j].OrderIndex })
	return items, nil
}

func (m *memStore) AttemptAnswers(_ context.Context, quizID uuid.UUID) ([]models.QuizAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuizAnswer
	for _, a := range m.answers[quizID] {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) UpsertAnswers(_ context.Context, rows []models.QuizAnswer) error {
	if m.failUpsert != nil {
		return m.failUpsert
	}
	m.putAnswers(rows)
	return nil
}

func (m *memStore) MarkSubmitted(_ context.Context, quizID uuid.UUID, res Result, at time.Time) error {
	if m.failMark != nil {
		return m.failMark
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return apperr.NotFound("quiz not found")
	}
	q.SubmittedAt = &at
	q.TotalQuestions, q.CorrectCount, q.Score = res.Total, res.Correct, res.Score
	return nil
}

func (m *memStore) ListAttempts(_ context.Context, userID uuid.UUID, courseID *uuid.UUID) ([]models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Quiz
	for _, q := range m.quizzes {
		if q.UserID == userID && (courseID == nil || q.CourseID == *courseID) {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

type lectureList []models.Lecture

func (l lectureList) ListLectures(_ context.Context, courseID uuid.UUID) ([]models.Lecture, error) {
	var out []models.Lecture
	for _, lec := range l {
		if lec.CourseID == courseID {
			out = append(out, lec)
		}
	}
	return out, nil
}

type memPositions struct {
	pos map[string]int
}

func posKey(quizID, userID uuid.UUID) string { return quizID.String() + ":" + userID.String() }

func (m *memPositions) SetPosition(_ context.Context, quizID, userID uuid.UUID, index int) error {
	m.pos[posKey(quizID, userID)] = index
	return nil
}

func (m *memPositions) GetPosition(_ context.Context, quizID, userID uuid.UUID) (int, error) {
	p, ok := m.pos[posKey(quizID, userID)]
	if !ok {
		return 0, errors.New("no position")
	}
	return p, nil
}

func (m *memPositions) ClearPosition(_ context.Context, quizID, userID uuid.UUID) error {
	delete(m.pos, posKey(quizID, userID))
	return nil
}

type message struct {
	room, kind string
}

type recorder struct {
	mu   sync.Mutex
	sent []message
}

func (r *recorder) BroadcastMessage(room, messageType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, message{room, messageType})
}

type fixture struct {
	scopeFixture
	store     *memStore
	positions *memPositions
	notes     *recorder
	svc       *Service
}

func newFixture() *fixture {
	fx := &fixture{scopeFixture: newScopeFixture()}
	fx.store = newMemStore(fx.questions...)
	fx.positions = &memPositions{pos: map[string]int{}}
	fx.notes = &recorder{}
	fx.svc = NewService(fx.store, lectureList{fx.l1, fx.l2}, fx.positions, fx.notes)
	return fx
}

func (fx *fixture) filters(mode models.QuizMode) Filters {
	return Filters{
		CourseID:       fx.course,
		Group:          GroupLectures,
		Lectures:       []uuid.UUID{fx.l1.ID, fx.l2.ID},
		IncludeGeneral: true,
		Count:          50,
		Mode:           mode,
	}
}

func TestStart(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	res, err := fx.svc.Start(ctx, fx.filters(models.ModeExam))
	require.NoError(t, err)
	require.Len(t, res.Questions, 3)
	for _, q := range res.Questions {
		assert.Nil(t, q.CorrectIndex)
	}
	assert.Equal(t, "Lectures: Lecture 1 + Lecture 2", res.Selection)
	assert.Contains(t, res.Query, "general=1")

	res, err = fx.svc.Start(ctx, fx.filters(models.ModePractice))
	require.NoError(t, err)
	require.NotNil(t, res.Questions[0].CorrectIndex)

	_, err = fx.svc.Start(ctx, Filters{CourseID: uuid.New(), Group: GroupAll})
	assert.True(t, errors.Is(err, ErrNoQuestions))

	_, err = fx.svc.Start(ctx, Filters{Group: GroupAll})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSubmitRecordsHistory(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := uuid.New()
	q1, q2 := fx.questions[0], fx.questions[1]

	req := SubmitRequest{
		Filters:     Filters{CourseID: fx.course, Group: GroupLectures, Lectures: []uuid.UUID{fx.l1.ID}, Mode: models.ModeExam},
		QuestionIDs: []uuid.UUID{q1.ID},
		Answers:     map[uuid.UUID]int{q1.ID: 1},
	}
	res, err := fx.svc.Submit(ctx, user, req)
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 1, Correct: 1, Score: 100}, res.Result)
	require.NotNil(t, res.QuizID)

	stored := fx.store.quizzes[*res.QuizID]
	require.NotNil(t, stored.SubmittedAt)
	assert.Equal(t, &fx.l1.ID, stored.LectureID)
	assert.Equal(t, "Lectures: Lecture 1", *stored.Selection)
	assert.Len(t, fx.store.order[*res.QuizID], 1)
	assert.True(t, fx.store.answers[*res.QuizID][q1.ID].IsCorrect)

	req.QuestionIDs = []uuid.UUID{q1.ID, q2.ID}
	_, err = fx.svc.Submit(ctx, user, req)
	var inc *IncompleteError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, 1, inc.Missing)
}

func TestSubmitSurvivesHistoryFailure(t *testing.T) {
	fx := newFixture()
	fx.store.failAttempt = errors.New("connection refused")
	q1 := fx.questions[0]

	res, err := fx.svc.Submit(context.Background(), uuid.New(), SubmitRequest{
		Filters:     Filters{CourseID: fx.course, Group: GroupAll},
		QuestionIDs: []uuid.UUID{q1.ID},
		Answers:     map[uuid.UUID]int{q1.ID: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Nil(t, res.QuizID)
	assert.Empty(t, fx.store.quizzes)
}

func TestSubmitRejectsBadQuestionLists(t *testing.T) {
	fx := newFixture()
	q1, q5 := fx.questions[0], fx.questions[4]
	f := Filters{CourseID: fx.course, Group: GroupAll}

	tests := []struct {
		name string
		ids  []uuid.UUID
	}{
		{"repeated id", []uuid.UUID{q1.ID, q1.ID}},
		{"other course", []uuid.UUID{q1.ID, q5.ID}},
		{"unknown id", []uuid.UUID{q1.ID, uuid.New()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.Submit(context.Background(), uuid.New(), SubmitRequest{
				Filters:     f,
				QuestionIDs: tt.ids,
				Answers:     map[uuid.UUID]int{q1.ID: 1, q5.ID: 1},
			})
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "question_ids", verr.Field)
		})
	}
	assert.Empty(t, fx.store.quizzes)
}

func TestBridgeKeepsGoingAfterOrderFailure(t *testing.T) {
	store := newMemStore()
	store.failOrder = errors.New("timeout")
	qs := threeQuestions()
	s := NewSession(models.ModeExam, qs)
	for _, q := range qs {
		require.NoError(t, s.Answer(q.ID, 1))
	}
	res, err := s.Submit()
	require.NoError(t, err)

	id := NewBridge(store).Record(context.Background(), Attempt{
		UserID:  uuid.New(),
		Filters: Filters{CourseID: qs[0].CourseID, Group: GroupAll, Mode: models.ModeExam},
		Session: s,
		Result:  res,
	})
	require.NotEqual(t, uuid.Nil, id)
	assert.Empty(t, store.order[id])
	assert.Len(t, store.answers[id], 3)
	assert.Equal(t, 100, store.quizzes[id].Score)
	assert.Nil(t, store.quizzes[id].LectureID)
}

func TestPersistedAttemptFlow(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := uuid.New()

	f := fx.filters(models.ModePractice)
	f.Lectures = []uuid.UUID{fx.l1.ID}
	f.IncludeGeneral = false
	f.Group = GroupMixed
	f.Formatives = []uuid.UUID{fx.l2.ID}
	quiz, err := fx.svc.StartAttempt(ctx, user, f)
	require.NoError(t, err)
	assert.Nil(t, quiz.SubmittedAt)
	assert.Equal(t, 2, quiz.TotalQuestions)
	q1, q2 := fx.questions[0], fx.questions[1]

	view, err := fx.svc.LoadAttempt(ctx, user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, 0, view.Answered)
	assert.Nil(t, view.Items[0].Question.CorrectIndex)

	_, err = fx.svc.LoadAttempt(ctx, uuid.New(), quiz.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	fb, err := fx.svc.Answer(ctx, user, quiz.ID, AnswerRequest{QuestionID: q1.ID, Choice: 1})
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.True(t, fb.Correct)
	assert.Equal(t, "B", fb.CorrectLetter)

	fb, err = fx.svc.Answer(ctx, user, quiz.ID, AnswerRequest{QuestionID: q1.ID, Choice: 3})
	require.NoError(t, err)
	assert.False(t, fb.Correct)

	_, err = fx.svc.Answer(ctx, user, quiz.ID, AnswerRequest{QuestionID: q1.ID, Choice: 9})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = fx.svc.Answer(ctx, user, quiz.ID, AnswerRequest{QuestionID: fx.questions[2].ID, Choice: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, fx.svc.SavePosition(ctx, user, quiz.ID, 1))
	assert.ErrorIs(t, fx.svc.SavePosition(ctx, user, quiz.ID, 2), apperr.ErrValidation)
	view, err = fx.svc.LoadAttempt(ctx, user, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Position)
	assert.Equal(t, 1, view.Answered)
	require.NotNil(t, view.Items[0].Feedback)
	assert.Equal(t, 3, *view.Items[0].Selected)

	_, err = fx.svc.SubmitAttempt(ctx, user, quiz.ID, false)
	var inc *IncompleteError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, 1, inc.Missing)

	res, err := fx.svc.SubmitAttempt(ctx, user, quiz.ID, true)
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 2, Correct: 0, Score: 0}, res)
	blank, ok := fx.store.answers[quiz.ID][q2.ID]
	require.True(t, ok)
	assert.Nil(t, blank.SelectedIndex)
	assert.Empty(t, fx.positions.pos)

	_, err = fx.svc.LoadAttempt(ctx, user, quiz.ID)
	assert.True(t, errors.Is(err, ErrSubmitted))
	_, err = fx.svc.Answer(ctx, user, quiz.ID, AnswerRequest{QuestionID: q1.ID, Choice: 1})
	assert.True(t, errors.Is(err, ErrSubmitted))
	_, err = fx.svc.SubmitAttempt(ctx, user, quiz.ID, true)
	assert.True(t, errors.Is(err, ErrSubmitted))

	room := quiz.ID.String()
	assert.Equal(t, []message{{room, "answer_saved"}, {room, "answer_saved"}, {room, "quiz_submitted"}}, fx.notes.sent)

	results, err := fx.svc.Results(ctx, user, quiz.ID, FilterUnanswered)
	require.NoError(t, err)
	require.Len(t, results.Items, 1)
	assert.Equal(t, q2.ID, results.Items[0].Question.ID)
	results, err = fx.svc.Results(ctx, user, quiz.ID, FilterWrong)
	require.NoError(t, err)
	require.Len(t, results.Items, 1)
	assert.Equal(t, q1.ID, results.Items[0].Question.ID)
}

func TestExamAttemptWithholdsFeedback(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := uuid.New()

	quiz, err := fx.svc.StartAttempt(ctx, user, fx.filters(models.ModeExam))
	require.NoError(t, err)
	fb, err := fx.svc.Answer(ctx, user, quiz.ID, AnswerRequest{QuestionID: fx.questions[0].ID, Choice: 1})
	require.NoError(t, err)
	assert.Nil(t, fb)

	fx.store.failUpsert = errors.New("blank rows rejected")
	fx.store.failMark = errors.New("connection reset")
	_, err = fx.svc.SubmitAttempt(ctx, user, quiz.ID, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit attempt")
	assert.Nil(t, fx.store.quizzes[quiz.ID].SubmittedAt)
}

func TestBuildResultsPrefersStoredCount(t *testing.T) {
	qs := threeQuestions()
	items := make([]models.QuizQuestion, len(qs))
	for i := range qs {
		items[i] = models.QuizQuestion{QuestionID: qs[i].ID, OrderIndex: i, Question: &qs[i]}
	}
	one, zero := 1, 0
	answers := []models.QuizAnswer{
		{QuestionID: qs[0].ID, SelectedIndex: &one},
		{QuestionID: qs[1].ID, SelectedIndex: &zero},
		{QuestionID: qs[2].ID},
	}

	open := &models.Quiz{}
	view := BuildResults(open, items, answers, FilterAll)
	assert.Equal(t, 1, view.Correct)
	assert.Equal(t, 33, view.Percent)
	assert.Len(t, view.Items, 3)

	now := time.Now()
	done := &models.Quiz{SubmittedAt: &now, CorrectCount: 2}
	view = BuildResults(done, items, answers, FilterWrong)
	assert.Equal(t, 2, view.Correct)
	assert.Equal(t, 67, view.Percent)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Index)

	_, err := ParseResultFilter("bogus")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	f, err := ParseResultFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)
}

func TestBuildHistory(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	attempts := []models.Quiz{
		{Score: 80, StartedAt: t0.Add(48 * time.Hour)},
		{Score: 50, StartedAt: t0.Add(24 * time.Hour)},
		{Score: 65, StartedAt: t0},
	}
	view := BuildHistory(attempts)
	assert.Equal(t, Stats{Count: 3, Avg: 65, Best: 80, Last: 80}, view.Stats)
	assert.Equal(t, []int{65, 50, 80}, view.Chart)

	empty := BuildHistory(nil)
	assert.Equal(t, Stats{}, empty.Stats)
	assert.Empty(t, empty.Chart)
}

func TestHistoryIsPerUser(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	user := uuid.New()

	_, err := fx.svc.StartAttempt(ctx, user, fx.filters(models.ModeExam))
	require.NoError(t, err)
	_, err = fx.svc.StartAttempt(ctx, uuid.New(), fx.filters(models.ModeExam))
	require.NoError(t, err)

	view, err := fx.svc.History(ctx, user, &fx.course)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Stats.Count)
	other := uuid.New()
	view, err = fx.svc.History(ctx, user, &other)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Stats.Count)
}
