package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/lms-labs/quiz-service/internal/events"
	"github.com/lms-labs/quiz-service/internal/models"
	"github.com/lms-labs/quiz-service/internal/repositories"
	"github.com/lms-labs/quiz-service/internal/validator"
)

// ===== IN-MEMORY REPOSITORY FAKES =====

type fakeRepository struct {
	quizzes  map[string]*models.Quiz
	attempts map[string]*models.QuizAttempt
	answers  map[string]*models.Answer // keyed attemptID+"/"+questionID
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		quizzes:  make(map[string]*models.Quiz),
		attempts: make(map[string]*models.QuizAttempt),
		answers:  make(map[string]*models.Answer),
	}
}

func (r *fakeRepository) Quiz() repositories.QuizRepository       { return &fakeQuizRepo{r} }
func (r *fakeRepository) Attempt() repositories.AttemptRepository { return &fakeAttemptRepo{r} }
func (r *fakeRepository) Answer() repositories.AnswerRepository   { return &fakeAnswerRepo{r} }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

type fakeQuizRepo struct{ r *fakeRepository }

func (q *fakeQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	quiz, ok := q.r.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (q *fakeQuizRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	return q.GetByID(ctx, tx, id)
}

func (q *fakeQuizRepo) GetPublished(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	quiz, ok := q.r.quizzes[id]
	if !ok || !quiz.IsPublished {
		return nil, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

type fakeAttemptRepo struct{ r *fakeRepository }

func (a *fakeAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	copied := *attempt
	a.r.attempts[attempt.ID] = &copied
	return nil
}

func (a *fakeAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.QuizAttempt, error) {
	attempt, ok := a.r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (a *fakeAttemptRepo) GetOwned(ctx context.Context, tx *gorm.DB, id, userID, quizID string) (*models.QuizAttempt, error) {
	attempt, ok := a.r.attempts[id]
	if !ok || attempt.UserID != userID || attempt.QuizID != quizID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (a *fakeAttemptRepo) GetOwnedWithAnswers(ctx context.Context, tx *gorm.DB, id, userID, quizID string) (*models.QuizAttempt, error) {
	attempt, err := a.GetOwned(ctx, tx, id, userID, quizID)
	if err != nil {
		return nil, err
	}
	answers, _ := (&fakeAnswerRepo{a.r}).GetByAttempt(ctx, tx, id)
	attempt.Answers = make([]models.Answer, 0, len(answers))
	for _, ans := range answers {
		attempt.Answers = append(attempt.Answers, *ans)
	}
	return attempt, nil
}

func (a *fakeAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	if _, ok := a.r.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *attempt
	a.r.attempts[attempt.ID] = &copied
	return nil
}

func (a *fakeAttemptRepo) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	var result []*models.QuizAttempt
	for _, attempt := range a.r.attempts {
		if attempt.QuizID != quizID {
			continue
		}
		if filters.CompletedOnly && attempt.CompletedAt == nil {
			continue
		}
		copied := *attempt
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, int64(len(result)), nil
}

type fakeAnswerRepo struct{ r *fakeRepository }

func (a *fakeAnswerRepo) Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	copied := *answer
	a.r.answers[answer.AttemptID+"/"+answer.QuestionID] = &copied
	return nil
}

func (a *fakeAnswerRepo) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.Answer, error) {
	var result []*models.Answer
	for _, ans := range a.r.answers {
		if ans.AttemptID == attemptID {
			copied := *ans
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].QuestionID < result[j].QuestionID
	})
	return result, nil
}

func (a *fakeAnswerRepo) Update(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	key := answer.AttemptID + "/" + answer.QuestionID
	if _, ok := a.r.answers[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *answer
	a.r.answers[key] = &copied
	return nil
}

// ===== FIXTURES =====

func newTestService(repo repositories.Repository, publisher events.EventPublisher) AttemptService {
	logger := testLogger()
	return NewAttemptService(repo, logger, validator.NewValidator(), NewGradingService(logger), publisher)
}

func seedQuiz(repo *fakeRepository) *models.Quiz {
	quiz := &models.Quiz{
		ID:           "0b6d2f06-1f4a-4c42-9b63-5f6f8b1a0001",
		Title:        "Networking basics",
		PassingScore: 70,
		IsPublished:  true,
		CreatedBy:    "creator-1",
		Questions: []models.Question{
			{
				ID: "6a4f4f5e-0000-4000-8000-000000000001", Type: models.MultipleChoice, Text: "port of https", Points: 10, Order: 1,
				Options: []models.Option{
					{ID: "8c000000-0000-4000-8000-00000000000a", Text: "443", IsCorrect: true, Order: 1},
					{ID: "8c000000-0000-4000-8000-00000000000b", Text: "80", Order: 2},
				},
			},
			{
				ID: "6a4f4f5e-0000-4000-8000-000000000002", Type: models.TrueFalse, Text: "udp is reliable", Points: 10, Order: 2,
				Options: []models.Option{
					{ID: "8c000000-0000-4000-8000-00000000000c", Text: "true", Order: 1},
					{ID: "8c000000-0000-4000-8000-00000000000d", Text: "false", IsCorrect: true, Order: 2},
				},
			},
			{
				ID: "6a4f4f5e-0000-4000-8000-000000000003", Type: models.Essay, Text: "describe tcp handshake", Points: 10, Order: 3,
			},
		},
	}
	repo.quizzes[quiz.ID] = quiz
	return quiz
}

// ===== TESTS =====

func TestStart(t *testing.T) {
	repo := newFakeRepository()
	quiz := seedQuiz(repo)
	svc := newTestService(repo, events.NoopEventPublisher{})

	attempt, err := svc.Start(context.Background(), quiz.ID, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if attempt.ID == "" {
		t.Error("attempt has no ID")
	}
	if attempt.IsCompleted() {
		t.Error("new attempt is completed")
	}
	if attempt.StartedAt.IsZero() {
		t.Error("new attempt has no start time")
	}

	// Retakes are unrestricted
	second, err := svc.Start(context.Background(), quiz.ID, "user-1")
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if second.ID == attempt.ID {
		t.Error("retake reused the first attempt")
	}
}

func TestStart_UnpublishedQuiz(t *testing.T) {
	repo := newFakeRepository()
	quiz := seedQuiz(repo)
	quiz.IsPublished = false
	svc := newTestService(repo, events.NoopEventPublisher{})

	if _, err := svc.Start(context.Background(), quiz.ID, "user-1"); err != ErrQuizNotFound {
		t.Errorf("Start() error = %v, want ErrQuizNotFound", err)
	}
	if _, err := svc.Start(context.Background(), "0b6d2f06-1f4a-4c42-9b63-5f6f8b1affff", "user-1"); err != ErrQuizNotFound {
		t.Errorf("Start() on missing quiz error = %v, want ErrQuizNotFound", err)
	}
}

func TestSaveAnswer_Upsert(t *testing.T) {
	repo := newFakeRepository()
	quiz := seedQuiz(repo)
	svc := newTestService(repo, events.NoopEventPublisher{})

	attempt, err := svc.Start(context.Background(), quiz.ID, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	questionID := quiz.Questions[0].ID
	save := func(optionID string) error {
		return svc.SaveAnswer(context.Background(), quiz.ID, attempt.ID, "user-1", &SaveAnswerRequest{
			QuestionID: questionID,
			Value:      AnswerValueRequest{OptionID: optionID},
		})
	}

	if err := save(quiz.Questions[0].Options[1].ID); err != nil {
		t.Fatalf("SaveAnswer() error = %v", err)
	}
	// Changing the answer replaces the row instead of adding one
	if err := save(quiz.Questions[0].Options[0].ID); err != nil {
		t.Fatalf("second SaveAnswer() error = %v", err)
	}

	answers, err := repo.Answer().GetByAttempt(context.Background(), nil, attempt.ID)
	if err != nil {
		t.Fatalf("GetByAttempt() error = %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("answer rows = %d, want 1", len(answers))
	}
	value, err := answers[0].DecodeValue()
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if value.OptionID != quiz.Questions[0].Options[0].ID {
		t.Errorf("stored option = %q, want replaced value", value.OptionID)
	}
	if answers[0].Result != models.Ungraded {
		t.Errorf("result = %q, want ungraded before submit", answers[0].Result)
	}
}

func TestSaveAnswer_Guards(t *testing.T) {
	repo := newFakeRepository()
	quiz := seedQuiz(repo)
	svc := newTestService(repo, events.NoopEventPublisher{})

	attempt, err := svc.Start(context.Background(), quiz.ID, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	req := &SaveAnswerRequest{
		QuestionID: quiz.Questions[0].ID,
		Value:      AnswerValueRequest{OptionID: quiz.Questions[0].Options[0].ID},
	}

	// Someone else's attempt is a missing attempt
	if err := svc.SaveAnswer(context.Background(), quiz.ID, attempt.ID, "user-2", req); err != ErrAttemptNotFound {
		t.Errorf("foreign user error = %v, want ErrAttemptNotFound", err)
	}

	// Unknown question
	badReq := &SaveAnswerRequest{
		QuestionID: "6a4f4f5e-0000-4000-8000-0000000000ff",
		Value:      AnswerValueRequest{OptionID: quiz.Questions[0].Options[0].ID},
	}
	if err := svc.SaveAnswer(context.Background(), quiz.ID, attempt.ID, "user-1", badReq); err != ErrQuestionNotFound {
		t.Errorf("unknown question error = %v, want ErrQuestionNotFound", err)
	}

	// Closed attempt rejects saves
	if _, err := svc.Submit(context.Background(), quiz.ID, attempt.ID, "user-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := svc.SaveAnswer(context.Background(), quiz.ID, attempt.ID, "user-1", req); err != ErrAttemptAlreadyCompleted {
		t.Errorf("closed attempt error = %v, want ErrAttemptAlreadyCompleted", err)
	}
}

func TestGetForTaking_StripsCorrectness(t *testing.T) {
	repo := newFakeRepository()
	quiz := seedQuiz(repo)
	svc := newTestService(repo, events.NoopEventPublisher{})

	attempt, err := svc.Start(context.Background(), quiz.ID, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := svc.SaveAnswer(context.Background(), quiz.ID, attempt.ID, "user-1", &SaveAnswerRequest{
		QuestionID: quiz.Questions[0].ID,
		Value:      AnswerValueRequest{OptionID: quiz.Questions[0].Options[0].ID},
	}); err != nil {
		t.Fatalf("SaveAnswer() error = %v", err)
	}

	taking, err := svc.GetForTaking(context.Background(), quiz.ID, attempt.ID, "user-1")
	if err != nil {
		t.Fatalf("GetForTaking() error = %v", err)
	}

	if len(taking.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(taking.Questions))
	}
	if len(taking.Answers) != 1 {
		t.Errorf("saved answers = %d, want 1", len(taking.Answers))
	}
	if taking.Quiz.PassingScore != quiz.PassingScore {
		t.Errorf("passing score = %d, want %d", taking.Quiz.PassingScore, quiz.PassingScore)
	}
}

func TestSubmit_GradesAndCloses(t *testing.T) {
	repo := newFakeRepository()
	quiz := seedQuiz(repo)
	publisher := events.NewMockEventPublisher(testLogger())
	svc := newTestService(repo, publisher)

	attempt, err := svc.Start(context.Background(), quiz.ID, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx := context.Background()
	// Correct MC, wrong TF, essay text
	saves := []*SaveAnswerRequest{
		{QuestionID: quiz.Questions[0].ID, Value: AnswerValueRequest{OptionID: quiz.Questions[0].Options[0].ID}},
		{QuestionID: quiz.Questions[1].ID, Value: AnswerValueRequest{OptionID: quiz.Questions[1].Options[0].ID}},
		{QuestionID: quiz.Questions[2].ID, Value: AnswerValueRequest{Text: "syn, syn-ack, ack"}},
	}
	for _, req := range saves {
		if err := svc.SaveAnswer(ctx, quiz.ID, attempt.ID, "user-1", req); err != nil {
			t.Fatalf("SaveAnswer(%s) error = %v", req.QuestionID, err)
		}
	}

	result, err := svc.Submit(ctx, quiz.ID, attempt.ID, "user-1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Earned 10 of 30
	wantScore := float64(10) / 30 * 100
	if result.Score != wantScore {
		t.Errorf("score = %v, want %v", result.Score, wantScore)
	}
	if result.IsPassed {
		t.Error("attempt passed below the threshold")
	}
	if result.PendingReview != 1 {
		t.Errorf("pending review = %d, want 1", result.PendingReview)
	}
	if result.CompletedAt.IsZero() {
		t.Error("no completion time")
	}

	// Answer rows carry their per-question results
	answers, _ := repo.Answer().GetByAttempt(ctx, nil, attempt.ID)
	byQuestion := make(map[string]*models.Answer, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans
	}
	if got := byQuestion[quiz.Questions[0].ID]; got.Result != models.Correct || got.PointsAwarded != 10 {
		t.Errorf("mc answer = (%q, %d), want (correct, 10)", got.Result, got.PointsAwarded)
	}
	if got := byQuestion[quiz.Questions[1].ID]; got.Result != models.Incorrect || got.PointsAwarded != 0 {
		t.Errorf("tf answer = (%q, %d), want (incorrect, 0)", got.Result, got.PointsAwarded)
	}
	if got := byQuestion[quiz.Questions[2].ID]; got.Result != models.PendingReview {
		t.Errorf("essay answer = %q, want pending_review", got.Result)
	}

	// One attempt.completed event after the commit
	published := publisher.GetPublishedEvents()
	if len(published) != 1 {
		t.Fatalf("published events = %d, want 1", len(published))
	}
	if published[0].Type != events.EventAttemptCompleted {
		t.Errorf("event type = %q, want %q", published[0].Type, events.EventAttemptCompleted)
	}

	// Submitting twice is a conflict
	if _, err := svc.Submit(ctx, quiz.ID, attempt.ID, "user-1"); err != ErrAttemptAlreadyCompleted {
		t.Errorf("second Submit() error = %v, want ErrAttemptAlreadyCompleted", err)
	}
}

func TestGetResults(t *testing.T) {
	repo := newFakeRepository()
	quiz := seedQuiz(repo)
	svc := newTestService(repo, events.NoopEventPublisher{})
	ctx := context.Background()

	attempt, err := svc.Start(ctx, quiz.ID, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Open attempts have no results
	if _, err := svc.GetResults(ctx, quiz.ID, attempt.ID, "user-1"); err != ErrAttemptNotCompleted {
		t.Fatalf("GetResults() on open attempt error = %v, want ErrAttemptNotCompleted", err)
	}

	if err := svc.SaveAnswer(ctx, quiz.ID, attempt.ID, "user-1", &SaveAnswerRequest{
		QuestionID: quiz.Questions[0].ID,
		Value:      AnswerValueRequest{OptionID: quiz.Questions[0].Options[0].ID},
	}); err != nil {
		t.Fatalf("SaveAnswer() error = %v", err)
	}
	if _, err := svc.Submit(ctx, quiz.ID, attempt.ID, "user-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	results, err := svc.GetResults(ctx, quiz.ID, attempt.ID, "user-1")
	if err != nil {
		t.Fatalf("GetResults() error = %v", err)
	}

	if results.TotalQuestions != 3 {
		t.Errorf("total questions = %d, want 3", results.TotalQuestions)
	}
	if results.AnsweredQuestions != 1 {
		t.Errorf("answered questions = %d, want 1", results.AnsweredQuestions)
	}
	if results.CorrectAnswers != 1 {
		t.Errorf("correct answers = %d, want 1", results.CorrectAnswers)
	}
	// Total points reflect the whole quiz, not just the earned answers
	if results.TotalPoints != 30 {
		t.Errorf("total points = %d, want 30", results.TotalPoints)
	}
	if results.Attempt.Score == nil {
		t.Fatal("attempt has no score")
	}

	// Strangers cannot read results
	if _, err := svc.GetResults(ctx, quiz.ID, attempt.ID, "user-2"); err != ErrAttemptNotFound {
		t.Errorf("foreign GetResults() error = %v, want ErrAttemptNotFound", err)
	}
}

func TestSubmit_DeterministicClock(t *testing.T) {
	repo := newFakeRepository()
	quiz := seedQuiz(repo)
	svc := newTestService(repo, events.NoopEventPublisher{})

	fixed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	svc.(*attemptService).now = func() time.Time { return fixed }

	attempt, err := svc.Start(context.Background(), quiz.ID, "user-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !attempt.StartedAt.Equal(fixed) {
		t.Errorf("StartedAt = %v, want %v", attempt.StartedAt, fixed)
	}

	result, err := svc.Submit(context.Background(), quiz.ID, attempt.ID, "user-1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !result.CompletedAt.Equal(fixed) {
		t.Errorf("CompletedAt = %v, want %v", result.CompletedAt, fixed)
	}
}
