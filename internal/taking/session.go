// Package taking coordinates one user taking one attempt: local answer
// state, fire-and-forget autosave, the countdown timer, and a submit that
// runs at most once no matter who triggers it.
package taking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lms-labs/quiz-service/internal/countdown"
	"github.com/lms-labs/quiz-service/internal/services"
)

// ErrSubmitInFlight is returned when a submit is requested while another
// one is still running.
var ErrSubmitInFlight = errors.New("submit already in flight")

// AttemptClient is the slice of the attempt service a session needs.
type AttemptClient interface {
	SaveAnswer(ctx context.Context, quizID, attemptID, userID string, req *services.SaveAnswerRequest) error
	Submit(ctx context.Context, quizID, attemptID, userID string) (*services.SubmitResponse, error)
}

// Session drives a single open attempt.
type Session struct {
	client AttemptClient
	logger *slog.Logger

	quizID    string
	attemptID string
	userID    string

	timer *countdown.Timer

	mu         sync.Mutex
	answers    map[string]services.AnswerValueRequest
	submitting bool
	result     *services.SubmitResponse

	// onExpired receives the auto-submit outcome from the timer goroutine
	onExpired func(*services.SubmitResponse, error)

	timerOpts []countdown.Option
}

// Option configures a Session.
type Option func(*Session)

// WithTimerOptions passes options through to the countdown timer.
func WithTimerOptions(opts ...countdown.Option) Option {
	return func(s *Session) { s.timerOpts = opts }
}

// WithExpiryFunc registers a callback for the auto-submit outcome.
func WithExpiryFunc(fn func(*services.SubmitResponse, error)) Option {
	return func(s *Session) { s.onExpired = fn }
}

// NewSession builds a session from a taking payload. The timer starts
// immediately when the quiz carries a time limit; the deadline is anchored
// to the attempt's original start, not to session creation, so reloading
// mid-attempt never grants extra time.
func NewSession(client AttemptClient, taking *services.TakingResponse, userID string, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		client:    client,
		logger:    logger,
		quizID:    taking.Quiz.ID,
		attemptID: taking.Attempt.ID,
		userID:    userID,
		answers:   make(map[string]services.AnswerValueRequest, len(taking.Answers)),
	}

	for _, saved := range taking.Answers {
		s.answers[saved.QuestionID] = services.AnswerValueRequest{
			OptionID: saved.Value.OptionID,
			Text:     saved.Value.Text,
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	s.timer = countdown.New(taking.Attempt.StartedAt, taking.Quiz.TimeLimit, s.autoSubmit, s.timerOpts...)
	s.timer.Start()

	return s
}

// SaveAnswer records the answer locally and autosaves it. Autosave failures
// are logged and swallowed: a lost save must never interrupt taking, and a
// completion race surfaces on the next submit instead.
func (s *Session) SaveAnswer(ctx context.Context, questionID string, value services.AnswerValueRequest) {
	s.mu.Lock()
	s.answers[questionID] = value
	s.mu.Unlock()

	req := &services.SaveAnswerRequest{
		QuestionID: questionID,
		Value:      value,
	}
	if err := s.client.SaveAnswer(ctx, s.quizID, s.attemptID, s.userID, req); err != nil {
		s.logger.Error("Failed to autosave answer",
			"attempt_id", s.attemptID,
			"question_id", questionID,
			"error", err)
	}
}

// Answer returns the locally recorded answer for a question.
func (s *Session) Answer(questionID string) (services.AnswerValueRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.answers[questionID]
	return value, ok
}

// AnsweredCount returns how many questions have a local answer.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Submit closes the attempt. It runs at most once: concurrent calls get
// ErrSubmitInFlight and calls after success get the cached result, so the
// user pressing submit and the timer expiring cannot double-submit.
func (s *Session) Submit(ctx context.Context) (*services.SubmitResponse, error) {
	s.mu.Lock()
	if s.result != nil {
		result := s.result
		s.mu.Unlock()
		return result, nil
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	s.submitting = true
	s.mu.Unlock()

	result, err := s.client.Submit(ctx, s.quizID, s.attemptID, s.userID)

	s.mu.Lock()
	s.submitting = false
	if err == nil {
		s.result = result
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	s.timer.Stop()
	return result, nil
}

// Remaining returns the time left on the countdown, zero when untimed.
func (s *Session) Remaining() time.Duration {
	return s.timer.Remaining()
}

// Close tears down the timer. Safe to call more than once.
func (s *Session) Close() {
	s.timer.Stop()
}

// autoSubmit is the timer expiry callback.
func (s *Session) autoSubmit() {
	s.logger.Info("Time limit reached, auto-submitting attempt",
		"attempt_id", s.attemptID)

	result, err := s.Submit(context.Background())
	if err != nil && !errors.Is(err, ErrSubmitInFlight) {
		s.logger.Error("Auto-submit failed",
			"attempt_id", s.attemptID,
			"error", err)
	}

	if s.onExpired != nil {
		s.onExpired(result, err)
	}
}
