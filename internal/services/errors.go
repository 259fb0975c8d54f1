package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the attempt and report services. Handlers map
// these to HTTP status codes in handleServiceError.
var (
	// ErrQuizNotFound covers both a missing quiz and an unpublished one,
	// so unpublished quizzes are invisible to takers.
	ErrQuizNotFound = errors.New("quiz not found")

	// ErrAttemptNotFound also covers attempts owned by another user or
	// belonging to another quiz.
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrAttemptAlreadyCompleted guards every mutation of a closed attempt.
	ErrAttemptAlreadyCompleted = errors.New("attempt already completed")

	// ErrAttemptNotCompleted is returned when results are requested for an
	// attempt that is still open.
	ErrAttemptNotCompleted = errors.New("attempt not completed")

	ErrQuestionNotFound = errors.New("question not found")

	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// PermissionError carries context about a denied action
type PermissionError struct {
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s on %s: %s", e.Action, e.Resource, e.Reason)
}

func NewPermissionError(resource, action, reason string) *PermissionError {
	return &PermissionError{
		Resource: resource,
		Action:   action,
		Reason:   reason,
	}
}

// BusinessRuleError carries context about a violated domain rule
type BusinessRuleError struct {
	Message string
	Rule    string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(message, rule string) *BusinessRuleError {
	return &BusinessRuleError{
		Message: message,
		Rule:    rule,
		Context: make(map[string]interface{}),
	}
}
