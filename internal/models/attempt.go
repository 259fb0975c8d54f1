package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Correctness is the grading state of a single answer. Answers are ungraded
// until the attempt is submitted; text answers stay pending until reviewed.
type Correctness string

const (
	Ungraded      Correctness = ""
	Correct       Correctness = "correct"
	Incorrect     Correctness = "incorrect"
	PendingReview Correctness = "pending_review"
)

type QuizAttempt struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	QuizID string `json:"quiz_id" gorm:"not null;index;size:36"`
	UserID string `json:"user_id" gorm:"not null;index;size:36"`

	StartedAt time.Time `json:"started_at" gorm:"not null"`

	// CompletedAt is nil while the attempt is open. Set exactly once on
	// submit, together with Score and IsPassed.
	CompletedAt *time.Time `json:"completed_at"`
	Score       *float64   `json:"score"`
	IsPassed    bool       `json:"is_passed" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Answers []Answer `json:"answers" gorm:"foreignKey:AttemptID"`
}

type Answer struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	AttemptID  string `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question;size:36"`
	QuestionID string `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question;size:36"`

	// Value is a tagged JSONB payload, see AnswerValue.
	Value datatypes.JSON `json:"value" gorm:"type:jsonb"`

	Result        Correctness `json:"result" gorm:"size:20;default:''"`
	PointsAwarded int         `json:"points_awarded" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnswerValue is the wire and storage form of an answer payload. Choice
// questions carry an option id, text questions carry free text.
type AnswerValue struct {
	OptionID string `json:"option_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (Answer) TableName() string {
	return "quiz_answers"
}

// IsCompleted reports whether the attempt has been submitted.
func (a *QuizAttempt) IsCompleted() bool {
	return a.CompletedAt != nil
}

// AnswerFor returns the attempt's answer to the given question, or nil.
func (a *QuizAttempt) AnswerFor(questionID string) *Answer {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return &a.Answers[i]
		}
	}
	return nil
}

// DecodeValue unmarshals the stored payload.
func (ans *Answer) DecodeValue() (AnswerValue, error) {
	var v AnswerValue
	if len(ans.Value) == 0 {
		return v, nil
	}
	err := json.Unmarshal(ans.Value, &v)
	return v, err
}

// EncodeAnswerValue marshals a payload for storage.
func EncodeAnswerValue(v AnswerValue) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
