package models

import (
	"time"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

// IsAutoGradable reports whether answers of this type can be graded from
// stored option correctness flags alone.
func (t QuestionType) IsAutoGradable() bool {
	return t == MultipleChoice || t == TrueFalse
}

// IsChoiceBased reports whether answers of this type reference an option id
// rather than free text.
func (t QuestionType) IsChoiceBased() bool {
	return t == MultipleChoice || t == TrueFalse
}

type Quiz struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Title       string  `json:"title" gorm:"not null;size:200" validate:"required,max=200"`
	Description *string `json:"description" gorm:"type:text"`

	// PassingScore is a percentage threshold; an attempt at or above it passes.
	PassingScore int `json:"passing_score" gorm:"not null;default:70" validate:"min=0,max=100"`

	// TimeLimit in minutes. Nil means unlimited time and no countdown.
	TimeLimit *int `json:"time_limit" validate:"omitempty,min=1,max=300"`

	IsPublished bool   `json:"is_published" gorm:"default:false;index"`
	CreatedBy   string `json:"created_by" gorm:"not null;index;size:36"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions" gorm:"foreignKey:QuizID"`
}

type Question struct {
	ID     string       `json:"id" gorm:"primaryKey;size:36"`
	QuizID string       `json:"quiz_id" gorm:"not null;index;size:36"`
	Type   QuestionType `json:"type" gorm:"not null" validate:"required,question_type"`
	Text   string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Points int          `json:"points" gorm:"default:10" validate:"min=1,max=100"`
	Order  int          `json:"order" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations. Empty for short_answer and essay questions.
	Options []Option `json:"options" gorm:"foreignKey:QuestionID"`
}

type Option struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	QuestionID string `json:"question_id" gorm:"not null;index;size:36"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
	Order      int    `json:"order" gorm:"not null;default:0"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (Question) TableName() string {
	return "quiz_questions"
}

func (Option) TableName() string {
	return "quiz_options"
}

// TotalPoints sums the point values of all questions in the quiz.
func (q *Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// FindOption resolves an option id among this question's own options only, so
// an answer referencing another question's option never grades as correct.
func (q *Question) FindOption(optionID string) *Option {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return &q.Options[i]
		}
	}
	return nil
}
