package validator

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/lms-labs/quiz-service/internal/models"
)

// Validator wraps go-playground validation with quiz domain rules
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with all custom rules registered
func NewValidator() *Validator {
	v := &Validator{validate: validator.New()}
	v.registerDomainRules()
	return v
}

// Validate validates any tagged struct, returning nil when it passes
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// registerDomainRules registers custom quiz rule validators
func (v *Validator) registerDomainRules() {
	// Question type validation
	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		qType := models.QuestionType(fl.Field().String())
		switch qType {
		case models.MultipleChoice, models.TrueFalse, models.ShortAnswer, models.Essay:
			return true
		}
		return false
	})

	// Passing score validation (0-100 percent)
	v.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	// Time limit validation (1-300 minutes)
	v.validate.RegisterValidation("time_limit", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				return true // unlimited
			}
			field = field.Elem()
		}
		limit := field.Int()
		return limit >= 1 && limit <= 300
	})

	// Answer payload must carry exactly one of option_id or text
	v.validate.RegisterStructValidation(func(sl validator.StructLevel) {
		value := sl.Current().Interface().(AnswerValueRequest)
		hasOption := value.OptionID != ""
		hasText := value.Text != ""
		if hasOption == hasText {
			sl.ReportError(value, "value", "Value", "answer_value", "")
		}
	}, AnswerValueRequest{})
}

// ValidateAnswerForQuestion checks that the payload shape matches the
// question type: choice questions carry an option id, text questions text.
func (v *Validator) ValidateAnswerForQuestion(qType models.QuestionType, value AnswerValueRequest) ValidationErrors {
	var errors ValidationErrors

	if qType.IsChoiceBased() {
		if value.OptionID == "" {
			errors = append(errors, ValidationError{
				Field:   "value.option_id",
				Message: "is required for choice questions",
				Rule:    "answer_value",
			})
		}
	} else if value.Text == "" {
		errors = append(errors, ValidationError{
			Field:   "value.text",
			Message: "is required for text questions",
			Rule:    "answer_value",
		})
	}

	return errors
}
