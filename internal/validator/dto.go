package validator

// AnswerValueRequest is the wire form of an answer payload. Exactly one of
// OptionID or Text must be set.
type AnswerValueRequest struct {
	OptionID string `json:"option_id" validate:"omitempty,uuid"`
	Text     string `json:"text" validate:"omitempty,max=10000"`
}

// SaveAnswerRequest represents the autosave payload for one question
type SaveAnswerRequest struct {
	QuestionID string             `json:"question_id" validate:"required,uuid"`
	Value      AnswerValueRequest `json:"value"`
}

// ListAttemptsRequest filters the creator-facing attempt listing
type ListAttemptsRequest struct {
	CompletedOnly bool   `json:"completed_only" form:"completed_only"`
	Limit         int    `json:"limit" form:"limit" validate:"omitempty,min=1,max=200"`
	Offset        int    `json:"offset" form:"offset" validate:"omitempty,min=0"`
	SortBy        string `json:"sort_by" form:"sort_by" validate:"omitempty,oneof=created_at started_at score"`
	SortOrder     string `json:"sort_order" form:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
}
