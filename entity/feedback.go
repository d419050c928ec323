package entity

import (
	"net/http"
	"time"

	"aidmap/lib/validate"
)

type FeedbackType string

const (
	FeedbackSuggestion FeedbackType = "SUGGESTION"
	FeedbackBug        FeedbackType = "BUG"
	FeedbackOther      FeedbackType = "OTHER"
)

type Feedback struct {
	Id        string       `json:"id" bson:"_id"`
	UserId    string       `json:"user_id" bson:"user_id"`
	Title     string       `json:"title" bson:"title"`
	Content   string       `json:"content" bson:"content"`
	Type      FeedbackType `json:"type" bson:"type"`
	Status    string       `json:"status" bson:"status"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at"`
}

type FeedbackRequest struct {
	Title   string       `json:"title" validate:"required,min=3,max=100"`
	Content string       `json:"content" validate:"required,min=10,max=2000"`
	Type    FeedbackType `json:"type" validate:"omitempty,oneof=SUGGESTION BUG OTHER"`
}

func (f *FeedbackRequest) Bind(_ *http.Request) error {
	return validate.Struct(f)
}
