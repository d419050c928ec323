package entity

import (
	"net/http"
	"time"

	"aidmap/lib/validate"
)

// HelpOffer links a responder to a listing. At most one offer per
// (user, listing) pair; offers still PENDING or INPROGRESS are bulk-moved to
// COMPLETED when the parent listing completes.
type HelpOffer struct {
	Id         string     `json:"id" bson:"_id"`
	NeedPostId string     `json:"need_post_id" bson:"need_post_id"`
	UserId     string     `json:"user_id" bson:"user_id"`
	Message    string     `json:"message" bson:"message"`
	Status     NeedStatus `json:"status" bson:"status"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

type OfferRequest struct {
	Message string `json:"message" validate:"required,min=5,max=500"`
}

func (o *OfferRequest) Bind(_ *http.Request) error {
	return validate.Struct(o)
}
