package entity

import (
	"net/http"
	"time"

	"aidmap/lib/validate"
)

// NeedStatus is the owner-driven lifecycle of a listing. Expiry is tracked
// separately on NeedPost.IsExpired: the sweep flips that flag regardless of
// status, so a COMPLETED listing can still be discovered expired.
type NeedStatus string

const (
	NeedPending    NeedStatus = "PENDING"
	NeedInProgress NeedStatus = "INPROGRESS"
	NeedCompleted  NeedStatus = "COMPLETED"
	NeedCanceled   NeedStatus = "CANCELED"
)

func (s NeedStatus) Valid() bool {
	switch s {
	case NeedPending, NeedInProgress, NeedCompleted, NeedCanceled:
		return true
	}
	return false
}

// IsActive reports whether a listing in this status still appears on the map.
func (s NeedStatus) IsActive() bool {
	return s == NeedPending || s == NeedInProgress
}

type ContactMethod string

const (
	ContactPhone     ContactMethod = "phone"
	ContactEmail     ContactMethod = "email"
	ContactInstagram ContactMethod = "instagram"
	ContactTelegram  ContactMethod = "telegram"
)

// NeedPost is a time-boxed aid request. ExpiresAt is fixed at creation from
// the caller-chosen duration; IsExpired only ever goes false -> true and is
// written exclusively by the sweep.
type NeedPost struct {
	Id            string        `json:"id" bson:"_id"`
	UserId        string        `json:"user_id" bson:"user_id"`
	Title         string        `json:"title" bson:"title"`
	Description   string        `json:"description" bson:"description"`
	CategoryId    string        `json:"category_id" bson:"category_id"`
	SubCategoryId string        `json:"sub_category_id,omitempty" bson:"sub_category_id,omitempty"`
	ContactMethod ContactMethod `json:"contact_method" bson:"contact_method"`
	ContactDetail string        `json:"contact_detail" bson:"contact_detail"`
	LocationLat   float64       `json:"location_lat" bson:"location_lat"`
	LocationLng   float64       `json:"location_lng" bson:"location_lng"`
	LocationName  string        `json:"location_name,omitempty" bson:"location_name,omitempty"`
	IsUrgent      bool          `json:"is_urgent" bson:"is_urgent"`
	IsAnonymous   bool          `json:"is_anonymous" bson:"is_anonymous"`
	Status        NeedStatus    `json:"status" bson:"status"`
	IsExpired     bool          `json:"is_expired" bson:"is_expired"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	ExpiresAt     time.Time     `json:"expires_at" bson:"expires_at"`
}

// NeedRequest is the submit payload. Contact detail syntax depends on the
// chosen method and is checked by the lifecycle service, not by tags.
type NeedRequest struct {
	Title           string        `json:"title" validate:"required,min=3,max=100"`
	Description     string        `json:"description" validate:"required,min=10,max=1000"`
	ContactMethod   ContactMethod `json:"contact_method" validate:"required,oneof=phone email instagram telegram"`
	ContactDetail   string        `json:"contact_detail" validate:"omitempty"`
	LocationLat     float64       `json:"location_lat" validate:"min=-90,max=90"`
	LocationLng     float64       `json:"location_lng" validate:"min=-180,max=180"`
	LocationName    string        `json:"location_name" validate:"omitempty,max=200"`
	DurationMinutes int           `json:"duration_minutes" validate:"required,oneof=15 30 45 60 90"`
	IsUrgent        bool          `json:"is_urgent"`
	IsAnonymous     bool          `json:"is_anonymous"`
}

func (n *NeedRequest) Bind(_ *http.Request) error {
	return validate.Struct(n)
}

// StatusRequest carries an owner-driven status transition.
type StatusRequest struct {
	Status NeedStatus `json:"status" validate:"required,oneof=PENDING INPROGRESS COMPLETED CANCELED"`
}

func (s *StatusRequest) Bind(_ *http.Request) error {
	return validate.Struct(s)
}

// NeedSummary is the map/list view of an active listing.
type NeedSummary struct {
	Id         string     `json:"id"`
	Title      string     `json:"title"`
	Status     NeedStatus `json:"status"`
	IsUrgent   bool       `json:"is_urgent"`
	CategoryId string     `json:"category_id"`
	Lat        float64    `json:"location_lat"`
	Lng        float64    `json:"location_lng"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

func (p *NeedPost) Summary() NeedSummary {
	return NeedSummary{
		Id:         p.Id,
		Title:      p.Title,
		Status:     p.Status,
		IsUrgent:   p.IsUrgent,
		CategoryId: p.CategoryId,
		Lat:        p.LocationLat,
		Lng:        p.LocationLng,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt,
	}
}

// NeedDetail is the full listing view. Contact fields are pointers so a
// redacted response serializes them as explicit nulls.
type NeedDetail struct {
	Id             string         `json:"id"`
	UserId         string         `json:"user_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	CategoryId     string         `json:"category_id"`
	SubCategoryId  string         `json:"sub_category_id,omitempty"`
	ContactMethod  *ContactMethod `json:"contact_method"`
	ContactDetail  *string        `json:"contact_detail"`
	LocationLat    float64        `json:"location_lat"`
	LocationLng    float64        `json:"location_lng"`
	LocationName   string         `json:"location_name,omitempty"`
	IsUrgent       bool           `json:"is_urgent"`
	IsAnonymous    bool           `json:"is_anonymous"`
	Status         NeedStatus     `json:"status"`
	IsExpired      bool           `json:"is_expired"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	ElapsedPercent float64        `json:"elapsed_percent"`
	OfferCount     int            `json:"offer_count"`
}

// Detail builds the full view; contact fields are dropped unless the caller
// may see them (owner, active offer on the listing, or a non-anonymous post).
func (p *NeedPost) Detail(withContact bool) NeedDetail {
	d := NeedDetail{
		Id:            p.Id,
		UserId:        p.UserId,
		Title:         p.Title,
		Description:   p.Description,
		CategoryId:    p.CategoryId,
		SubCategoryId: p.SubCategoryId,
		LocationLat:   p.LocationLat,
		LocationLng:   p.LocationLng,
		LocationName:  p.LocationName,
		IsUrgent:      p.IsUrgent,
		IsAnonymous:   p.IsAnonymous,
		Status:        p.Status,
		IsExpired:     p.IsExpired,
		CreatedAt:     p.CreatedAt,
		ExpiresAt:     p.ExpiresAt,
	}
	if withContact {
		method := p.ContactMethod
		detail := p.ContactDetail
		d.ContactMethod = &method
		d.ContactDetail = &detail
	}
	return d
}

// SweepResult is the response of the expiry sweep endpoint.
type SweepResult struct {
	MarkedAsExpired int64  `json:"marked_as_expired"`
	Timestamp       string `json:"timestamp"`
}
