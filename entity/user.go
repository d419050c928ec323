package entity

import (
	"net/http"
	"time"

	"aidmap/lib/validate"
)

// User is an account gated behind the referral graph. ReferredById points at
// the inviting user; the edges form a forest, never a cycle. InvitesUsed is
// the claim counter the store guards so two signups on the same
// nearly-exhausted code cannot both pass the limit check.
type User struct {
	Id                 string    `json:"id" bson:"_id"`
	Email              string    `json:"email" bson:"email"`
	Name               string    `json:"name" bson:"name"`
	Surname            string    `json:"surname,omitempty" bson:"surname,omitempty"`
	Token              string    `json:"-" bson:"token"`
	ReferralCode       string    `json:"referral_code,omitempty" bson:"referral_code,omitempty"`
	InvitationLimit    int       `json:"invitation_limit" bson:"invitation_limit"`
	InvitesUsed        int       `json:"-" bson:"invites_used"`
	ReferredById       string    `json:"referred_by_id,omitempty" bson:"referred_by_id,omitempty"`
	IsAdmin            bool      `json:"is_admin,omitempty" bson:"is_admin,omitempty"`
	DailyPostLimit     int       `json:"daily_post_limit" bson:"daily_post_limit"`
	DailyPostCount     int       `json:"daily_post_count" bson:"daily_post_count"`
	LastPostCountReset time.Time `json:"last_post_count_reset,omitempty" bson:"last_post_count_reset,omitempty"`
	RegisteredAt       time.Time `json:"registered_at" bson:"registered_at"`
}

func (u *User) HasReferralCode() bool {
	return u.ReferralCode != ""
}

// SignupRequest is the account provisioning payload. An invite code is
// required for every new identity except the configured bootstrap admin;
// existing accounts sign back in without one.
type SignupRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Surname    string `json:"surname" validate:"omitempty,max=100"`
	InviteCode string `json:"invite_code" validate:"omitempty"`
}

func (s *SignupRequest) Bind(_ *http.Request) error {
	return validate.Struct(s)
}

// Profile is the authenticated self-view, including invitation data the
// public user representation hides.
type Profile struct {
	Id              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Surname         string    `json:"surname,omitempty"`
	ReferralCode    string    `json:"referral_code"`
	InvitationLimit int       `json:"invitation_limit"`
	DailyPostLimit  int       `json:"daily_post_limit"`
	DailyPostCount  int       `json:"daily_post_count"`
	RegisteredAt    time.Time `json:"registered_at"`
}
