package entity

// Invite validation reasons, checked in order: an empty code wins over a bad
// format, a bad format over an unknown code, an unknown code over a spent one.
const (
	ReasonEmptyCode     = "EMPTY_CODE"
	ReasonInvalidFormat = "INVALID_FORMAT"
	ReasonInvalidCode   = "INVALID_CODE"
	ReasonLimitReached  = "LIMIT_REACHED"
)

// Signup failure outcomes, named after the routes the provisioning flow
// redirects to when an invite is missing or rejected.
const (
	SignupInviteRequired     = "invite-required"
	SignupInvalidInvite      = "invalid-invite"
	SignupInviteLimitReached = "invite-limit-reached"
)

// InviteValidation is the public answer to "can this code still be used".
type InviteValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// InviteStats is the inviter-facing view of their quota.
type InviteStats struct {
	ReferralCode     string `json:"referral_code"`
	InvitationLimit  int    `json:"invitation_limit"`
	ReferredCount    int    `json:"referred_count"`
	RemainingInvites int    `json:"remaining_invites"`
}
