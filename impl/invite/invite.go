package invite

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"aidmap/entity"
	"aidmap/lib/sl"
)

// CodePrefix is the fixed leading part of every referral code; anything not
// starting with it is rejected before the store is consulted.
const CodePrefix = "REF"

const codeRandomBytes = 6

type Database interface {
	GetUserById(id string) (*entity.User, error)
	GetUserByReferralCode(code string) (*entity.User, error)
	CountReferred(userId string) (int, error)
	SetReferralCode(userId, code string, limit int) (bool, error)
	ClaimInvite(code string) (*entity.User, error)
	ReleaseInvite(userId string) error
}

// Ledger gates account creation behind the capacity-limited referral graph.
type Ledger struct {
	db           Database
	defaultLimit int
	log          *slog.Logger
}

func New(db Database, defaultLimit int, log *slog.Logger) *Ledger {
	return &Ledger{
		db:           db,
		defaultLimit: defaultLimit,
		log:          log.With(sl.Module("invite.ledger")),
	}
}

// GenerateCode produces a new referral code: the fixed prefix plus 6 random
// bytes as uppercase hex. Uniqueness is practically guaranteed by the
// randomness; the store's unique index catches the freak collision and the
// persisting callers retry once.
func GenerateCode() string {
	buf := make([]byte, codeRandomBytes)
	_, _ = rand.Read(buf)
	return CodePrefix + strings.ToUpper(hex.EncodeToString(buf))
}

// EnsureCode lazily assigns a referral code, seeding the default invitation
// limit when unset. Idempotent: an existing code is returned untouched.
func (l *Ledger) EnsureCode(user *entity.User) (string, error) {
	if user.HasReferralCode() {
		return user.ReferralCode, nil
	}
	limit := user.InvitationLimit
	if limit == 0 {
		limit = l.defaultLimit
	}
	code := GenerateCode()
	assigned, err := l.db.SetReferralCode(user.Id, code, limit)
	if err != nil {
		// collision with another user's code, one retry with fresh randomness
		code = GenerateCode()
		assigned, err = l.db.SetReferralCode(user.Id, code, limit)
		if err != nil {
			return "", fmt.Errorf("assign referral code: %w", err)
		}
	}
	if !assigned {
		// another request won the lazy generation, use its result
		fresh, err := l.db.GetUserById(user.Id)
		if err != nil {
			return "", err
		}
		if fresh == nil {
			return "", entity.ErrNotFound
		}
		return fresh.ReferralCode, nil
	}
	user.ReferralCode = code
	user.InvitationLimit = limit
	return code, nil
}

// Validate answers whether a candidate code can admit one more signup.
// Checks run in order: empty, format, existence, remaining capacity.
func (l *Ledger) Validate(code string) (entity.InviteValidation, error) {
	if code == "" {
		return entity.InviteValidation{Valid: false, Reason: entity.ReasonEmptyCode}, nil
	}
	if !strings.HasPrefix(code, CodePrefix) {
		return entity.InviteValidation{Valid: false, Reason: entity.ReasonInvalidFormat}, nil
	}
	inviter, err := l.db.GetUserByReferralCode(code)
	if err != nil {
		return entity.InviteValidation{}, err
	}
	if inviter == nil {
		return entity.InviteValidation{Valid: false, Reason: entity.ReasonInvalidCode}, nil
	}
	limit := inviter.InvitationLimit
	if limit == 0 {
		limit = l.defaultLimit
	}
	referred, err := l.db.CountReferred(inviter.Id)
	if err != nil {
		return entity.InviteValidation{}, err
	}
	if referred >= limit {
		return entity.InviteValidation{Valid: false, Reason: entity.ReasonLimitReached}, nil
	}
	return entity.InviteValidation{Valid: true}, nil
}

// Consume claims one invitation slot for a brand-new signup and returns the
// inviter. The claim is a single guarded update on the inviter's document,
// so concurrent signups racing for the last slot cannot both succeed. On
// failure the error names the signup outcome: invite-required,
// invalid-invite or invite-limit-reached.
func (l *Ledger) Consume(code string) (*entity.User, error) {
	if code == "" {
		return nil, entity.ErrInviteRequired
	}
	if !strings.HasPrefix(code, CodePrefix) {
		return nil, entity.ErrInvalidInvite
	}
	inviter, err := l.db.ClaimInvite(code)
	if err != nil {
		return nil, err
	}
	if inviter != nil {
		return inviter, nil
	}
	// no slot claimed: either the code is unknown or its owner is out of
	// capacity
	owner, err := l.db.GetUserByReferralCode(code)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, entity.ErrInvalidInvite
	}
	return nil, entity.ErrInviteLimitReached
}

// Release returns a claimed slot when the signup that took it failed.
func (l *Ledger) Release(inviterId string) {
	if err := l.db.ReleaseInvite(inviterId); err != nil {
		l.log.Error("release invite slot", slog.String("inviter", inviterId), sl.Err(err))
	}
}

// Stats reports the inviter-facing quota view, generating a code first if
// the user has none yet.
func (l *Ledger) Stats(user *entity.User) (entity.InviteStats, error) {
	code, err := l.EnsureCode(user)
	if err != nil {
		return entity.InviteStats{}, err
	}
	limit := user.InvitationLimit
	if limit == 0 {
		limit = l.defaultLimit
	}
	referred, err := l.db.CountReferred(user.Id)
	if err != nil {
		return entity.InviteStats{}, err
	}
	return entity.InviteStats{
		ReferralCode:     code,
		InvitationLimit:  limit,
		ReferredCount:    referred,
		RemainingInvites: limit - referred,
	}, nil
}
