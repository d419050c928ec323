package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidmap/entity"
	"aidmap/impl/invite"
	"aidmap/lib/sl"
)

type Database interface {
	GetUserByToken(token string) (*entity.User, error)
	GetUserByEmail(email string) (*entity.User, error)
	CreateUser(user *entity.User) error
}

type Ledger interface {
	Consume(code string) (*entity.User, error)
	Release(inviterId string)
}

// Auth resolves API tokens and provisions new accounts. The invite check
// runs at signup only; an existing account signing back in never needs one.
type Auth struct {
	db             Database
	ledger         Ledger
	adminEmail     string
	adminLimit     int
	defaultLimit   int
	dailyPostLimit int
	log            *slog.Logger
}

func New(db Database, ledger Ledger, adminEmail string, adminLimit, defaultLimit, dailyPostLimit int, log *slog.Logger) *Auth {
	return &Auth{
		db:             db,
		ledger:         ledger,
		adminEmail:     adminEmail,
		adminLimit:     adminLimit,
		defaultLimit:   defaultLimit,
		dailyPostLimit: dailyPostLimit,
		log:            log.With(sl.Module("auth")),
	}
}

func (a *Auth) UserByToken(token string) (*entity.User, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	user, err := a.db.GetUserByToken(token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("token not found")
	}
	return user, nil
}

// Signup provisions an account. Existing identities are returned as-is; the
// bootstrap admin email bypasses the invite gate with an elevated limit;
// everyone else must present a consumable code. The claimed invite slot is
// released if the account insert fails, so the inviter's quota stays
// aligned with the accounts that exist.
func (a *Auth) Signup(req *entity.SignupRequest, now time.Time) (*entity.User, error) {
	existing, err := a.db.GetUserByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user := &entity.User{
		Id:             uuid.New().String(),
		Email:          req.Email,
		Name:           req.Name,
		Surname:        req.Surname,
		Token:          uuid.New().String(),
		ReferralCode:   invite.GenerateCode(),
		DailyPostLimit: a.dailyPostLimit,
		RegisteredAt:   now,
	}

	if a.adminEmail != "" && req.Email == a.adminEmail {
		user.IsAdmin = true
		user.InvitationLimit = a.adminLimit
		if err = a.db.CreateUser(user); err != nil {
			return nil, fmt.Errorf("create admin user: %w", err)
		}
		a.log.Info("bootstrap admin provisioned", sl.Secret("email", user.Email))
		return user, nil
	}

	inviter, err := a.ledger.Consume(req.InviteCode)
	if err != nil {
		return nil, err
	}
	user.ReferredById = inviter.Id
	user.InvitationLimit = a.defaultLimit

	if err = a.db.CreateUser(user); err != nil {
		a.ledger.Release(inviter.Id)
		return nil, fmt.Errorf("create user: %w", err)
	}
	a.log.Info("user provisioned",
		sl.Secret("email", user.Email),
		slog.String("referred_by", inviter.Id),
	)
	return user, nil
}
