package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidmap/entity"
	"aidmap/lib/clock"
	"aidmap/lib/sl"
)

type Database interface {
	GetNeedPost(id string) (*entity.NeedPost, error)
	ListActiveNeeds() ([]*entity.NeedPost, error)
	ListUserNeeds(userId string) ([]*entity.NeedPost, error)
	FindHelpOffer(needPostId, userId string) (*entity.HelpOffer, error)
	CreateHelpOffer(offer *entity.HelpOffer) error
	ListUserOffers(userId string) ([]*entity.HelpOffer, error)
	CountOffersForNeed(needPostId string) (int, error)
	CreateFeedback(feedback *entity.Feedback) error
	ListUserFeedback(userId string) ([]*entity.Feedback, error)
}

type AuthService interface {
	UserByToken(token string) (*entity.User, error)
	Signup(req *entity.SignupRequest, now time.Time) (*entity.User, error)
}

type LifecycleService interface {
	Create(req *entity.NeedRequest, owner *entity.User, now time.Time) (*entity.NeedPost, error)
	Sweep(now time.Time) (int64, error)
	SetStatus(id, ownerId string, status entity.NeedStatus) (*entity.NeedPost, error)
}

type InviteService interface {
	Validate(code string) (entity.InviteValidation, error)
	EnsureCode(user *entity.User) (string, error)
	Stats(user *entity.User) (entity.InviteStats, error)
}

type Notifier interface {
	NotifyUrgentNeed(title, id string)
}

// Core is the composition root the HTTP layer talks to. It wires the invite
// ledger, the listing lifecycle and the store behind the operations the API
// exposes.
type Core struct {
	db        Database
	auth      AuthService
	lifecycle LifecycleService
	invites   InviteService
	notifier  Notifier
	log       *slog.Logger
	now       func() time.Time
}

func New(db Database, auth AuthService, lifecycle LifecycleService, invites InviteService, notifier Notifier, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	return &Core{
		db:        db,
		auth:      auth,
		lifecycle: lifecycle,
		invites:   invites,
		notifier:  notifier,
		log:       log.With(sl.Module("core")),
		now:       time.Now,
	}
}

func (c *Core) AuthenticateByToken(token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.UserByToken(token)
}

func (c *Core) Signup(req *entity.SignupRequest) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.Signup(req, c.now())
}

// SubmitNeed creates a listing for the caller and notifies the admin chat
// when it is urgent.
func (c *Core) SubmitNeed(req *entity.NeedRequest, owner *entity.User) (*entity.NeedPost, error) {
	post, err := c.lifecycle.Create(req, owner, c.now())
	if err != nil {
		return nil, err
	}
	if post.IsUrgent && c.notifier != nil {
		c.notifier.NotifyUrgentNeed(post.Title, post.Id)
	}
	return post, nil
}

// ListActiveNeeds returns map summaries of listings that are PENDING or
// INPROGRESS and not yet swept expired, newest first.
func (c *Core) ListActiveNeeds() ([]entity.NeedSummary, error) {
	posts, err := c.db.ListActiveNeeds()
	if err != nil {
		return nil, err
	}
	summaries := make([]entity.NeedSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, p.Summary())
	}
	return summaries, nil
}

// NeedDetail returns the full listing view. Contact fields stay in the
// response only when the listing is not anonymous, or the caller owns it,
// or the caller has an offer on it; otherwise they are redacted to null.
// Anonymous callers pass a user with an empty Id.
func (c *Core) NeedDetail(id string, caller *entity.User) (*entity.NeedDetail, error) {
	post, err := c.db.GetNeedPost(id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, entity.ErrNotFound
	}

	withContact := !post.IsAnonymous
	if !withContact && caller.Id != "" {
		if caller.Id == post.UserId {
			withContact = true
		} else {
			offer, err := c.db.FindHelpOffer(id, caller.Id)
			if err != nil {
				return nil, err
			}
			withContact = offer != nil
		}
	}

	detail := post.Detail(withContact)
	detail.ElapsedPercent = clock.ElapsedPercent(post.CreatedAt, post.ExpiresAt, c.now())
	count, err := c.db.CountOffersForNeed(id)
	if err != nil {
		return nil, err
	}
	detail.OfferCount = count
	return &detail, nil
}

func (c *Core) MyNeeds(user *entity.User) ([]*entity.NeedPost, error) {
	return c.db.ListUserNeeds(user.Id)
}

func (c *Core) UpdateNeedStatus(id string, user *entity.User, status entity.NeedStatus) (*entity.NeedPost, error) {
	return c.lifecycle.SetStatus(id, user.Id, status)
}

// SubmitHelpOffer records a response to a listing. One active offer per
// (user, listing); a second attempt is rejected.
func (c *Core) SubmitHelpOffer(needPostId string, user *entity.User, message string) (*entity.HelpOffer, error) {
	post, err := c.db.GetNeedPost(needPostId)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, entity.ErrNotFound
	}

	existing, err := c.db.FindHelpOffer(needPostId, user.Id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, entity.ErrDuplicateOffer
	}

	offer := &entity.HelpOffer{
		Id:         uuid.New().String(),
		NeedPostId: needPostId,
		UserId:     user.Id,
		Message:    message,
		Status:     entity.NeedPending,
		CreatedAt:  c.now(),
	}
	if err = c.db.CreateHelpOffer(offer); err != nil {
		return nil, fmt.Errorf("create help offer: %w", err)
	}
	return offer, nil
}

func (c *Core) MyOffers(user *entity.User) ([]*entity.HelpOffer, error) {
	return c.db.ListUserOffers(user.Id)
}

// SweepExpiredNeeds runs one expiry pass; invoked by the external scheduler
// through the privileged cron endpoint.
func (c *Core) SweepExpiredNeeds() (entity.SweepResult, error) {
	count, err := c.lifecycle.Sweep(c.now())
	if err != nil {
		return entity.SweepResult{}, err
	}
	return entity.SweepResult{
		MarkedAsExpired: count,
		Timestamp:       clock.Now(),
	}, nil
}

func (c *Core) ValidateInviteCode(code string) (entity.InviteValidation, error) {
	return c.invites.Validate(code)
}

func (c *Core) InvitationStats(user *entity.User) (entity.InviteStats, error) {
	return c.invites.Stats(user)
}

// Profile returns the caller's own view, lazily assigning a referral code
// on first read.
func (c *Core) Profile(user *entity.User) (entity.Profile, error) {
	code, err := c.invites.EnsureCode(user)
	if err != nil {
		return entity.Profile{}, err
	}
	return entity.Profile{
		Id:              user.Id,
		Email:           user.Email,
		Name:            user.Name,
		Surname:         user.Surname,
		ReferralCode:    code,
		InvitationLimit: user.InvitationLimit,
		DailyPostLimit:  user.DailyPostLimit,
		DailyPostCount:  user.DailyPostCount,
		RegisteredAt:    user.RegisteredAt,
	}, nil
}

func (c *Core) SubmitFeedback(req *entity.FeedbackRequest, user *entity.User) (*entity.Feedback, error) {
	feedbackType := req.Type
	if feedbackType == "" {
		feedbackType = entity.FeedbackSuggestion
	}
	feedback := &entity.Feedback{
		Id:        uuid.New().String(),
		UserId:    user.Id,
		Title:     req.Title,
		Content:   req.Content,
		Type:      feedbackType,
		Status:    "PENDING",
		CreatedAt: c.now(),
	}
	if err := c.db.CreateFeedback(feedback); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return feedback, nil
}

func (c *Core) MyFeedback(user *entity.User) ([]*entity.Feedback, error) {
	return c.db.ListUserFeedback(user.Id)
}
