package lifecycle

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"aidmap/entity"
	"aidmap/lib/sl"
	"aidmap/lib/validate"
)

type Database interface {
	CreateNeedPost(post *entity.NeedPost) error
	UpdateNeedStatus(id, userId string, status entity.NeedStatus) (*entity.NeedPost, error)
	SweepExpiredNeeds(now time.Time) (int64, error)
	CompleteOffersForNeed(needPostId string) (int64, error)
	GetCategoryBySlug(slug string) (*entity.Category, error)
}

type Quota interface {
	CheckAndIncrement(user *entity.User, now time.Time) error
	Release(userId string) error
}

// Manager owns the time-boxed existence of need listings: creation with a
// caller-chosen duration, owner status transitions and the expiry sweep.
type Manager struct {
	db    Database
	quota Quota
	log   *slog.Logger
}

func New(db Database, quota Quota, log *slog.Logger) *Manager {
	return &Manager{
		db:    db,
		quota: quota,
		log:   log.With(sl.Module("lifecycle")),
	}
}

var (
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	usernamePattern = regexp.MustCompile(`^@?[a-zA-Z0-9_.]{1,30}$`)
)

var allowedDurations = map[int]bool{15: true, 30: true, 45: true, 60: true, 90: true}

// NormalizeContact checks the contact detail against the method-specific
// syntax and returns the stored form; instagram and telegram handles always
// carry a leading @.
func NormalizeContact(method entity.ContactMethod, detail string) (string, error) {
	if detail == "" {
		return "", fmt.Errorf("%w: contact detail is required", entity.ErrValidation)
	}
	switch method {
	case entity.ContactPhone:
		if !phonePattern.MatchString(detail) {
			return "", fmt.Errorf("%w: enter a valid phone number", entity.ErrValidation)
		}
	case entity.ContactEmail:
		if !validate.Email(detail) {
			return "", fmt.Errorf("%w: enter a valid email address", entity.ErrValidation)
		}
	case entity.ContactInstagram, entity.ContactTelegram:
		if !usernamePattern.MatchString(detail) {
			return "", fmt.Errorf("%w: enter a valid username", entity.ErrValidation)
		}
		if !strings.HasPrefix(detail, "@") {
			detail = "@" + detail
		}
	default:
		return "", fmt.Errorf("%w: unknown contact method", entity.ErrValidation)
	}
	return detail, nil
}

// Create validates the request, takes a daily quota slot and persists the
// listing as PENDING with expiresAt fixed from the chosen duration. A failed
// insert releases the quota slot so no half-created state survives.
func (m *Manager) Create(req *entity.NeedRequest, owner *entity.User, now time.Time) (*entity.NeedPost, error) {
	if !allowedDurations[req.DurationMinutes] {
		return nil, fmt.Errorf("%w: duration must be one of 15, 30, 45, 60, 90 minutes", entity.ErrValidation)
	}
	detail, err := NormalizeContact(req.ContactMethod, req.ContactDetail)
	if err != nil {
		return nil, err
	}

	category, err := m.db.GetCategoryBySlug(entity.DefaultCategorySlug)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("default category %q not found", entity.DefaultCategorySlug)
	}

	if err = m.quota.CheckAndIncrement(owner, now); err != nil {
		return nil, err
	}

	post := &entity.NeedPost{
		Id:            uuid.New().String(),
		UserId:        owner.Id,
		Title:         req.Title,
		Description:   req.Description,
		CategoryId:    category.Id,
		ContactMethod: req.ContactMethod,
		ContactDetail: detail,
		LocationLat:   req.LocationLat,
		LocationLng:   req.LocationLng,
		LocationName:  req.LocationName,
		IsUrgent:      req.IsUrgent,
		IsAnonymous:   req.IsAnonymous,
		Status:        entity.NeedPending,
		IsExpired:     false,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(req.DurationMinutes) * time.Minute),
	}
	if err = m.db.CreateNeedPost(post); err != nil {
		if relErr := m.quota.Release(owner.Id); relErr != nil {
			m.log.Error("release quota slot", slog.String("user", owner.Id), sl.Err(relErr))
		}
		return nil, fmt.Errorf("create need post: %w", err)
	}
	return post, nil
}

// Sweep marks every listing past its deadline as expired and returns how
// many rows it flipped. Safe to run repeatedly and concurrently: rows
// already expired are never matched again.
func (m *Manager) Sweep(now time.Time) (int64, error) {
	count, err := m.db.SweepExpiredNeeds(now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired needs: %w", err)
	}
	if count > 0 {
		m.log.Info("expired listings swept", slog.Int64("count", count))
	}
	return count, nil
}

// SetStatus applies an owner-driven transition. Any status may follow any
// other; only ownership is enforced. Completing a listing cascades its open
// offers to COMPLETED. The expiry flag is never touched here.
func (m *Manager) SetStatus(id, ownerId string, status entity.NeedStatus) (*entity.NeedPost, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrValidation, status)
	}
	post, err := m.db.UpdateNeedStatus(id, ownerId, status)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, entity.ErrNotFound
	}
	if status == entity.NeedCompleted {
		moved, err := m.db.CompleteOffersForNeed(id)
		if err != nil {
			m.log.Error("cascade offers to completed", slog.String("need", id), sl.Err(err))
		} else if moved > 0 {
			m.log.Debug("offers completed with listing", slog.String("need", id), slog.Int64("count", moved))
		}
	}
	return post, nil
}
