package quota

import (
	"time"

	"aidmap/entity"
	"aidmap/lib/clock"
)

type Database interface {
	IncrementDailyPostCount(userId string, dayStart time.Time) (bool, error)
	DecrementDailyPostCount(userId string) error
}

// Tracker caps per-user listing creation per UTC calendar day. The check and
// the increment are one conditional store update, so two concurrent creates
// cannot both slip under the limit.
type Tracker struct {
	db Database
}

func New(db Database) *Tracker {
	return &Tracker{db: db}
}

// CheckAndIncrement takes one posting slot for the day of now. A stale
// last-reset date starts a fresh day at count 1. Returns QuotaExceededError
// when the user has no slot left.
func (t *Tracker) CheckAndIncrement(user *entity.User, now time.Time) error {
	allowed, err := t.db.IncrementDailyPostCount(user.Id, clock.DayStart(now))
	if err != nil {
		return err
	}
	if !allowed {
		return &entity.QuotaExceededError{Limit: user.DailyPostLimit}
	}
	return nil
}

// Release hands a slot back after the listing insert it was taken for
// failed, so the counter tracks listings that actually exist.
func (t *Tracker) Release(userId string) error {
	return t.db.DecrementDailyPostCount(userId)
}
