package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"aidmap/entity"
)

type fakeDB struct {
	users      map[string]*entity.User // email -> user
	failCreate bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{users: make(map[string]*entity.User)}
}

func (f *fakeDB) GetUserByToken(token string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Token == token {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) GetUserByEmail(email string) (*entity.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, nil
}

func (f *fakeDB) CreateUser(user *entity.User) error {
	if f.failCreate {
		return fmt.Errorf("insert rejected")
	}
	f.users[user.Email] = user
	return nil
}

type fakeLedger struct {
	inviter  *entity.User
	err      error
	consumed int
	released []string
}

func (f *fakeLedger) Consume(code string) (*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.consumed++
	return f.inviter, nil
}

func (f *fakeLedger) Release(inviterId string) {
	f.released = append(f.released, inviterId)
}

func newAuth(db Database, ledger Ledger) *Auth {
	return New(db, ledger, "admin@example.com", 999, 5, 3, slog.New(slog.DiscardHandler))
}

func TestSignupExistingAccount(t *testing.T) {
	db := newFakeDB()
	existing := &entity.User{Id: "u1", Email: "old@example.com", Token: "tok"}
	db.users[existing.Email] = existing
	ledger := &fakeLedger{}
	auth := newAuth(db, ledger)

	got, err := auth.Signup(&entity.SignupRequest{Email: "old@example.com", Name: "Old"}, time.Now())
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if got.Id != "u1" {
		t.Errorf("expected the existing account back, got %s", got.Id)
	}
	if ledger.consumed != 0 {
		t.Error("returning account must not consume an invite")
	}
}

func TestSignupAdminBypassesInvite(t *testing.T) {
	db := newFakeDB()
	ledger := &fakeLedger{err: entity.ErrInviteRequired}
	auth := newAuth(db, ledger)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	got, err := auth.Signup(&entity.SignupRequest{Email: "admin@example.com", Name: "Root"}, now)
	if err != nil {
		t.Fatalf("admin signup failed: %v", err)
	}
	if !got.IsAdmin {
		t.Error("bootstrap admin not flagged")
	}
	if got.InvitationLimit != 999 {
		t.Errorf("admin invitation limit = %d, want 999", got.InvitationLimit)
	}
	if got.Token == "" || got.ReferralCode == "" {
		t.Error("admin missing token or referral code")
	}
	if !got.RegisteredAt.Equal(now) {
		t.Errorf("registered_at = %v, want %v", got.RegisteredAt, now)
	}
}

func TestSignupWithInvite(t *testing.T) {
	db := newFakeDB()
	ledger := &fakeLedger{inviter: &entity.User{Id: "inviter-1"}}
	auth := newAuth(db, ledger)

	got, err := auth.Signup(&entity.SignupRequest{
		Email:      "new@example.com",
		Name:       "New",
		InviteCode: "REF0123456789AB",
	}, time.Now())
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if got.ReferredById != "inviter-1" {
		t.Errorf("referred_by = %q, want inviter-1", got.ReferredById)
	}
	if got.InvitationLimit != 5 {
		t.Errorf("invitation limit = %d, want default 5", got.InvitationLimit)
	}
	if got.DailyPostLimit != 3 {
		t.Errorf("daily post limit = %d, want 3", got.DailyPostLimit)
	}
	if got.IsAdmin {
		t.Error("invited user flagged admin")
	}
}

func TestSignupInviteRejected(t *testing.T) {
	for _, want := range []error{entity.ErrInviteRequired, entity.ErrInvalidInvite, entity.ErrInviteLimitReached} {
		db := newFakeDB()
		auth := newAuth(db, &fakeLedger{err: want})

		_, err := auth.Signup(&entity.SignupRequest{Email: "new@example.com", Name: "New"}, time.Now())
		if !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
		if len(db.users) != 0 {
			t.Errorf("rejected signup created an account")
		}
	}
}

func TestSignupReleasesInviteOnFailedInsert(t *testing.T) {
	db := newFakeDB()
	db.failCreate = true
	ledger := &fakeLedger{inviter: &entity.User{Id: "inviter-1"}}
	auth := newAuth(db, ledger)

	_, err := auth.Signup(&entity.SignupRequest{
		Email:      "new@example.com",
		Name:       "New",
		InviteCode: "REF0123456789AB",
	}, time.Now())
	if err == nil {
		t.Fatal("expected insert failure to surface")
	}
	if len(ledger.released) != 1 || ledger.released[0] != "inviter-1" {
		t.Errorf("claimed slot not released, got %v", ledger.released)
	}
}

func TestUserByToken(t *testing.T) {
	db := newFakeDB()
	db.users["a@example.com"] = &entity.User{Id: "u1", Email: "a@example.com", Token: "tok-1"}
	auth := newAuth(db, &fakeLedger{})

	got, err := auth.UserByToken("tok-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.Id != "u1" {
		t.Errorf("got %s, want u1", got.Id)
	}
	if _, err = auth.UserByToken("missing"); err == nil {
		t.Error("unknown token accepted")
	}
}
