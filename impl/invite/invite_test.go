package invite

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"aidmap/entity"
)

type fakeDB struct {
	users map[string]*entity.User // id -> user
}

func newFakeDB() *fakeDB {
	return &fakeDB{users: make(map[string]*entity.User)}
}

func (f *fakeDB) addUser(u *entity.User) { f.users[u.Id] = u }

func (f *fakeDB) GetUserById(id string) (*entity.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeDB) GetUserByReferralCode(code string) (*entity.User, error) {
	for _, u := range f.users {
		if u.ReferralCode == code {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) CountReferred(userId string) (int, error) {
	count := 0
	for _, u := range f.users {
		if u.ReferredById == userId {
			count++
		}
	}
	return count, nil
}

func (f *fakeDB) SetReferralCode(userId, code string, limit int) (bool, error) {
	for _, u := range f.users {
		if u.Id != userId && u.ReferralCode == code {
			return false, fmt.Errorf("duplicate key: %s", code)
		}
	}
	u, ok := f.users[userId]
	if !ok || u.ReferralCode != "" {
		return false, nil
	}
	u.ReferralCode = code
	u.InvitationLimit = limit
	return true, nil
}

func (f *fakeDB) ClaimInvite(code string) (*entity.User, error) {
	for _, u := range f.users {
		if u.ReferralCode == code && u.InvitesUsed < u.InvitationLimit {
			u.InvitesUsed++
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) ReleaseInvite(userId string) error {
	if u, ok := f.users[userId]; ok && u.InvitesUsed > 0 {
		u.InvitesUsed--
	}
	return nil
}

func newLedger(db Database) *Ledger {
	return New(db, 5, slog.New(slog.DiscardHandler))
}

func inviter(db *fakeDB, code string, limit, used int) *entity.User {
	u := &entity.User{
		Id:              "inviter-" + code,
		Email:           code + "@example.com",
		ReferralCode:    code,
		InvitationLimit: limit,
		InvitesUsed:     used,
	}
	db.addUser(u)
	return u
}

func referred(db *fakeDB, id, inviterId string) {
	db.addUser(&entity.User{Id: id, Email: id + "@example.com", ReferredById: inviterId})
}

func TestGenerateCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		if !strings.HasPrefix(code, CodePrefix) {
			t.Fatalf("code %q lacks prefix %q", code, CodePrefix)
		}
		suffix := strings.TrimPrefix(code, CodePrefix)
		if len(suffix) != 12 {
			t.Fatalf("code %q suffix length %d, want 12", code, len(suffix))
		}
		if suffix != strings.ToUpper(suffix) {
			t.Fatalf("code %q suffix not uppercase", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q in 100 draws", code)
		}
		seen[code] = true
	}
}

func TestValidateReasonOrder(t *testing.T) {
	db := newFakeDB()
	owner := inviter(db, "REFAAAA11112222", 5, 0)
	for i := 0; i < 5; i++ {
		referred(db, fmt.Sprintf("ref-%d", i), owner.Id)
	}
	ledger := newLedger(db)

	cases := []struct {
		name   string
		code   string
		valid  bool
		reason string
	}{
		{"empty", "", false, entity.ReasonEmptyCode},
		{"bad format", "XYZ123", false, entity.ReasonInvalidFormat},
		{"unknown", "REFDOESNOTEXIST", false, entity.ReasonInvalidCode},
		{"limit reached", "REFAAAA11112222", false, entity.ReasonLimitReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ledger.Validate(tc.code)
			if err != nil {
				t.Fatalf("Validate(%q) failed: %v", tc.code, err)
			}
			if got.Valid != tc.valid || got.Reason != tc.reason {
				t.Errorf("Validate(%q) = %+v, want valid=%v reason=%q", tc.code, got, tc.valid, tc.reason)
			}
		})
	}
}

func TestValidateBelowLimit(t *testing.T) {
	db := newFakeDB()
	owner := inviter(db, "REFBBBB11112222", 5, 0)
	for i := 0; i < 4; i++ {
		referred(db, fmt.Sprintf("ref-%d", i), owner.Id)
	}
	ledger := newLedger(db)

	got, err := ledger.Validate(owner.ReferralCode)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !got.Valid {
		t.Errorf("4 of 5 invites used, expected valid, got %+v", got)
	}
}

func TestConsumeOutcomes(t *testing.T) {
	db := newFakeDB()
	inviter(db, "REFFULL00000000", 2, 2)
	open := inviter(db, "REFOPEN00000000", 2, 1)
	ledger := newLedger(db)

	if _, err := ledger.Consume(""); !errors.Is(err, entity.ErrInviteRequired) {
		t.Errorf("empty code: got %v, want ErrInviteRequired", err)
	}
	if _, err := ledger.Consume("nope"); !errors.Is(err, entity.ErrInvalidInvite) {
		t.Errorf("bad format: got %v, want ErrInvalidInvite", err)
	}
	if _, err := ledger.Consume("REFUNKNOWN00000"); !errors.Is(err, entity.ErrInvalidInvite) {
		t.Errorf("unknown code: got %v, want ErrInvalidInvite", err)
	}
	if _, err := ledger.Consume("REFFULL00000000"); !errors.Is(err, entity.ErrInviteLimitReached) {
		t.Errorf("spent code: got %v, want ErrInviteLimitReached", err)
	}

	got, err := ledger.Consume("REFOPEN00000000")
	if err != nil {
		t.Fatalf("open code rejected: %v", err)
	}
	if got.Id != open.Id {
		t.Errorf("wrong inviter: got %s, want %s", got.Id, open.Id)
	}
	// the slot was the last one, a second consume must fail
	if _, err = ledger.Consume("REFOPEN00000000"); !errors.Is(err, entity.ErrInviteLimitReached) {
		t.Errorf("exhausted code: got %v, want ErrInviteLimitReached", err)
	}
}

func TestConsumeReleaseRestoresSlot(t *testing.T) {
	db := newFakeDB()
	owner := inviter(db, "REFCCCC11112222", 1, 0)
	ledger := newLedger(db)

	got, err := ledger.Consume(owner.ReferralCode)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	ledger.Release(got.Id)

	if _, err = ledger.Consume(owner.ReferralCode); err != nil {
		t.Errorf("slot not restored after release: %v", err)
	}
}

func TestEnsureCodeIdempotent(t *testing.T) {
	db := newFakeDB()
	user := &entity.User{Id: "u1", Email: "u1@example.com"}
	db.addUser(user)
	ledger := newLedger(db)

	first, err := ledger.EnsureCode(user)
	if err != nil {
		t.Fatalf("EnsureCode failed: %v", err)
	}
	if !strings.HasPrefix(first, CodePrefix) {
		t.Fatalf("generated code %q lacks prefix", first)
	}

	stored, _ := db.GetUserById("u1")
	if stored.InvitationLimit != 5 {
		t.Errorf("default limit not seeded: got %d, want 5", stored.InvitationLimit)
	}

	second, err := ledger.EnsureCode(stored)
	if err != nil {
		t.Fatalf("second EnsureCode failed: %v", err)
	}
	if second != first {
		t.Errorf("EnsureCode not idempotent: %q then %q", first, second)
	}
}
