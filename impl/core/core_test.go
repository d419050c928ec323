package core

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"aidmap/entity"
	"aidmap/impl/auth"
	"aidmap/impl/invite"
	"aidmap/impl/lifecycle"
	"aidmap/impl/quota"
)

// fakeStore backs every service interface in one in-memory map set, so the
// tests exercise the real service composition end to end.
type fakeStore struct {
	users    map[string]*entity.User // id -> user
	posts    map[string]*entity.NeedPost
	offers   []*entity.HelpOffer
	feedback []*entity.Feedback
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*entity.User),
		posts: make(map[string]*entity.NeedPost),
	}
}

func (f *fakeStore) GetUserById(id string) (*entity.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, nil
}

func (f *fakeStore) GetUserByEmail(email string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetUserByToken(token string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Token == token {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetUserByReferralCode(code string) (*entity.User, error) {
	for _, u := range f.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateUser(user *entity.User) error {
	f.users[user.Id] = user
	return nil
}

func (f *fakeStore) CountReferred(userId string) (int, error) {
	count := 0
	for _, u := range f.users {
		if u.ReferredById == userId {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) SetReferralCode(userId, code string, limit int) (bool, error) {
	u, ok := f.users[userId]
	if !ok || u.ReferralCode != "" {
		return false, nil
	}
	u.ReferralCode = code
	u.InvitationLimit = limit
	return true, nil
}

func (f *fakeStore) ClaimInvite(code string) (*entity.User, error) {
	for _, u := range f.users {
		if u.ReferralCode == code && u.InvitesUsed < u.InvitationLimit {
			u.InvitesUsed++
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ReleaseInvite(userId string) error {
	if u, ok := f.users[userId]; ok && u.InvitesUsed > 0 {
		u.InvitesUsed--
	}
	return nil
}

func (f *fakeStore) IncrementDailyPostCount(userId string, dayStart time.Time) (bool, error) {
	u, ok := f.users[userId]
	if !ok {
		return false, nil
	}
	if u.LastPostCountReset.Before(dayStart) {
		u.DailyPostCount = 1
		u.LastPostCountReset = dayStart
		return true, nil
	}
	if u.DailyPostCount < u.DailyPostLimit {
		u.DailyPostCount++
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) DecrementDailyPostCount(userId string) error {
	if u, ok := f.users[userId]; ok && u.DailyPostCount > 0 {
		u.DailyPostCount--
	}
	return nil
}

func (f *fakeStore) CreateNeedPost(post *entity.NeedPost) error {
	f.posts[post.Id] = post
	return nil
}

func (f *fakeStore) GetNeedPost(id string) (*entity.NeedPost, error) {
	if p, ok := f.posts[id]; ok {
		return p, nil
	}
	return nil, nil
}

func (f *fakeStore) ListActiveNeeds() ([]*entity.NeedPost, error) {
	var out []*entity.NeedPost
	for _, p := range f.posts {
		if p.Status.IsActive() && !p.IsExpired {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListUserNeeds(userId string) ([]*entity.NeedPost, error) {
	var out []*entity.NeedPost
	for _, p := range f.posts {
		if p.UserId == userId {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateNeedStatus(id, userId string, status entity.NeedStatus) (*entity.NeedPost, error) {
	p, ok := f.posts[id]
	if !ok || p.UserId != userId {
		return nil, nil
	}
	p.Status = status
	return p, nil
}

func (f *fakeStore) SweepExpiredNeeds(now time.Time) (int64, error) {
	var flipped int64
	for _, p := range f.posts {
		if !p.IsExpired && p.ExpiresAt.Before(now) {
			p.IsExpired = true
			flipped++
		}
	}
	return flipped, nil
}

func (f *fakeStore) CreateHelpOffer(offer *entity.HelpOffer) error {
	f.offers = append(f.offers, offer)
	return nil
}

func (f *fakeStore) FindHelpOffer(needPostId, userId string) (*entity.HelpOffer, error) {
	for _, o := range f.offers {
		if o.NeedPostId == needPostId && o.UserId == userId {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListUserOffers(userId string) ([]*entity.HelpOffer, error) {
	var out []*entity.HelpOffer
	for _, o := range f.offers {
		if o.UserId == userId {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) CountOffersForNeed(needPostId string) (int, error) {
	count := 0
	for _, o := range f.offers {
		if o.NeedPostId == needPostId {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CompleteOffersForNeed(needPostId string) (int64, error) {
	var moved int64
	for _, o := range f.offers {
		if o.NeedPostId == needPostId && o.Status.IsActive() {
			o.Status = entity.NeedCompleted
			moved++
		}
	}
	return moved, nil
}

func (f *fakeStore) GetCategoryBySlug(slug string) (*entity.Category, error) {
	return &entity.Category{Id: "cat-" + slug, Slug: slug, Name: slug}, nil
}

func (f *fakeStore) CreateFeedback(feedback *entity.Feedback) error {
	f.feedback = append(f.feedback, feedback)
	return nil
}

func (f *fakeStore) ListUserFeedback(userId string) ([]*entity.Feedback, error) {
	var out []*entity.Feedback
	for _, fb := range f.feedback {
		if fb.UserId == userId {
			out = append(out, fb)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	urgent []string
}

func (f *fakeNotifier) NotifyUrgentNeed(_, id string) {
	f.urgent = append(f.urgent, id)
}

// testCore wires the real services over the shared fake store and pins the
// clock to the returned setter.
func testCore(store *fakeStore, notifier Notifier) (*Core, func(time.Time)) {
	log := slog.New(slog.DiscardHandler)
	ledger := invite.New(store, 5, log)
	tracker := quota.New(store)
	manager := lifecycle.New(store, tracker, log)
	authService := auth.New(store, ledger, "admin@example.com", 999, 5, 3, log)

	c := New(store, authService, manager, ledger, notifier, log)
	moment := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return moment }
	return c, func(t time.Time) { moment = t }
}

func addUser(store *fakeStore, id string) *entity.User {
	u := &entity.User{
		Id:             id,
		Email:          id + "@example.com",
		Name:           id,
		Token:          "tok-" + id,
		DailyPostLimit: 3,
	}
	store.users[id] = u
	return u
}

func needRequest(minutes int) *entity.NeedRequest {
	return &entity.NeedRequest{
		Title:           "Need a phone charger",
		Description:     "Battery died, stuck at the station for another hour",
		ContactMethod:   entity.ContactPhone,
		ContactDetail:   "+995551234567",
		LocationLat:     41.72,
		LocationLng:     44.78,
		DurationMinutes: minutes,
	}
}

func TestNeedLifecycleEndToEnd(t *testing.T) {
	store := newFakeStore()
	c, setNow := testCore(store, nil)
	owner := addUser(store, "owner")
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	setNow(t0)

	post, err := c.SubmitNeed(needRequest(15), owner)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	active, err := c.ListActiveNeeds()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 1 || active[0].Id != post.Id {
		t.Fatalf("fresh listing not on the map: %v", active)
	}

	// one minute before the deadline the listing is near the end of its life
	setNow(t0.Add(14 * time.Minute))
	detail, err := c.NeedDetail(post.Id, &entity.User{})
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.ElapsedPercent < 93 || detail.ElapsedPercent > 94 {
		t.Errorf("elapsed at 14 of 15 minutes = %v, want about 93.3", detail.ElapsedPercent)
	}
	if detail.IsExpired {
		t.Error("listing expired before its deadline")
	}

	setNow(t0.Add(16 * time.Minute))
	result, err := c.SweepExpiredNeeds()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.MarkedAsExpired != 1 {
		t.Errorf("first sweep marked %d, want 1", result.MarkedAsExpired)
	}
	if result.Timestamp == "" {
		t.Error("sweep result missing timestamp")
	}

	again, err := c.SweepExpiredNeeds()
	if err != nil {
		t.Fatalf("repeated sweep failed: %v", err)
	}
	if again.MarkedAsExpired != 0 {
		t.Errorf("repeated sweep marked %d, want 0", again.MarkedAsExpired)
	}

	active, err = c.ListActiveNeeds()
	if err != nil {
		t.Fatalf("list after sweep failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expired listing still on the map: %v", active)
	}

	detail, err = c.NeedDetail(post.Id, &entity.User{})
	if err != nil {
		t.Fatalf("detail after sweep failed: %v", err)
	}
	if !detail.IsExpired || detail.ElapsedPercent != 100 {
		t.Errorf("swept listing: expired=%v elapsed=%v, want true and 100", detail.IsExpired, detail.ElapsedPercent)
	}
}

func TestSubmitNeedUrgentNotification(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	c, _ := testCore(store, notifier)
	owner := addUser(store, "owner")

	req := needRequest(30)
	req.IsUrgent = true
	post, err := c.SubmitNeed(req, owner)
	if err != nil {
		t.Fatalf("urgent submit failed: %v", err)
	}
	if len(notifier.urgent) != 1 || notifier.urgent[0] != post.Id {
		t.Errorf("urgent listing not announced, got %v", notifier.urgent)
	}

	if _, err = c.SubmitNeed(needRequest(30), owner); err != nil {
		t.Fatalf("plain submit failed: %v", err)
	}
	if len(notifier.urgent) != 1 {
		t.Error("non-urgent listing announced")
	}
}

func TestDailyQuotaAcrossDays(t *testing.T) {
	store := newFakeStore()
	c, setNow := testCore(store, nil)
	owner := addUser(store, "owner")
	day1 := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	setNow(day1)

	for i := 0; i < 3; i++ {
		if _, err := c.SubmitNeed(needRequest(30), owner); err != nil {
			t.Fatalf("post %d of 3 rejected: %v", i+1, err)
		}
	}
	_, err := c.SubmitNeed(needRequest(30), owner)
	var quotaErr *entity.QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("fourth post of the day: got %v, want QuotaExceededError", err)
	}
	if quotaErr.Limit != 3 {
		t.Errorf("reported limit = %d, want 3", quotaErr.Limit)
	}

	setNow(day1.Add(24 * time.Hour))
	if _, err = c.SubmitNeed(needRequest(30), owner); err != nil {
		t.Errorf("next day post rejected: %v", err)
	}
}

func TestContactRedaction(t *testing.T) {
	store := newFakeStore()
	c, _ := testCore(store, nil)
	owner := addUser(store, "owner")
	helper := addUser(store, "helper")
	stranger := addUser(store, "stranger")

	req := needRequest(30)
	req.IsAnonymous = true
	post, err := c.SubmitNeed(req, owner)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err = c.SubmitHelpOffer(post.Id, helper, "I have a spare charger with me"); err != nil {
		t.Fatalf("offer failed: %v", err)
	}

	cases := []struct {
		name    string
		caller  *entity.User
		visible bool
	}{
		{"anonymous caller", &entity.User{}, false},
		{"stranger", stranger, false},
		{"owner", owner, true},
		{"caller with offer", helper, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			detail, err := c.NeedDetail(post.Id, tc.caller)
			if err != nil {
				t.Fatalf("detail failed: %v", err)
			}
			got := detail.ContactDetail != nil && detail.ContactMethod != nil
			if got != tc.visible {
				t.Errorf("contact visible = %v, want %v", got, tc.visible)
			}
			if tc.visible && *detail.ContactDetail != "+995551234567" {
				t.Errorf("contact detail = %q", *detail.ContactDetail)
			}
		})
	}

	// a non-anonymous listing shows its contact to everyone
	plain, err := c.SubmitNeed(needRequest(30), owner)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	detail, err := c.NeedDetail(plain.Id, &entity.User{})
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.ContactDetail == nil {
		t.Error("non-anonymous listing redacted for anonymous caller")
	}
}

func TestSubmitHelpOfferRules(t *testing.T) {
	store := newFakeStore()
	c, _ := testCore(store, nil)
	owner := addUser(store, "owner")
	helper := addUser(store, "helper")

	post, err := c.SubmitNeed(needRequest(30), owner)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err = c.SubmitHelpOffer("missing", helper, "happy to help out here"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("offer on missing listing: got %v, want ErrNotFound", err)
	}

	offer, err := c.SubmitHelpOffer(post.Id, helper, "happy to help out here")
	if err != nil {
		t.Fatalf("first offer failed: %v", err)
	}
	if offer.Status != entity.NeedPending {
		t.Errorf("new offer status = %s, want PENDING", offer.Status)
	}

	if _, err = c.SubmitHelpOffer(post.Id, helper, "me again"); !errors.Is(err, entity.ErrDuplicateOffer) {
		t.Errorf("second offer: got %v, want ErrDuplicateOffer", err)
	}

	detail, err := c.NeedDetail(post.Id, owner)
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.OfferCount != 1 {
		t.Errorf("offer count = %d, want 1", detail.OfferCount)
	}
}

func TestCompletedListingStaysOffMapAndCascades(t *testing.T) {
	store := newFakeStore()
	c, _ := testCore(store, nil)
	owner := addUser(store, "owner")
	helper := addUser(store, "helper")

	post, err := c.SubmitNeed(needRequest(30), owner)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err = c.SubmitHelpOffer(post.Id, helper, "on my way with the charger"); err != nil {
		t.Fatalf("offer failed: %v", err)
	}

	if _, err = c.UpdateNeedStatus(post.Id, owner, entity.NeedCompleted); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	active, err := c.ListActiveNeeds()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("completed listing still on the map: %v", active)
	}

	offers, err := c.MyOffers(helper)
	if err != nil {
		t.Fatalf("my offers failed: %v", err)
	}
	if len(offers) != 1 || offers[0].Status != entity.NeedCompleted {
		t.Errorf("offer not cascaded to COMPLETED: %v", offers)
	}
}

func TestSignupFlowThroughCore(t *testing.T) {
	store := newFakeStore()
	c, _ := testCore(store, nil)

	admin, err := c.Signup(&entity.SignupRequest{Email: "admin@example.com", Name: "Root"})
	if err != nil {
		t.Fatalf("admin signup failed: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatal("bootstrap admin not flagged")
	}

	invited, err := c.Signup(&entity.SignupRequest{
		Email:      "friend@example.com",
		Name:       "Friend",
		InviteCode: admin.ReferralCode,
	})
	if err != nil {
		t.Fatalf("invited signup failed: %v", err)
	}
	if invited.ReferredById != admin.Id {
		t.Errorf("referred_by = %q, want %q", invited.ReferredById, admin.Id)
	}

	if _, err = c.Signup(&entity.SignupRequest{Email: "lone@example.com", Name: "Lone"}); !errors.Is(err, entity.ErrInviteRequired) {
		t.Errorf("codeless signup: got %v, want ErrInviteRequired", err)
	}

	resolved, err := c.AuthenticateByToken(invited.Token)
	if err != nil {
		t.Fatalf("token lookup failed: %v", err)
	}
	if resolved.Id != invited.Id {
		t.Errorf("token resolved to %s, want %s", resolved.Id, invited.Id)
	}
}

func TestInviteValidationAndStats(t *testing.T) {
	store := newFakeStore()
	c, _ := testCore(store, nil)

	admin, err := c.Signup(&entity.SignupRequest{Email: "admin@example.com", Name: "Root"})
	if err != nil {
		t.Fatalf("admin signup failed: %v", err)
	}

	check, err := c.ValidateInviteCode(admin.ReferralCode)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !check.Valid {
		t.Errorf("fresh admin code invalid: %+v", check)
	}

	if _, err = c.Signup(&entity.SignupRequest{
		Email:      "friend@example.com",
		Name:       "Friend",
		InviteCode: admin.ReferralCode,
	}); err != nil {
		t.Fatalf("invited signup failed: %v", err)
	}

	stats, err := c.InvitationStats(admin)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ReferredCount != 1 {
		t.Errorf("referred count = %d, want 1", stats.ReferredCount)
	}
	if stats.RemainingInvites != stats.InvitationLimit-1 {
		t.Errorf("remaining = %d with limit %d", stats.RemainingInvites, stats.InvitationLimit)
	}
}

func TestProfileAssignsCodeLazily(t *testing.T) {
	store := newFakeStore()
	c, _ := testCore(store, nil)
	user := addUser(store, "plain")

	profile, err := c.Profile(user)
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if profile.ReferralCode == "" {
		t.Fatal("profile did not assign a referral code")
	}
	again, err := c.Profile(user)
	if err != nil {
		t.Fatalf("second profile failed: %v", err)
	}
	if again.ReferralCode != profile.ReferralCode {
		t.Errorf("code changed between reads: %q then %q", profile.ReferralCode, again.ReferralCode)
	}
}
