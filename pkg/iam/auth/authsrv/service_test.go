package authsrv_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/iam/audit"
	"github.com/flagforge/flagforge/pkg/iam/auth"
	"github.com/flagforge/flagforge/pkg/iam/auth/authsrv"
	"github.com/flagforge/flagforge/pkg/iam/credential"
	"github.com/flagforge/flagforge/pkg/iam/organization"
	"github.com/flagforge/flagforge/pkg/iam/ratelimit"
	"github.com/flagforge/flagforge/pkg/iam/session"
	"github.com/flagforge/flagforge/pkg/iam/token"
	"github.com/flagforge/flagforge/pkg/iam/user"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[kernel.UserID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[kernel.UserID]*user.User{}}
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound()
}

func (r *fakeUserRepo) FindByID(_ context.Context, id kernel.UserID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, user.ErrUserNotFound()
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id kernel.UserID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (r *fakeUserRepo) SetActive(_ context.Context, id kernel.UserID, orgID kernel.OrganizationID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok && u.OrganizationID == orgID {
		u.IsActive = active
	}
	return nil
}

type fakeRegStore struct {
	mu     sync.Mutex
	users  *fakeUserRepo
	emails map[string]bool
	envs   int
}

func (s *fakeRegStore) CreateOrganization(_ context.Context, _ organization.Organization, envs []organization.Environment, admin user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emails[admin.Email] {
		return auth.ErrEmailTaken()
	}
	s.emails[admin.Email] = true
	s.envs = len(envs)

	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	cp := admin
	s.users.users[admin.ID] = &cp
	return nil
}

// memSessionStore is an in-memory session.Store whose Rotate admits exactly
// one winner per presented secret, mirroring the row-lock behavior of the
// postgres store.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.RefreshSession
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[string]*session.RefreshSession{}}
}

func (s *memSessionStore) Create(_ context.Context, userID kernel.UserID, orgID kernel.OrganizationID, expiresAt time.Time) (*session.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &session.RefreshSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		OrganizationID: orgID,
		TokenHash:      "pending",
		ExpiresAt:      expiresAt,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	s.sessions[rec.ID] = rec
	return rec, nil
}

func (s *memSessionStore) Finalize(_ context.Context, id, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	rec.TokenHash = tokenHash
	return nil
}

func (s *memSessionStore) FindByID(_ context.Context, id string) (*session.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memSessionStore) Rotate(_ context.Context, id, presentedHash, nextHash string, nextExpiresAt time.Time) (*session.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	if rec.IsExpired() {
		delete(s.sessions, id)
		return nil, session.ErrExpired
	}
	if rec.TokenHash != presentedHash {
		return nil, session.ErrHashMismatch
	}
	rec.TokenHash = nextHash
	rec.ExpiresAt = nextExpiresAt
	rec.UpdatedAt = time.Now().UTC()
	cp := *rec
	return &cp, nil
}

func (s *memSessionStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memSessionStore) DeleteAllForUser(_ context.Context, userID kernel.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.sessions {
		if rec.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *memSessionStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.sessions {
		if rec.IsExpired() {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *memSessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, audit.Fact) {}

// ============================================================================
// Fixture
// ============================================================================

type fixture struct {
	svc      *authsrv.Service
	users    *fakeUserRepo
	sessions *memSessionStore
	codec    *token.Codec
}

func newFixture(t *testing.T, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	users := newFakeUserRepo()
	sessions := newMemSessionStore()
	codec := token.NewCodec("access-secret-for-tests", "refresh-secret-for-tests", 15*time.Minute, 7*24*time.Hour, "flagforge-test")
	svc := authsrv.NewService(
		users,
		&fakeRegStore{users: users, emails: map[string]bool{}},
		sessions,
		codec,
		credential.NewHasher(4),
		nopRecorder{},
		limiter,
	)
	return &fixture{svc: svc, users: users, sessions: sessions, codec: codec}
}

func (f *fixture) register(t *testing.T, email string) *auth.Result {
	t.Helper()
	result, err := f.svc.Register(context.Background(), authsrv.RegisterInput{
		OrganizationName: "Acme Rockets",
		Email:            email,
		Password:         "hunter2hunter2",
		FirstName:        "Ada",
		LastName:         "Lovelace",
	}, kernel.RequestMeta{})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return result
}

// ============================================================================
// Registration
// ============================================================================

func TestRegister_FoundingUserIsAdminWithValidTokens(t *testing.T) {
	f := newFixture(t, nil)
	result := f.register(t, "ada@acme.test")

	if result.User.Role != kernel.RoleAdmin {
		t.Fatalf("expected ADMIN role, got %s", result.User.Role)
	}
	if result.User.OrganizationID.IsEmpty() {
		t.Fatal("expected organization to be assigned")
	}

	claims, err := f.codec.VerifyAccess(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.UserID != result.User.ID {
		t.Fatal("access token bound to wrong user")
	}
	if _, err := f.codec.VerifyRefresh(result.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh token does not verify: %v", err)
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "ada@acme.test")

	_, err := f.svc.Register(context.Background(), authsrv.RegisterInput{
		OrganizationName: "Other Org",
		Email:            "ada@acme.test",
		Password:         "hunter2hunter2",
	}, kernel.RequestMeta{})
	if !errx.IsCode(err, auth.CodeEmailTaken) {
		t.Fatalf("expected email-taken conflict, got %v", err)
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.HTTPStatus != 409 {
		t.Fatalf("expected HTTP 409, got %v", err)
	}
}

func TestRegister_RejectsWeakInput(t *testing.T) {
	f := newFixture(t, nil)

	cases := []authsrv.RegisterInput{
		{OrganizationName: "", Email: "a@b.test", Password: "hunter2hunter2"},
		{OrganizationName: "Acme", Email: "not-an-email", Password: "hunter2hunter2"},
		{OrganizationName: "Acme", Email: "a@b.test", Password: "short"},
	}
	for _, in := range cases {
		if _, err := f.svc.Register(context.Background(), in, kernel.RequestMeta{}); !errx.IsCode(err, auth.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_Succeeds(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "ada@acme.test")

	result, err := f.svc.Login(context.Background(), authsrv.LoginInput{
		Email:    "Ada@Acme.Test",
		Password: "hunter2hunter2",
	}, kernel.RequestMeta{})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.User.LastLoginAt == nil {
		t.Fatal("expected last login to be stamped")
	}
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "ada@acme.test")

	_, errUnknown := f.svc.Login(context.Background(), authsrv.LoginInput{
		Email:    "nobody@acme.test",
		Password: "hunter2hunter2",
	}, kernel.RequestMeta{})
	_, errWrongPw := f.svc.Login(context.Background(), authsrv.LoginInput{
		Email:    "ada@acme.test",
		Password: "wrong-password",
	}, kernel.RequestMeta{})

	if !errx.IsCode(errUnknown, auth.CodeInvalidCredentials) || !errx.IsCode(errWrongPw, auth.CodeInvalidCredentials) {
		t.Fatalf("expected invalid-credentials for both, got %v / %v", errUnknown, errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("failure modes must be indistinguishable: %q vs %q", errUnknown.Error(), errWrongPw.Error())
	}
}

func TestLogin_DeactivatedUserRejected(t *testing.T) {
	f := newFixture(t, nil)
	result := f.register(t, "ada@acme.test")

	if err := f.users.SetActive(context.Background(), result.User.ID, result.User.OrganizationID, false); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	_, err := f.svc.Login(context.Background(), authsrv.LoginInput{
		Email:    "ada@acme.test",
		Password: "hunter2hunter2",
	}, kernel.RequestMeta{})
	if !errx.IsCode(err, auth.CodeInvalidCredentials) {
		t.Fatalf("expected invalid-credentials, got %v", err)
	}
}

func TestLogin_LockedOutAfterTooManyAttempts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := ratelimit.NewLimiter(client, "login", 3, time.Minute)

	f := newFixture(t, limiter)
	f.register(t, "ada@acme.test")

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Login(context.Background(), authsrv.LoginInput{
			Email:    "ada@acme.test",
			Password: "wrong-password",
		}, kernel.RequestMeta{}); !errx.IsCode(err, auth.CodeInvalidCredentials) {
			t.Fatalf("expected invalid-credentials, got %v", err)
		}
	}

	// Fourth attempt hits the window cap even with the right password.
	_, err := f.svc.Login(context.Background(), authsrv.LoginInput{
		Email:    "ada@acme.test",
		Password: "hunter2hunter2",
	}, kernel.RequestMeta{})
	if !errx.IsCode(err, ratelimit.CodeTooManyAttempts) {
		t.Fatalf("expected too-many-attempts, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := f.svc.Login(context.Background(), authsrv.LoginInput{
		Email:    "ada@acme.test",
		Password: "hunter2hunter2",
	}, kernel.RequestMeta{}); err != nil {
		t.Fatalf("expected login to succeed after window expiry, got %v", err)
	}
}

// ============================================================================
// Refresh rotation
// ============================================================================

func TestRefresh_RotatesAndInvalidatesOldToken(t *testing.T) {
	f := newFixture(t, nil)
	result := f.register(t, "ada@acme.test")
	first := result.Tokens.RefreshToken

	pair, err := f.svc.Refresh(context.Background(), first, kernel.RequestMeta{})
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if pair.RefreshToken == first {
		t.Fatal("expected a new refresh token")
	}
	if _, err := f.codec.VerifyAccess(pair.AccessToken); err != nil {
		t.Fatalf("rotated access token does not verify: %v", err)
	}

	// The replayed old token is reuse: chain revoked, dedicated error.
	_, err = f.svc.Refresh(context.Background(), first, kernel.RequestMeta{})
	if !errx.IsCode(err, auth.CodeReuseDetected) {
		t.Fatalf("expected reuse-detected, got %v", err)
	}
	if f.sessions.count() != 0 {
		t.Fatalf("expected all sessions revoked after reuse, %d remain", f.sessions.count())
	}

	// Reuse response burns the winner's token too.
	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken, kernel.RequestMeta{})
	if !errx.IsCode(err, auth.CodeInvalidToken) {
		t.Fatalf("expected invalid-token after revocation, got %v", err)
	}
}

func TestRefresh_ConcurrentRotationsAdmitOneWinner(t *testing.T) {
	f := newFixture(t, nil)
	result := f.register(t, "ada@acme.test")
	refresh := result.Tokens.RefreshToken

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Refresh(context.Background(), refresh, kernel.RequestMeta{})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestRefresh_GarbageTokenRejected(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Refresh(context.Background(), "not-a-jwt", kernel.RequestMeta{})
	if !errx.IsCode(err, auth.CodeInvalidToken) {
		t.Fatalf("expected invalid-token, got %v", err)
	}
}

func TestRefresh_DeactivatedUserChainRevoked(t *testing.T) {
	f := newFixture(t, nil)
	result := f.register(t, "ada@acme.test")

	if err := f.users.SetActive(context.Background(), result.User.ID, result.User.OrganizationID, false); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	_, err := f.svc.Refresh(context.Background(), result.Tokens.RefreshToken, kernel.RequestMeta{})
	if !errx.IsCode(err, auth.CodeInvalidCredentials) {
		t.Fatalf("expected invalid-credentials, got %v", err)
	}
	if f.sessions.count() != 0 {
		t.Fatal("expected sessions of deactivated user to be revoked")
	}
}

// ============================================================================
// Logout
// ============================================================================

func TestLogout_RevokesChain(t *testing.T) {
	f := newFixture(t, nil)
	result := f.register(t, "ada@acme.test")

	if err := f.svc.Logout(context.Background(), result.Tokens.RefreshToken, kernel.RequestMeta{}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	_, err := f.svc.Refresh(context.Background(), result.Tokens.RefreshToken, kernel.RequestMeta{})
	if !errx.IsCode(err, auth.CodeInvalidToken) {
		t.Fatalf("expected invalid-token after logout, got %v", err)
	}
}

func TestLogout_GarbageTokenIsStillSuccess(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.svc.Logout(context.Background(), "not-a-jwt", kernel.RequestMeta{}); err != nil {
		t.Fatalf("expected idempotent logout, got %v", err)
	}
}

func TestLogoutEverywhere_RevokesAllChains(t *testing.T) {
	f := newFixture(t, nil)
	result := f.register(t, "ada@acme.test")

	// Open a second session.
	if _, err := f.svc.Login(context.Background(), authsrv.LoginInput{
		Email:    "ada@acme.test",
		Password: "hunter2hunter2",
	}, kernel.RequestMeta{}); err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if f.sessions.count() != 2 {
		t.Fatalf("expected 2 sessions, got %d", f.sessions.count())
	}

	if err := f.svc.LogoutEverywhere(context.Background(), result.User.ID); err != nil {
		t.Fatalf("logout everywhere failed: %v", err)
	}
	if f.sessions.count() != 0 {
		t.Fatalf("expected 0 sessions, got %d", f.sessions.count())
	}
}
