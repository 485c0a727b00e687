// README: Identity service tests with in-memory store and stub provider.
package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusride/internal/docstore"
	"campusride/internal/infra"
	"campusride/internal/logging"
	"campusride/internal/types"
)

type stubAccounts struct {
	mu     sync.Mutex
	emails map[string]string
	err    error
}

func (a *stubAccounts) CreateAccount(_ context.Context, email, _, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	if _, ok := a.emails[email]; ok {
		return "", ErrEmailInUse
	}
	uid := "uid-" + email
	a.emails[email] = uid
	return uid, nil
}

// stubVerifier is a test double for infra.TokenVerifier keyed by raw token.
type stubVerifier struct {
	tokens map[string]string
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*infra.FirebaseToken, error) {
	uid, ok := s.tokens[idToken]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &infra.FirebaseToken{UID: uid}, nil
}

type memLimiter struct {
	mu       sync.Mutex
	failures map[string]int
}

func (l *memLimiter) Failures(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[key], nil
}

func (l *memLimiter) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key]++
	return nil
}

func (l *memLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
	return nil
}

type fixture struct {
	svc      *Service
	store    *docstore.Memory
	verifier *stubVerifier
	limiter  *memLimiter
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		verifier: &stubVerifier{tokens: map[string]string{}},
		limiter:  &memLimiter{failures: map[string]int{}},
	}
	f.store = docstore.NewMemory(docstore.WithClock(func() time.Time { return f.now }))
	accounts := &stubAccounts{emails: map[string]string{}}
	f.svc = NewService(f.store, accounts, f.verifier, f.limiter, Config{MaxFailedAttempts: 3}, logging.Discard())
	return f
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterCommand{Name: "Ayşe", Email: "ayse@campus.edu", Password: "secret1", Role: types.RolePassenger})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := f.svc.Profile(ctx, u.UID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if got.Name != "Ayşe" || got.Role != types.RolePassenger || got.Email != "ayse@campus.edu" {
		t.Errorf("profile = %+v", got)
	}

	_, err = f.svc.Register(ctx, RegisterCommand{Name: "Other", Email: "ayse@campus.edu", Password: "secret1", Role: types.RoleDriver})
	if !errors.Is(err, ErrEmailInUse) {
		t.Errorf("duplicate email err = %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		cmd  RegisterCommand
		want error
	}{
		{"short password", RegisterCommand{Name: "A", Email: "a@x", Password: "12345", Role: types.RoleDriver}, ErrWeakPassword},
		{"admin self-register", RegisterCommand{Name: "A", Email: "a@x", Password: "123456", Role: types.RoleAdmin}, ErrBadRequest},
		{"missing name", RegisterCommand{Name: " ", Email: "a@x", Password: "123456", Role: types.RoleDriver}, ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Register(context.Background(), tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegister_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.accounts = &stubAccounts{emails: map[string]string{}, err: errors.New("quota")}
	_, err := f.svc.Register(context.Background(), RegisterCommand{Name: "A", Email: "a@x", Password: "123456", Role: types.RoleDriver})
	if !errors.Is(err, ErrRegisterFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestSignIn_StampsLastSeen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.svc.Register(ctx, RegisterCommand{Name: "Deniz", Email: "d@x", Password: "123456", Role: types.RoleDriver})
	f.verifier.tokens["good"] = string(u.UID)

	got, err := f.svc.SignIn(ctx, "good", "1.2.3.4")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got.UID != u.UID {
		t.Errorf("uid = %s", got.UID)
	}
	doc, _ := f.store.Get(ctx, Collection, string(u.UID))
	if ts, _ := doc.Data[FieldLastSeen].(time.Time); !ts.Equal(f.now) {
		t.Errorf("lastSeen = %v, want %v", doc.Data[FieldLastSeen], f.now)
	}
}

func TestSignIn_LimitsFailedAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.svc.Register(ctx, RegisterCommand{Name: "Deniz", Email: "d@x", Password: "123456", Role: types.RoleDriver})
	f.verifier.tokens["good"] = string(u.UID)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.SignIn(ctx, "bad", "client"); !errors.Is(err, ErrBadCredential) {
			t.Fatalf("attempt %d err = %v", i, err)
		}
	}
	if _, err := f.svc.SignIn(ctx, "good", "client"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("err = %v, want ErrTooManyAttempts", err)
	}
	// other clients are unaffected
	if _, err := f.svc.SignIn(ctx, "good", "other"); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestSignIn_MissingProfile(t *testing.T) {
	f := newFixture(t)
	f.verifier.tokens["orphan"] = "ghost"
	if _, err := f.svc.SignIn(context.Background(), "orphan", "c"); !errors.Is(err, ErrSignInFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateAvatar_RefreshesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.svc.Register(ctx, RegisterCommand{Name: "Ayşe", Email: "a@x", Password: "123456", Role: types.RolePassenger})
	if _, err := f.svc.Profile(ctx, u.UID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if err := f.svc.UpdateAvatar(ctx, u.UID, "owl"); err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	got, _ := f.svc.Profile(ctx, u.UID)
	if got.AvatarID != "owl" {
		t.Errorf("avatar = %q", got.AvatarID)
	}
	if err := f.svc.UpdateAvatar(ctx, "nobody", "owl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user err = %v", err)
	}
}

func TestListUsers_SkipsMalformed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Register(ctx, RegisterCommand{Name: "A", Email: "a@x", Password: "123456", Role: types.RolePassenger})
	f.store.Set(ctx, Collection, "broken", map[string]any{FieldName: "no role"})

	users, err := f.svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || users[0].Name != "A" {
		t.Fatalf("users = %+v", users)
	}
}

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		lang string
		want string
	}{
		{ErrBadCredential, LangTurkish, "Hatalı email veya şifre."},
		{ErrTooManyAttempts, LangTurkish, "Çok fazla başarısız deneme. Lütfen biraz bekleyin."},
		{errors.New("network"), LangTurkish, "Giriş başarısız. Lütfen tekrar deneyin."},
		{ErrEmailInUse, "", "Bu email adresi zaten kullanımda."},
		{ErrWeakPassword, LangEnglish, "Password is too weak (at least 6 characters)."},
		{errors.Join(ErrRegisterFailed, errors.New("x")), LangEnglish, "Registration failed. Please try again."},
	}
	for _, tc := range cases {
		if got := Message(tc.err, tc.lang); got != tc.want {
			t.Errorf("Message(%v, %q) = %q, want %q", tc.err, tc.lang, got, tc.want)
		}
	}
}
