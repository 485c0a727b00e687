// README: Identity service handles registration, sign-in and profile reads.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/motoki317/sc"

	"campusride/internal/docstore"
	"campusride/internal/infra"
	"campusride/internal/types"
)

const minPasswordLength = 6

type Config struct {
	MaxFailedAttempts int
	ProfileFreshFor   time.Duration
	ProfileTTL        time.Duration
}

type Service struct {
	store    docstore.Store
	accounts Accounts
	verifier infra.TokenVerifier
	limiter  Limiter
	cfg      Config
	profiles *sc.Cache[types.ID, User]
	log      *slog.Logger
}

// NewService wires the identity service. limiter may be nil, in which case
// sign-in attempts are not limited.
func NewService(store docstore.Store, accounts Accounts, verifier infra.TokenVerifier, limiter Limiter, cfg Config, log *slog.Logger) *Service {
	if cfg.ProfileFreshFor <= 0 {
		cfg.ProfileFreshFor = 30 * time.Second
	}
	if cfg.ProfileTTL < cfg.ProfileFreshFor {
		cfg.ProfileTTL = 2 * cfg.ProfileFreshFor
	}
	s := &Service{store: store, accounts: accounts, verifier: verifier, limiter: limiter, cfg: cfg, log: log}
	s.profiles = sc.NewMust(s.loadProfile, cfg.ProfileFreshFor, cfg.ProfileTTL)
	return s
}

type RegisterCommand struct {
	Name     string
	Email    string
	Password string
	Role     types.Role
}

// Register creates the auth account and the profile document. Only
// passengers and drivers may self-register.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (User, error) {
	name := strings.TrimSpace(cmd.Name)
	email := strings.TrimSpace(cmd.Email)
	if name == "" || email == "" || (cmd.Role != types.RolePassenger && cmd.Role != types.RoleDriver) {
		return User{}, ErrBadRequest
	}
	if len(cmd.Password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	uid, err := s.accounts.CreateAccount(ctx, email, cmd.Password, name)
	if errors.Is(err, ErrEmailInUse) {
		return User{}, ErrEmailInUse
	}
	if err != nil {
		s.log.Error("create account failed", "email", email, "error", err)
		return User{}, fmt.Errorf("%w: %v", ErrRegisterFailed, err)
	}
	err = s.store.Set(ctx, Collection, uid, map[string]any{
		FieldUID:   uid,
		FieldName:  name,
		FieldEmail: email,
		FieldRole:  string(cmd.Role),
	})
	if err != nil {
		s.log.Error("write user profile failed", "uid", uid, "error", err)
		return User{}, fmt.Errorf("%w: %v", ErrRegisterFailed, err)
	}
	return User{UID: types.ID(uid), Name: name, Email: email, Role: cmd.Role}, nil
}

// SignIn verifies an ID token issued by the identity provider and stamps
// lastSeen. clientKey identifies the caller for attempt limiting.
func (s *Service) SignIn(ctx context.Context, idToken, clientKey string) (User, error) {
	if s.limiter != nil && s.cfg.MaxFailedAttempts > 0 {
		n, err := s.limiter.Failures(ctx, clientKey)
		if err != nil {
			s.log.Warn("sign-in limiter unavailable", "error", err)
		} else if n >= s.cfg.MaxFailedAttempts {
			return User{}, ErrTooManyAttempts
		}
	}

	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		if s.limiter != nil {
			if ferr := s.limiter.Fail(ctx, clientKey); ferr != nil {
				s.log.Warn("record failed sign-in", "error", ferr)
			}
		}
		return User{}, ErrBadCredential
	}

	user, err := s.Profile(ctx, types.ID(token.UID))
	if err != nil {
		s.log.Error("load profile at sign-in", "uid", token.UID, "error", err)
		return User{}, fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, clientKey); err != nil {
			s.log.Warn("reset sign-in limiter", "error", err)
		}
	}
	if err := s.Touch(ctx, user.UID); err != nil {
		s.log.Warn("stamp lastSeen at sign-in", "uid", user.UID, "error", err)
	}
	return user, nil
}

// Profile returns a cached profile. lastSeen on the cached value may lag.
func (s *Service) Profile(ctx context.Context, uid types.ID) (User, error) {
	if uid == "" {
		return User{}, ErrBadRequest
	}
	return s.profiles.Get(ctx, uid)
}

func (s *Service) loadProfile(ctx context.Context, uid types.ID) (User, error) {
	doc, err := s.store.Get(ctx, Collection, string(uid))
	if docstore.IsNotFound(err) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return FromDocument(doc)
}

// ListUsers reads every profile directly, bypassing the cache.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	docs, err := s.store.List(ctx, Collection, docstore.Query{})
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		u, err := FromDocument(doc)
		if err != nil {
			s.log.Warn("skipping user document", "uid", doc.ID, "error", err)
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Service) UpdateAvatar(ctx context.Context, uid types.ID, avatarID string) error {
	avatarID = strings.TrimSpace(avatarID)
	if uid == "" || avatarID == "" {
		return ErrBadRequest
	}
	return s.update(ctx, uid, FieldAvatarID, avatarID)
}

// RegisterDevice stores the push token used for notifications.
func (s *Service) RegisterDevice(ctx context.Context, uid types.ID, token string) error {
	if uid == "" || strings.TrimSpace(token) == "" {
		return ErrBadRequest
	}
	return s.update(ctx, uid, FieldDeviceToken, token)
}

// Touch stamps lastSeen with the store's clock. It is the presence heartbeat.
func (s *Service) Touch(ctx context.Context, uid types.ID) error {
	err := s.store.Update(ctx, Collection, string(uid), []docstore.Update{{Path: FieldLastSeen, Value: docstore.ServerTimestamp}})
	if docstore.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (s *Service) update(ctx context.Context, uid types.ID, field string, value any) error {
	err := s.store.Update(ctx, Collection, string(uid), []docstore.Update{{Path: field, Value: value}})
	if docstore.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.profiles.Forget(uid)
	return nil
}
