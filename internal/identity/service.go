// Package identity handles account signup, login and logout, and links new
// accounts to participant profiles that were recorded before the person
// ever signed up.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ellarises/web/internal/identity/entity"
	"github.com/ellarises/web/internal/identity/repo"
	"github.com/ellarises/web/pkg/utilities"
)

const (
	AdminLandingPath       = "/manage"
	ParticipantLandingPath = "/my-journey"
)

const (
	msgLoginFieldsRequired = "Please enter both email and password."
	msgPasswordTooLong     = "Password must be at most 72 bytes."
)

// maxPasswordBytes is the longest secret bcrypt accepts.
const maxPasswordBytes = 72

// SessionDestroyer is the part of a session store LogOut needs.
type SessionDestroyer interface {
	Destroy(ctx context.Context, id string) error
}

// SignUpInput is the signup form as submitted.
type SignUpInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Service orchestrates authentication over the account and profile stores.
type Service struct {
	store  repo.Store
	hasher PasswordHasher
	logger *zap.SugaredLogger
	newID  func() string

	// decoy is verified against when the email has no account, so that
	// branch costs the same as a wrong password.
	decoyOnce sync.Once
	decoy     string
}

func NewService(store repo.Store, hasher PasswordHasher, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &Service{store: store, hasher: hasher, logger: logger, newID: utilities.NewKSUID}
}

// SignUp creates an account and links or creates its profile in one
// transaction, then returns the identity for the new session.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (entity.SessionIdentity, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	email := entity.NormalizeEmail(in.Email)
	if first == "" || last == "" || email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return entity.SessionIdentity{}, newError(KindValidation, nil)
	}
	if in.Password != in.ConfirmPassword {
		return entity.SessionIdentity{}, newError(KindPasswordMismatch, nil)
	}
	if len(in.Password) > maxPasswordBytes {
		return entity.SessionIdentity{}, &Error{Kind: KindValidation, Msg: msgPasswordTooLong}
	}

	// hashed before the transaction opens so no row lock is held during bcrypt
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Errorw("hash password", "error", err)
		return entity.SessionIdentity{}, newError(KindStoreUnavailable, err)
	}

	var (
		account *entity.Account
		profile *entity.Profile
		claimed bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repo.Repositories) error {
		_, err := tx.Accounts().GetByEmail(ctx, email)
		switch {
		case err == nil:
			return newError(KindDuplicateAccount, nil)
		case !errors.Is(err, repo.ErrNotFound):
			return newError(KindStoreUnavailable, err)
		}

		unclaimed, err := tx.Profiles().ListUnclaimedByEmail(ctx, email)
		if err != nil {
			return newError(KindStoreUnavailable, err)
		}

		a := &entity.Account{
			ID:           s.newID(),
			Email:        email,
			PasswordHash: hash,
			Role:         entity.RoleUser,
			IsActive:     true,
		}
		if err := tx.Accounts().Create(ctx, a); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return newError(KindDuplicateAccount, err)
			}
			return newError(KindStoreUnavailable, err)
		}

		p, err := s.linkProfile(ctx, tx.Profiles(), unclaimed, a, email, first, last)
		if err != nil {
			return err
		}
		account, profile, claimed = a, p, len(unclaimed) > 0
		return nil
	})
	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			if errors.Is(err, repo.ErrDuplicate) {
				e = newError(KindDuplicateAccount, err)
			} else {
				e = newError(KindStoreUnavailable, err)
			}
		}
		if e.Kind == KindStoreUnavailable {
			s.logger.Errorw("signup failed", "email", email, "error", e.Err)
		}
		return entity.SessionIdentity{}, e
	}

	s.logger.Infow("account created", "account_id", account.ID, "profile_id", profile.ID, "claimed", claimed)
	return entity.NewSessionIdentity(account, profile), nil
}

// linkProfile claims the oldest unclaimed profile, filling only the names it
// is missing, or creates a new profile when none exists.
func (s *Service) linkProfile(ctx context.Context, profiles repo.ProfileRepository, unclaimed []entity.Profile, a *entity.Account, email, first, last string) (*entity.Profile, error) {
	if len(unclaimed) > 0 {
		p := unclaimed[0]
		p.AccountID = &a.ID
		if strings.TrimSpace(p.FirstName) == "" {
			p.FirstName = first
		}
		if strings.TrimSpace(p.LastName) == "" {
			p.LastName = last
		}
		if err := profiles.Claim(ctx, &p); err != nil {
			if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrDuplicate) {
				return nil, newError(KindDuplicateAccount, err)
			}
			return nil, newError(KindStoreUnavailable, err)
		}
		return &p, nil
	}

	p := &entity.Profile{
		ID:        s.newID(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		AccountID: &a.ID,
	}
	if err := profiles.Create(ctx, p); err != nil {
		return nil, newError(KindStoreUnavailable, err)
	}
	return p, nil
}

// LogIn verifies credentials and returns the identity for a new session.
// Unknown email and wrong password produce the same error.
func (s *Service) LogIn(ctx context.Context, email, password string) (entity.SessionIdentity, error) {
	email = entity.NormalizeEmail(email)
	if email == "" || password == "" {
		return entity.SessionIdentity{}, &Error{Kind: KindValidation, Msg: msgLoginFieldsRequired}
	}
	// no stored hash can match, and bcrypt refuses to hash it
	if len(password) > maxPasswordBytes {
		s.logger.Debugw("login rejected", "email", email, "reason", "password_too_long")
		return entity.SessionIdentity{}, newError(KindInvalidCredentials, nil)
	}

	a, err := s.store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.verifyDecoy(password)
			s.logger.Debugw("login rejected", "email", email, "reason", "no_account")
			return entity.SessionIdentity{}, newError(KindInvalidCredentials, nil)
		}
		s.logger.Errorw("login lookup failed", "email", email, "error", err)
		return entity.SessionIdentity{}, newError(KindStoreUnavailable, err)
	}
	if !a.IsActive {
		s.logger.Debugw("login rejected", "email", email, "reason", "inactive")
		return entity.SessionIdentity{}, newError(KindAccountInactive, nil)
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		s.logger.Debugw("login rejected", "email", email, "reason", "bad_password")
		return entity.SessionIdentity{}, newError(KindInvalidCredentials, nil)
	}

	p, err := s.resolveProfile(ctx, a, email)
	if err != nil {
		s.logger.Errorw("profile lookup failed", "account_id", a.ID, "error", err)
		return entity.SessionIdentity{}, newError(KindStoreUnavailable, err)
	}
	return entity.NewSessionIdentity(a, p), nil
}

func (s *Service) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		h, err := s.hasher.Hash("ella-rises-decoy")
		if err != nil {
			s.logger.Warnw("decoy hash failed", "error", err)
			return
		}
		s.decoy = h
	})
	if s.decoy != "" {
		_ = s.hasher.Verify(s.decoy, password)
	}
}

// resolveProfile prefers the linked profile and falls back to the oldest
// profile with the account email. A nil profile is not an error.
func (s *Service) resolveProfile(ctx context.Context, a *entity.Account, email string) (*entity.Profile, error) {
	p, err := s.store.Profiles().GetByAccountID(ctx, a.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	byEmail, err := s.store.Profiles().ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(byEmail) == 0 {
		return nil, nil
	}
	return &byEmail[0], nil
}

// LogOut destroys the session. Failures are logged and never reported.
func (s *Service) LogOut(ctx context.Context, sessions SessionDestroyer, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := sessions.Destroy(ctx, sessionID); err != nil {
		s.logger.Warnw("session destroy failed", "error", err)
	}
}

// LandingPath is where a freshly authenticated caller is sent.
func LandingPath(id entity.SessionIdentity) string {
	if id.IsAdmin() {
		return AdminLandingPath
	}
	return ParticipantLandingPath
}
