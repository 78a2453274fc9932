package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service orchestrates registration, login, password lifecycle and
// account state transitions. All operations are request-scoped; the
// service keeps no mutable state between calls beyond its collaborators.
type Service struct {
	store  Store
	hasher Hasher
	tokens *TokenManager
	now    func() time.Time

	// decoy is a real digest verified when a login names an unknown
	// account, so the miss costs about as much as a wrong password.
	decoy string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the account service.
func NewService(store Store, hasher Hasher, tokens *TokenManager, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("account: store is required")
	}
	if tokens == nil {
		return nil, errors.New("account: token manager is required")
	}
	svc := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	decoy, err := hasher.Hash("brewtrack-login-decoy")
	if err != nil {
		return nil, err
	}
	svc.decoy = decoy
	return svc, nil
}

// RegisterParams carries registration input. Role is optional and
// defaults to RoleUser.
type RegisterParams struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// Session is the success payload of registration and login: the account
// projection plus a freshly minted bearer token.
type Session struct {
	Account   Profile   `json:"account"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Register creates a new active account and mints a session token.
// Duplicate username or email yields ErrConflict; a weak password
// yields the policy error.
func (s *Service) Register(ctx context.Context, p RegisterParams) (Session, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return Session{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(p.Email)
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	role := p.Role
	if role == "" {
		role = RoleUser
	}
	if !role.IsValid() {
		return Session{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, p.Role)
	}
	if err := ValidatePassword(p.Password); err != nil {
		return Session{}, err
	}

	exists, err := s.store.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return Session{}, err
	}
	if exists {
		return Session{}, ErrConflict
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return Session{}, err
	}
	acc := &Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	// The unique indexes are the authority: a racing registration that
	// slips past the exists check surfaces here as ErrConflict.
	if err := s.store.Insert(ctx, acc); err != nil {
		return Session{}, err
	}
	return s.session(acc)
}

// Login authenticates by username or email against active accounts.
// Unknown account, inactive account and wrong password are deliberately
// indistinguishable: all return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	acc, err := s.store.FindByLogin(ctx, login)
	if errors.Is(err, ErrNotFound) {
		s.hasher.Verify(password, s.decoy)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !s.hasher.Verify(password, acc.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	if !acc.Active {
		return Session{}, ErrInvalidCredentials
	}

	loginAt := s.now().UTC()
	updated, err := s.store.Update(ctx, acc.ID, AccountUpdate{LastLoginAt: &loginAt})
	if err != nil {
		return Session{}, err
	}
	return s.session(updated)
}

// ChangePassword verifies the current password and installs a new one.
// No token is re-issued; existing tokens stay valid until expiry.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	acc, err := s.activeByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, acc.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	_, err = s.store.Update(ctx, id, AccountUpdate{PasswordHash: &hash})
	return err
}

// Get returns the active account projection or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Profile, error) {
	acc, err := s.activeByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return acc.Profile(), nil
}

// ProfileUpdate is the partial input of UpdateProfile; nil fields are
// left unchanged.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Role     *Role
}

// UpdateProfile applies the supplied fields. When nothing is supplied
// it performs no write and returns the current projection.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (Profile, error) {
	var storeUpd AccountUpdate
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return Profile{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		storeUpd.Username = &username
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email == "" || !strings.Contains(email, "@") {
			return Profile{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		storeUpd.Email = &email
	}
	if upd.Role != nil {
		if !upd.Role.IsValid() {
			return Profile{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, *upd.Role)
		}
		storeUpd.Role = upd.Role
	}

	if storeUpd.IsZero() {
		acc, err := s.store.FindByID(ctx, id)
		if err != nil {
			return Profile{}, err
		}
		return acc.Profile(), nil
	}

	acc, err := s.store.Update(ctx, id, storeUpd)
	if err != nil {
		return Profile{}, err
	}
	return acc.Profile(), nil
}

// Activate marks the account active. Re-applying is idempotent beyond
// the timestamp refresh.
func (s *Service) Activate(ctx context.Context, id int64) (Profile, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate marks the account inactive: it can no longer authenticate
// and stops being returned by identity lookups.
func (s *Service) Deactivate(ctx context.Context, id int64) (Profile, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id int64, active bool) (Profile, error) {
	acc, err := s.store.Update(ctx, id, AccountUpdate{Active: &active})
	if err != nil {
		return Profile{}, err
	}
	return acc.Profile(), nil
}

// List returns every account projection, newest first. Authorization is
// the caller's responsibility.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	accounts, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(accounts))
	for _, acc := range accounts {
		profiles = append(profiles, acc.Profile())
	}
	return profiles, nil
}

// ResolveIdentity verifies a bearer token and confirms the account is
// still active, returning the identity used to gate resource routes.
// Any failure maps to ErrInvalidToken.
func (s *Service) ResolveIdentity(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	acc, err := s.store.FindByID(ctx, claims.AccountID)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, ErrInvalidToken
	}
	if err != nil {
		return Identity{}, err
	}
	if !acc.Active {
		return Identity{}, ErrInvalidToken
	}
	// Username and role come from the row, not the claims, so renames
	// and role changes take effect before the token expires.
	return Identity{AccountID: acc.ID, Username: acc.Username, Role: acc.Role}, nil
}

func (s *Service) activeByID(ctx context.Context, id int64) (*Account, error) {
	acc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, ErrNotFound
	}
	return acc, nil
}

func (s *Service) session(acc *Account) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(Identity{
		AccountID: acc.ID,
		Username:  acc.Username,
		Role:      acc.Role,
	})
	if err != nil {
		return Session{}, err
	}
	return Session{
		Account:   acc.Profile(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
