package profile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/p-n-ai/pai-learn/internal/kvstore"
)

// TokenKey is the store key of the access token.
const TokenKey = "userToken"

// Account is the part of Client a Session needs.
type Account interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, req RegisterRequest) error
	Profile(ctx context.Context, token string) (User, error)
}

// Session is the signed-in state, passed explicitly to whoever needs the
// current user.
type Session struct {
	store   kvstore.Store
	account Account

	mu    sync.RWMutex
	user  *User
	token string
}

// NewSession creates a signed-out session. account may be nil for an
// offline session that can never sign in.
func NewSession(store kvstore.Store, account Account) *Session {
	return &Session{store: store, account: account}
}

// Restore signs in from a stored token. A token that is expired or whose
// profile cannot be fetched is discarded.
func (s *Session) Restore(ctx context.Context) error {
	token, found, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return err
	}
	if !found || token == "" {
		return nil
	}

	if expired(token, time.Now()) {
		slog.Info("stored token expired, signing out")
		return s.SignOut(ctx)
	}
	if s.account == nil {
		return nil
	}

	user, err := s.account.Profile(ctx, token)
	if err != nil {
		slog.Warn("restoring session failed, clearing token", "error", err)
		return errors.Join(err, s.SignOut(ctx))
	}
	s.set(&user, token)
	return nil
}

// SignIn logs in, stores the token and loads the profile.
func (s *Session) SignIn(ctx context.Context, email, password string) (User, error) {
	if s.account == nil {
		return User{}, ErrUnauthenticated
	}
	token, err := s.account.Login(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	if err := s.store.Set(ctx, TokenKey, token); err != nil {
		slog.Error("failed to store token", "error", err)
	}

	user, err := s.account.Profile(ctx, token)
	if err != nil {
		return User{}, err
	}
	s.set(&user, token)
	slog.Info("signed in", "user_id", user.ID)
	return user, nil
}

// SignUp registers then signs in with the same credentials.
func (s *Session) SignUp(ctx context.Context, req RegisterRequest) (User, error) {
	if s.account == nil {
		return User{}, ErrUnauthenticated
	}
	if err := s.account.Register(ctx, req); err != nil {
		return User{}, err
	}
	return s.SignIn(ctx, req.Email, req.Password)
}

// SignOut forgets the user and the stored token.
func (s *Session) SignOut(ctx context.Context) error {
	s.set(nil, "")
	return s.store.Remove(ctx, TokenKey)
}

// Refresh reloads the profile. Failure signs the session out.
func (s *Session) Refresh(ctx context.Context) (User, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" || s.account == nil {
		return User{}, ErrUnauthenticated
	}

	user, err := s.account.Profile(ctx, token)
	if err != nil {
		return User{}, errors.Join(err, s.SignOut(ctx))
	}
	s.set(&user, token)
	return user, nil
}

// User returns the signed-in user.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether a user is signed in.
func (s *Session) Authenticated() bool {
	_, ok := s.User()
	return ok
}

// UserID returns the signed-in user's id, or "" when signed out.
func (s *Session) UserID() string {
	u, _ := s.User()
	return u.ID
}

// TokenExpired reports whether the current token carries an expiry at or
// before now. Tokens without an expiry claim never expire here.
func (s *Session) TokenExpired(now time.Time) bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	return expired(token, now)
}

func (s *Session) set(user *User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = token
}

// expired reads the exp claim without verifying the signature.
func expired(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
