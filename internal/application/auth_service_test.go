package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-rooms/internal/persistence"
)

func plainVerifier(hashed, password string) error {
	if hashed != password {
		return ErrInvalidCredentials
	}
	return nil
}

func sequence(values ...string) func() string {
	return func() string {
		if len(values) == 0 {
			return "fallback"
		}
		next := values[0]
		values = values[1:]
		return next
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		creds := &credentialStoreStub{
			credentials: UserCredentials{
				User:         User{ID: "user-1", Email: "user@example.com"},
				PasswordHash: "secret",
			},
		}

		repo := newSessionRepositoryStub()
		svc := NewAuthService(creds, repo, plainVerifier, sequence("session-id", "session-token"), func() time.Time { return now }, time.Hour)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: " User@Example.com ", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		if result.Session.ID != "session-id" || result.Session.Token != "session-token" {
			t.Fatalf("unexpected session identifiers: %#v", result.Session)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour out, got %v", result.Session.ExpiresAt)
		}
		if creds.lastEmail != "user@example.com" {
			t.Fatalf("expected normalized email lookup, got %q", creds.lastEmail)
		}
		if len(repo.deleteCalls) != 1 || !repo.deleteCalls[0].Equal(now) {
			t.Fatalf("expected DeleteExpiredSessions to be called with now, got %#v", repo.deleteCalls)
		}
	})

	t.Run("accepts argon2id hashes by default", func(t *testing.T) {
		t.Parallel()

		hash, err := CreatePasswordHash("correct horse", testArgon2Params)
		if err != nil {
			t.Fatalf("CreatePasswordHash failed: %v", err)
		}
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: hash}}
		svc := NewAuthService(creds, newSessionRepositoryStub(), nil, sequence("id", "token"), time.Now, time.Hour)

		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "correct horse"}); err != nil {
			t.Fatalf("expected hash to verify, got %v", err)
		}
		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "wrong horse"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects blank input", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, nil, plainVerifier, nil, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "  ", Password: "secret"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects invalid credentials with sentinel error", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user"}, PasswordHash: "expected"},
		}
		svc := NewAuthService(creds, nil, plainVerifier, nil, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("hides unknown accounts", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{err: persistence.ErrNotFound}
		svc := NewAuthService(creds, nil, plainVerifier, nil, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "ghost@example.com", Password: "secret"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user"}, PasswordHash: "secret"},
		}
		repo := newSessionRepositoryStub()
		repo.createErr = expected

		svc := NewAuthService(creds, repo, plainVerifier, sequence("token"), time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected error %v, got %v", expected, err)
		}
	})

	t.Run("propagates cleanup failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("cleanup-failed")
		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user"}, PasswordHash: "secret"},
		}
		repo := newSessionRepositoryStub()
		repo.deleteErr = expected

		svc := NewAuthService(creds, repo, plainVerifier, sequence("token"), time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected cleanup error %v, got %v", expected, err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	t.Run("revokes active sessions", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		repo := newSessionRepositoryStub()
		repo.seed(Session{ID: "session-1", UserID: "user", Token: "token", ExpiresAt: now.Add(time.Hour), UpdatedAt: now, CreatedAt: now})

		svc := NewAuthService(nil, repo, nil, nil, func() time.Time { return now }, time.Hour)

		if err := svc.RevokeSession(context.Background(), "token"); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}

		stored := repo.sessionsByID["session-1"]
		if stored.RevokedAt == nil || stored.RevokedAt.IsZero() {
			t.Fatalf("expected RevokedAt to be set, got %#v", stored.RevokedAt)
		}
		if len(repo.deleteCalls) == 0 {
			t.Fatalf("expected DeleteExpiredSessions to be invoked")
		}
	})

	t.Run("ignores prune failures after revoking", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		repo := newSessionRepositoryStub()
		repo.seed(Session{ID: "session-1", UserID: "user", Token: "token", ExpiresAt: now.Add(time.Hour), UpdatedAt: now, CreatedAt: now})
		repo.deleteErr = errors.New("locked")

		svc := NewAuthService(nil, repo, nil, nil, func() time.Time { return now }, time.Hour)

		if err := svc.RevokeSession(context.Background(), "token"); err != nil {
			t.Fatalf("expected revoke to succeed, got %v", err)
		}
		if repo.sessionsByID["session-1"].RevokedAt == nil {
			t.Fatalf("expected session to stay revoked")
		}
	})

	t.Run("requires non-empty token", func(t *testing.T) {
		t.Parallel()

		repo := newSessionRepositoryStub()
		svc := NewAuthService(nil, repo, nil, nil, time.Now, time.Hour)

		if err := svc.RevokeSession(context.Background(), "  "); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("maps missing tokens to invalid credentials", func(t *testing.T) {
		t.Parallel()

		repo := newSessionRepositoryStub()
		repo.revokeErr = ErrNotFound
		svc := NewAuthService(nil, repo, nil, nil, time.Now, time.Hour)

		if err := svc.RevokeSession(context.Background(), "missing"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		repo := newSessionRepositoryStub()
		repo.revokeErr = expected
		svc := NewAuthService(nil, repo, nil, nil, time.Now, time.Hour)

		if err := svc.RevokeSession(context.Background(), "token"); !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	t.Run("returns principal for active session", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1", Email: "user@example.com", IsAdmin: true}}}
		repo := newSessionRepositoryStub()
		repo.seed(Session{ID: "session-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour), UpdatedAt: now, CreatedAt: now})
		svc := NewAuthService(creds, repo, nil, nil, func() time.Time { return now }, time.Hour)

		principal, err := svc.ValidateSession(context.Background(), " token ")
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}

		if principal.UserID != "user-1" || !principal.IsAdmin || principal.Email != "user@example.com" {
			t.Fatalf("unexpected principal: %#v", principal)
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}}}
		repo := newSessionRepositoryStub()
		repo.seed(Session{ID: "session-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(-time.Minute), UpdatedAt: now, CreatedAt: now})
		svc := NewAuthService(creds, repo, nil, nil, func() time.Time { return now }, time.Hour)

		_, err := svc.ValidateSession(context.Background(), "token")
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		revoked := now.Add(-time.Minute)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}}}
		repo := newSessionRepositoryStub()
		repo.seed(Session{ID: "session-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked, UpdatedAt: now, CreatedAt: now})
		svc := NewAuthService(creds, repo, nil, nil, func() time.Time { return now }, time.Hour)

		_, err := svc.ValidateSession(context.Background(), "token")
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects empty tokens", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}}}
		repo := newSessionRepositoryStub()
		repo.seed(Session{ID: "session-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour), UpdatedAt: now, CreatedAt: now})
		svc := NewAuthService(creds, repo, nil, nil, func() time.Time { return now }, time.Hour)

		_, err := svc.ValidateSession(context.Background(), "  ")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("returns unauthorized when user record is missing", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "other"}}}
		repo := newSessionRepositoryStub()
		repo.seed(Session{ID: "session-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour), UpdatedAt: now, CreatedAt: now})
		svc := NewAuthService(creds, repo, nil, nil, func() time.Time { return now }, time.Hour)

		_, err := svc.ValidateSession(context.Background(), "token")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		expected := errors.New("boom")
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}}}
		repo := newSessionRepositoryStub()
		repo.getErr = expected
		svc := NewAuthService(creds, repo, nil, nil, func() time.Time { return now }, time.Hour)

		_, err := svc.ValidateSession(context.Background(), "token")
		if !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

// credentialStoreStub implements CredentialStore for tests.
type credentialStoreStub struct {
	credentials UserCredentials
	err         error
	lastEmail   string
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	c.lastEmail = email
	if c.err != nil {
		return UserCredentials{}, c.err
	}
	if c.credentials.User.ID == "" {
		return UserCredentials{}, ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	if c.err != nil {
		return User{}, c.err
	}
	if c.credentials.User.ID == id {
		return c.credentials.User, nil
	}
	return User{}, ErrNotFound
}

// sessionRepositoryStub provides an in-memory implementation of SessionRepository for tests.
type sessionRepositoryStub struct {
	sessionsByID map[string]Session
	tokenToID    map[string]string

	createErr error
	getErr    error
	revokeErr error
	deleteErr error

	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{
		sessionsByID: make(map[string]Session),
		tokenToID:    make(map[string]string),
	}
}

func (s *sessionRepositoryStub) seed(session Session) {
	s.sessionsByID[session.ID] = cloneSession(session)
	s.tokenToID[session.Token] = session.ID
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.seed(session)
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return cloneSession(s.sessionsByID[id]), nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session := s.sessionsByID[id]
	revoked := revokedAt.UTC()
	session.RevokedAt = &revoked
	session.UpdatedAt = revoked
	s.sessionsByID[id] = session
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	cutoff := reference.UTC()
	s.deleteCalls = append(s.deleteCalls, cutoff)
	for id, session := range s.sessionsByID {
		if session.ExpiresAt.IsZero() {
			continue
		}
		if !session.ExpiresAt.After(cutoff) {
			delete(s.sessionsByID, id)
			delete(s.tokenToID, session.Token)
		}
	}
	return nil
}

func cloneSession(session Session) Session {
	clone := session
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC()
		clone.RevokedAt = &revoked
	}
	return clone
}
