package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/meeting-rooms/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
}

// PasswordHasher turns a plain password into a storable hash.
type PasswordHasher func(password string) (string, error)

// UserService registers accounts.
type UserService struct {
	users       UserRepository
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hash, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hash: hash, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// Register validates the sign-up form and stores a new regular account.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	logger := serviceLogger(ctx, s.logger, "UserService", "Register", "username", params.Username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	if vErr := validateRegistration(params); vErr.HasErrors() {
		err = vErr
		return
	}

	var hashed string
	hashed, err = s.hash(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user, err = s.users.CreateUser(ctx, User{
		ID:        s.idGenerator(),
		Username:  params.Username,
		Email:     params.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}, hashed)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) || errors.Is(err, ErrAlreadyExists) {
			err = ErrAlreadyExists
		}
		return
	}
	return
}

func validateRegistration(params RegisterParams) *ValidationError {
	vErr := &ValidationError{}

	switch n := utf8.RuneCountInString(params.Username); {
	case n == 0:
		vErr.Add("username", "username is required")
	case n < 3 || n > 50:
		vErr.Add("username", "username must be between 3 and 50 characters")
	}

	if params.Email == "" {
		vErr.Add("email", "email is required")
	} else if addr, err := mail.ParseAddress(params.Email); err != nil || addr.Address != params.Email {
		vErr.Add("email", "email must be a valid address")
	}

	if utf8.RuneCountInString(params.Password) < 8 {
		vErr.Add("password", "password must be at least 8 characters")
	}

	return vErr
}
