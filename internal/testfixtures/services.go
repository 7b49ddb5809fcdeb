package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// Rooms is a fixed catalog for tests.
type Rooms []string

// DefaultRooms mirrors the shipped two-room catalog.
var DefaultRooms = Rooms{"Room A", "Room B"}

// Rooms implements application.RoomCatalog.
func (r Rooms) Rooms() []application.Room {
	out := make([]application.Room, 0, len(r))
	for _, name := range r {
		out = append(out, application.Room{Name: name})
	}
	return out
}

// MeetingServiceDeps captures dependencies for constructing a meeting service.
// Zero values fall back to the factory clock, DefaultRooms and the default
// business hours.
type MeetingServiceDeps struct {
	Meetings   application.MeetingRepository
	Rooms      application.RoomCatalog
	Deliveries application.DeliveryLog
	Notifier   application.Notifier
	Locker     application.DateLocker
	Metrics    application.Metrics
	Hours      *scheduler.BusinessHours
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewMeetingService builds a meeting service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewMeetingService(deps MeetingServiceDeps) *application.MeetingService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	rooms := deps.Rooms
	if rooms == nil {
		rooms = DefaultRooms
	}
	hours := scheduler.DefaultBusinessHours()
	if deps.Hours != nil {
		hours = *deps.Hours
	}
	return application.NewMeetingService(application.MeetingServiceDeps{
		Meetings:      deps.Meetings,
		Rooms:         rooms,
		Deliveries:    deps.Deliveries,
		Notifier:      deps.Notifier,
		BusinessHours: hours,
		Locker:        deps.Locker,
		Metrics:       deps.Metrics,
		Now:           now,
		Logger:        deps.Logger,
	})
}

// NewAvailabilityService builds an availability service over DefaultRooms
// when rooms is nil.
func (f *ServiceFactory) NewAvailabilityService(meetings application.MeetingRepository, rooms application.RoomCatalog, logger *slog.Logger) *application.AvailabilityService {
	if rooms == nil {
		rooms = DefaultRooms
	}
	return application.NewAvailabilityServiceWithLogger(meetings, rooms, nil, logger)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users       application.UserRepository
	Hash        application.PasswordHasher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies. The
// default hasher is a cheap argon2id configuration.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	hash := deps.Hash
	if hash == nil {
		hash = FastPasswordHash
	}
	return application.NewUserServiceWithLogger(
		deps.Users,
		hash,
		idGen,
		now,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	token := deps.TokenGenerator
	if token == nil {
		token = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		deps.PasswordVerify,
		token,
		now,
		deps.SessionTTL,
		deps.Logger,
	)
}

// FastArgon2idParams keeps password hashing quick in tests.
var FastArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// FastPasswordHash hashes with FastArgon2idParams.
func FastPasswordHash(password string) (string, error) {
	return application.CreatePasswordHash(password, FastArgon2idParams)
}
