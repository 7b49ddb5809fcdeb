package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/meeting-rooms/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	pool *ConnectionPool

	Users      *UserRepository
	Meetings   *MeetingRepository
	Sessions   *SessionRepository
	Deliveries *DeliveryLogRepository
}

// Open connects to the database described by config.
func Open(ctx context.Context, config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:       pool,
		Users:      NewUserRepository(pool),
		Meetings:   NewMeetingRepository(pool),
		Sessions:   NewSessionRepository(pool),
		Deliveries: NewDeliveryLogRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		logger,
	)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
