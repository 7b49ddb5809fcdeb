package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/meeting-rooms/internal/persistence"
)

// DeliveryLogRepository implements persistence.DeliveryLogRepository using SQLite
type DeliveryLogRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewDeliveryLogRepository creates a new SQLite delivery log repository
func NewDeliveryLogRepository(pool *ConnectionPool) *DeliveryLogRepository {
	return &DeliveryLogRepository{pool: pool, now: time.Now}
}

// RecordDelivery appends one delivery outcome. A zero SentAt is stamped with
// the repository clock.
func (r *DeliveryLogRepository) RecordDelivery(ctx context.Context, record persistence.DeliveryRecord) error {
	sentAt := record.SentAt
	if sentAt.IsZero() {
		sentAt = r.now()
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notification_log (meeting_id, recipient, notification_type, status, error_message, sent_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			record.MeetingID,
			record.Recipient,
			record.Type,
			record.Status,
			nullString(record.ErrorMessage),
			formatTimestamp(sentAt),
		)
		return mapError(err)
	})
}

// ListDeliveries returns the delivery log of a meeting, oldest first.
func (r *DeliveryLogRepository) ListDeliveries(ctx context.Context, meetingID int64) ([]persistence.DeliveryRecord, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, meeting_id, recipient, notification_type, status, error_message, sent_at
		FROM notification_log
		WHERE meeting_id = ?
		ORDER BY id
	`, meetingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var records []persistence.DeliveryRecord
	for rows.Next() {
		var record persistence.DeliveryRecord
		var errorMessage sql.NullString
		var sentAt string
		if err := rows.Scan(
			&record.ID,
			&record.MeetingID,
			&record.Recipient,
			&record.Type,
			&record.Status,
			&errorMessage,
			&sentAt,
		); err != nil {
			return nil, mapError(err)
		}
		record.ErrorMessage = stringPtr(errorMessage)
		if record.SentAt, err = parseTimestamp("sent_at", sentAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return records, nil
}
