package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-rooms/internal/persistence"
)

const meetingColumns = `id, title, date, start_hour, start_minute, end_hour, end_minute, location, note,
	created_by, updated_by, is_cancelled, created_at, updated_at`

// MeetingRepository implements persistence.MeetingRepository using SQLite
type MeetingRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewMeetingRepository creates a new SQLite meeting repository
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{pool: pool, now: time.Now}
}

// FindMeetingsByDate returns the meetings on date ordered by start time, with
// their participants, read in a single transaction.
func (r *MeetingRepository) FindMeetingsByDate(ctx context.Context, date string, includeCancelled bool) ([]persistence.Meeting, error) {
	where := "date = ?"
	if !includeCancelled {
		where += " AND is_cancelled = 0"
	}

	var meetings []persistence.Meeting
	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		meetings, err = r.queryMeetings(ctx, tx, where, "start_hour, start_minute, id", date)
		return err
	})
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// ListMeetings returns meetings newest date first, then by start time.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	var conditions []string
	var args []any
	if filter.Date != nil {
		conditions = append(conditions, "date = ?")
		args = append(args, *filter.Date)
	}
	if !filter.IncludeCancelled {
		conditions = append(conditions, "is_cancelled = 0")
	}
	where := "1 = 1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	var meetings []persistence.Meeting
	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		meetings, err = r.queryMeetings(ctx, tx, where, "date DESC, start_hour, start_minute, id", args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// FindMeetingByID retrieves a meeting and its participants.
func (r *MeetingRepository) FindMeetingByID(ctx context.Context, id int64) (persistence.Meeting, error) {
	var meeting persistence.Meeting
	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		meetings, err := r.queryMeetings(ctx, tx, "id = ?", "id", id)
		if err != nil {
			return err
		}
		if len(meetings) == 0 {
			return persistence.ErrNotFound
		}
		meeting = meetings[0]
		return nil
	})
	if err != nil {
		return persistence.Meeting{}, err
	}
	return meeting, nil
}

// InsertMeeting stores the meeting row and its participant rows in one
// transaction. Nothing is written when either insert fails.
func (r *MeetingRepository) InsertMeeting(ctx context.Context, meeting persistence.Meeting) (int64, error) {
	now := formatTimestamp(r.now())

	var id int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO meetings (title, date, start_hour, start_minute, end_hour, end_minute, location, note,
				created_by, updated_by, is_cancelled, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0, ?, ?)
		`,
			meeting.Title,
			meeting.Date,
			meeting.StartHour,
			meeting.StartMinute,
			meeting.EndHour,
			meeting.EndMinute,
			meeting.Location,
			nullString(meeting.Note),
			meeting.CreatedBy,
			now,
			now,
		)
		if err != nil {
			return mapError(err)
		}

		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read meeting id: %w", err)
		}

		return insertParticipants(ctx, tx, id, meeting.Participants)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateMeetingFields applies the non-nil fields and stamps updated_by and
// updated_at. Participants are replaced inside the same transaction, so a
// rejected participant list also rolls back the column changes.
func (r *MeetingRepository) UpdateMeetingFields(ctx context.Context, id int64, fields persistence.MeetingFields) (int64, error) {
	var sets []string
	var args []any

	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if fields.Title != nil {
		add("title", *fields.Title)
	}
	if fields.Date != nil {
		add("date", *fields.Date)
	}
	if fields.StartHour != nil {
		add("start_hour", *fields.StartHour)
	}
	if fields.StartMinute != nil {
		add("start_minute", *fields.StartMinute)
	}
	if fields.EndHour != nil {
		add("end_hour", *fields.EndHour)
	}
	if fields.EndMinute != nil {
		add("end_minute", *fields.EndMinute)
	}
	if fields.Location != nil {
		add("location", *fields.Location)
	}
	if fields.Note != nil {
		if *fields.Note == "" {
			add("note", nil)
		} else {
			add("note", *fields.Note)
		}
	}
	add("updated_by", optionalString(fields.UpdatedBy))
	add("updated_at", formatTimestamp(r.now()))
	args = append(args, id)

	query := "UPDATE meetings SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	var affected int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return mapError(err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 || fields.Participants == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM meeting_participants WHERE meeting_id = ?", id); err != nil {
			return mapError(err)
		}
		return insertParticipants(ctx, tx, id, *fields.Participants)
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// SetCancelled flips is_cancelled for an active meeting only.
func (r *MeetingRepository) SetCancelled(ctx context.Context, id int64, cancelledBy string) (int64, error) {
	var affected int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE meetings SET is_cancelled = 1, updated_by = ?, updated_at = ?
			WHERE id = ? AND is_cancelled = 0
		`, optionalString(cancelledBy), formatTimestamp(r.now()), id)
		if err != nil {
			return mapError(err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// FindParticipants returns the participants of a meeting in insertion order.
func (r *MeetingRepository) FindParticipants(ctx context.Context, meetingID int64) ([]string, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT participant_email FROM meeting_participants
		WHERE meeting_id = ?
		ORDER BY position
	`, meetingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, mapError(err)
		}
		participants = append(participants, email)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return participants, nil
}

// ReplaceParticipants deletes every membership row of the meeting and
// inserts the given list.
func (r *MeetingRepository) ReplaceParticipants(ctx context.Context, meetingID int64, participants []string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM meetings WHERE id = ?", meetingID).Scan(&exists); err != nil {
			return mapError(err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM meeting_participants WHERE meeting_id = ?", meetingID); err != nil {
			return mapError(err)
		}
		return insertParticipants(ctx, tx, meetingID, participants)
	})
}

func insertParticipants(ctx context.Context, tx *sql.Tx, meetingID int64, participants []string) error {
	for position, participant := range participants {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meeting_participants (meeting_id, participant_email, position) VALUES (?, ?, ?)",
			meetingID, participant, position,
		); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// queryMeetings selects meetings matching where and attaches participants
// with a second query over the same predicate.
func (r *MeetingRepository) queryMeetings(ctx context.Context, q querier, where, orderBy string, args ...any) ([]persistence.Meeting, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+meetingColumns+" FROM meetings WHERE "+where+" ORDER BY "+orderBy, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	index := make(map[int64]int)
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		index[meeting.ID] = len(meetings)
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(meetings) == 0 {
		return nil, nil
	}

	participantRows, err := q.QueryContext(ctx, `
		SELECT meeting_id, participant_email FROM meeting_participants
		WHERE meeting_id IN (SELECT id FROM meetings WHERE `+where+`)
		ORDER BY meeting_id, position
	`, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer participantRows.Close()

	for participantRows.Next() {
		var meetingID int64
		var email string
		if err := participantRows.Scan(&meetingID, &email); err != nil {
			return nil, mapError(err)
		}
		if i, ok := index[meetingID]; ok {
			meetings[i].Participants = append(meetings[i].Participants, email)
		}
	}
	if err := participantRows.Err(); err != nil {
		return nil, mapError(err)
	}

	return meetings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var meeting persistence.Meeting
	var note, updatedBy sql.NullString
	var cancelled int
	var createdAt, updatedAt string

	if err := row.Scan(
		&meeting.ID,
		&meeting.Title,
		&meeting.Date,
		&meeting.StartHour,
		&meeting.StartMinute,
		&meeting.EndHour,
		&meeting.EndMinute,
		&meeting.Location,
		&note,
		&meeting.CreatedBy,
		&updatedBy,
		&cancelled,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Meeting{}, mapError(err)
	}

	meeting.Note = stringPtr(note)
	meeting.UpdatedBy = stringPtr(updatedBy)
	meeting.IsCancelled = cancelled != 0

	var err error
	if meeting.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Meeting{}, err
	}
	return meeting, nil
}
