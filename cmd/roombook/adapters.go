package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/scheduler"
)

type meetingRepositoryAdapter struct {
	repo persistence.MeetingRepository
}

func newMeetingRepositoryAdapter(repo persistence.MeetingRepository) *meetingRepositoryAdapter {
	return &meetingRepositoryAdapter{repo: repo}
}

func (a *meetingRepositoryAdapter) FindMeetingsByDate(ctx context.Context, date string, includeCancelled bool) ([]application.Meeting, error) {
	models, err := a.repo.FindMeetingsByDate(ctx, date, includeCancelled)
	if err != nil {
		return nil, err
	}
	return toApplicationMeetings(models), nil
}

func (a *meetingRepositoryAdapter) FindMeetingByID(ctx context.Context, id int64) (application.Meeting, error) {
	stored, err := a.repo.FindMeetingByID(ctx, id)
	if err != nil {
		return application.Meeting{}, err
	}
	return toApplicationMeeting(stored), nil
}

func (a *meetingRepositoryAdapter) ListMeetings(ctx context.Context, filter application.MeetingFilter) ([]application.Meeting, error) {
	models, err := a.repo.ListMeetings(ctx, persistence.MeetingFilter{
		Date:             filter.Date,
		IncludeCancelled: filter.IncludeCancelled,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationMeetings(models), nil
}

func (a *meetingRepositoryAdapter) InsertMeeting(ctx context.Context, draft application.MeetingDraft) (int64, error) {
	return a.repo.InsertMeeting(ctx, toPersistenceMeeting(draft))
}

func (a *meetingRepositoryAdapter) UpdateMeetingFields(ctx context.Context, id int64, fields application.MeetingFields) (int64, error) {
	return a.repo.UpdateMeetingFields(ctx, id, toPersistenceFields(fields))
}

func (a *meetingRepositoryAdapter) SetCancelled(ctx context.Context, id int64, cancelledBy string) (int64, error) {
	return a.repo.SetCancelled(ctx, id, cancelledBy)
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, persistence.Session(session))
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

// deliveryLogAdapter serves both the dispatcher, which records outcomes, and
// the meeting service, which lists them.
type deliveryLogAdapter struct {
	repo persistence.DeliveryLogRepository
}

func newDeliveryLogAdapter(repo persistence.DeliveryLogRepository) *deliveryLogAdapter {
	return &deliveryLogAdapter{repo: repo}
}

func (a *deliveryLogAdapter) RecordDelivery(ctx context.Context, record application.DeliveryRecord) error {
	if record.MeetingID <= 0 {
		return errors.New("delivery record without meeting id")
	}
	return a.repo.RecordDelivery(ctx, persistence.DeliveryRecord{
		MeetingID:    record.MeetingID,
		Recipient:    record.Recipient,
		Type:         string(record.Action),
		Status:       record.Status,
		ErrorMessage: record.ErrorMessage,
		SentAt:       record.SentAt,
	})
}

func (a *deliveryLogAdapter) ListDeliveries(ctx context.Context, meetingID int64) ([]application.DeliveryRecord, error) {
	models, err := a.repo.ListDeliveries(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	records := make([]application.DeliveryRecord, 0, len(models))
	for _, model := range models {
		records = append(records, application.DeliveryRecord{
			ID:           model.ID,
			MeetingID:    model.MeetingID,
			Recipient:    model.Recipient,
			Action:       application.Action(model.Type),
			Status:       model.Status,
			ErrorMessage: model.ErrorMessage,
			SentAt:       model.SentAt,
		})
	}
	return records, nil
}

func toApplicationMeetings(models []persistence.Meeting) []application.Meeting {
	if len(models) == 0 {
		return nil
	}
	meetings := make([]application.Meeting, 0, len(models))
	for _, model := range models {
		meetings = append(meetings, toApplicationMeeting(model))
	}
	return meetings
}

func toApplicationMeeting(model persistence.Meeting) application.Meeting {
	return application.Meeting{
		ID:           model.ID,
		Title:        model.Title,
		Date:         model.Date,
		Start:        scheduler.TimeOfDay{Hour: model.StartHour, Minute: model.StartMinute},
		End:          scheduler.TimeOfDay{Hour: model.EndHour, Minute: model.EndMinute},
		Location:     model.Location,
		Note:         model.Note,
		Participants: model.Participants,
		CreatedBy:    model.CreatedBy,
		UpdatedBy:    model.UpdatedBy,
		IsCancelled:  model.IsCancelled,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceMeeting(draft application.MeetingDraft) persistence.Meeting {
	return persistence.Meeting{
		Title:        draft.Title,
		Date:         draft.Date,
		StartHour:    draft.Start.Hour,
		StartMinute:  draft.Start.Minute,
		EndHour:      draft.End.Hour,
		EndMinute:    draft.End.Minute,
		Location:     draft.Location,
		Note:         draft.Note,
		Participants: draft.Participants,
		CreatedBy:    draft.CreatedBy,
	}
}

func toPersistenceFields(fields application.MeetingFields) persistence.MeetingFields {
	out := persistence.MeetingFields{
		Title:        fields.Title,
		Date:         fields.Date,
		Location:     fields.Location,
		Note:         fields.Note,
		Participants: fields.Participants,
		UpdatedBy:    fields.UpdatedBy,
	}
	if fields.Start != nil {
		out.StartHour = &fields.Start.Hour
		out.StartMinute = &fields.Start.Minute
	}
	if fields.End != nil {
		out.EndHour = &fields.End.Hour
		out.EndMinute = &fields.End.Minute
	}
	return out
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Username:  model.Username,
		Email:     model.Email,
		IsAdmin:   model.Role == "admin",
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	return persistence.User{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}
