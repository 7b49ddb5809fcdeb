package testfixtures

import (
	"context"
	"testing"

	"github.com/example/meeting-rooms/internal/application"
)

type capturingUserRepo struct {
	created application.User
	hash    string
}

func (c *capturingUserRepo) CreateUser(_ context.Context, user application.User, passwordHash string) (application.User, error) {
	c.created = user
	c.hash = passwordHash
	return user, nil
}

func TestServiceFactoryNewUserService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingUserRepo{}

	svc := factory.NewUserService(UserServiceDeps{Users: repo})

	user, err := svc.Register(context.Background(), application.RegisterParams{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if user.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", user.ID)
	}
	if repo.created.ID != user.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if !user.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), user.CreatedAt)
	}
	if err := application.VerifyPassword(repo.hash, "correct horse"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRoomsCatalog(t *testing.T) {
	rooms := DefaultRooms.Rooms()
	if len(rooms) != 2 || rooms[0].Name != "Room A" || rooms[1].Name != "Room B" {
		t.Fatalf("unexpected catalog %+v", rooms)
	}
}

func TestMeetingFixtureConversions(t *testing.T) {
	fixture := NewMeetingFixture(
		WithMeetingWindow("13:15", "14:00"),
		WithMeetingParticipants("a@example.com", "b@example.com"),
		WithMeetingNote("agenda"),
	)

	stored := fixture.Persistence()
	if stored.StartHour != 13 || stored.StartMinute != 15 || stored.EndHour != 14 || stored.EndMinute != 0 {
		t.Fatalf("unexpected stored window %+v", stored)
	}
	draft := fixture.Draft()
	if draft.Start.String() != "13:15" || len(draft.Participants) != 2 || *draft.Note != "agenda" {
		t.Fatalf("unexpected draft %+v", draft)
	}

	draft.Participants[0] = "mutated@example.com"
	if fixture.Participants[0] != "a@example.com" {
		t.Fatalf("draft must not alias fixture participants")
	}
}
