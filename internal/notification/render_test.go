package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-rooms/internal/application"
)

func TestRenderer_Invitation(t *testing.T) {
	t.Parallel()

	msg, err := NewRenderer(nil).Render(sampleNotification(application.ActionCreated, "bob@example.com"))
	require.NoError(t, err)

	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "Meeting Invitation: Quarterly Review", msg.Subject)
	assert.Contains(t, msg.HTML, "<h2>Meeting Invitation</h2>")
	assert.Contains(t, msg.HTML, "Monday, May 6, 2024")
	assert.Contains(t, msg.HTML, "09:30 - 10:15")
	assert.Contains(t, msg.HTML, "bob@example.com, carol@example.com")
	assert.Contains(t, msg.HTML, "Bring &lt;slides&gt;")
	assert.NotContains(t, msg.HTML, "has been cancelled")
	assert.Contains(t, msg.Text, "Note: Bring <slides>")
	assert.Empty(t, msg.Calendar)
}

func TestRenderer_CreatorHeading(t *testing.T) {
	t.Parallel()

	msg, err := NewRenderer(nil).Render(sampleNotification(application.ActionCreated, "alice@example.com"))
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "<h2>Meeting Created</h2>")
}

func TestRenderer_CancelledBanner(t *testing.T) {
	t.Parallel()

	n := sampleNotification(application.ActionCancelled, "bob@example.com")
	n.Actor = "dave@example.com"
	n.Meeting.Note = nil

	msg, err := NewRenderer(nil).Render(n)
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "cancelled by dave@example.com")
	assert.Contains(t, msg.HTML, "This meeting has been cancelled.")
	assert.NotContains(t, msg.HTML, "<strong>Note:</strong>")
}

func TestRenderer_UpdateWithoutActor(t *testing.T) {
	t.Parallel()

	n := sampleNotification(application.ActionUpdated, "bob@example.com")
	n.Actor = ""

	msg, err := NewRenderer(nil).Render(n)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "updated by the organizer")
}

func TestFormatDate_FallsBackToInput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not-a-date", formatDate("not-a-date"))
}
