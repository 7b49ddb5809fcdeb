package http

import (
	"context"

	"github.com/example/meeting-rooms/internal/application"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	meetingIDContextKey contextKey = "meeting_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithMeetingID injects the meeting identifier resolved from the request path.
func ContextWithMeetingID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, meetingIDContextKey, id)
}

// MeetingIDFromContext extracts a meeting identifier previously associated with the context.
func MeetingIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(meetingIDContextKey).(int64)
	return id, ok
}
