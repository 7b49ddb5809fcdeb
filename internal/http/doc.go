// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /users: public self-registration. Body: {"username","email","password"}.
//   - POST /sessions: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at"} with the token also surfaced via the `X-Session-Token`
//     header and a `session_token` cookie. Attempts are throttled per email
//     and answer 429 once the budget is spent.
//   - DELETE /sessions/current: revokes the token carried by the request.
//   - GET /rooms: the configured room catalog.
//   - POST /availability: room availability and participant conflicts for a
//     window. Body: {"date","start_time","end_time","participants","exclude_meeting_id"}.
//   - GET /meetings?date=&include_cancelled=, POST /meetings: list and create.
//   - GET, PATCH, DELETE /meetings/{id}: read, sparse update and cancel.
//   - GET /meetings/{id}/notifications: the notification delivery log.
//
// Every endpoint except registration and login requires a session. Times
// travel as "HH:MM" and dates as "YYYY-MM-DD". DTOs live alongside their
// handlers.
package http
