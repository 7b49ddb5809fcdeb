package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/scheduler"
)

type meetingService interface {
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (int64, error)
	GetMeeting(ctx context.Context, id int64) (application.Meeting, error)
	ListMeetings(ctx context.Context, filter application.MeetingFilter) ([]application.Meeting, error)
	UpdateMeeting(ctx context.Context, params application.UpdateMeetingParams) (bool, error)
	CancelMeeting(ctx context.Context, params application.CancelMeetingParams) (bool, error)
	ListDeliveries(ctx context.Context, meetingID int64) ([]application.DeliveryRecord, error)
}

type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

// List serves GET /meetings. Cancelled meetings are included unless
// include_cancelled=false.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := application.MeetingFilter{IncludeCancelled: true}
	vErr := &application.ValidationError{}

	if date := strings.TrimSpace(query.Get("date")); date != "" {
		if _, err := scheduler.ParseDate(date); err != nil {
			vErr.Add("date", "date must use YYYY-MM-DD")
		}
		filter.Date = &date
	}
	if raw := strings.TrimSpace(query.Get("include_cancelled")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			vErr.Add("include_cancelled", "include_cancelled must be true or false")
		}
		filter.IncludeCancelled = include
	}
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	meetings, err := h.service.ListMeetings(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := meetingListResponse{Meetings: make([]meetingDTO, 0, len(meetings))}
	for _, meeting := range meetings {
		resp.Meetings = append(resp.Meetings, toMeetingDTO(meeting))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	var req createMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create").WarnContext(r.Context(), "failed to decode meeting", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	vErr := &application.ValidationError{}
	start := parseTime(vErr, "start_time", req.StartTime)
	end := parseTime(vErr, "end_time", req.EndTime)
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	id, err := h.service.CreateMeeting(r.Context(), application.CreateMeetingParams{
		Principal: principal,
		Draft: application.MeetingDraft{
			Title:        req.Title,
			Date:         req.Date,
			Start:        start,
			End:          end,
			Location:     req.Location,
			Note:         req.Note,
			Participants: req.Participants,
			CreatedBy:    principal.Email,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createMeetingResponse{ID: id})
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}

	meeting, err := h.service.GetMeeting(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMeetingDTO(meeting))
}

// Update applies a sparse PATCH; absent members are left unchanged.
func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	var req updateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "meeting_id", id).WarnContext(r.Context(), "failed to decode meeting changes", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	changes, vErr := req.toChanges()
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	changed, err := h.service.UpdateMeeting(r.Context(), application.UpdateMeetingParams{
		Principal: principal,
		MeetingID: id,
		Changes:   changes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, updateMeetingResponse{Changed: changed})
}

func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	cancelled, err := h.service.CancelMeeting(r.Context(), application.CancelMeetingParams{
		Principal: principal,
		MeetingID: id,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancelMeetingResponse{Cancelled: cancelled})
}

// Notifications lists the delivery log of one meeting.
func (h *MeetingHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	id, ok := h.meetingID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.GetMeeting(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	records, err := h.service.ListDeliveries(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := deliveryListResponse{Deliveries: make([]deliveryDTO, 0, len(records))}
	for _, record := range records {
		resp.Deliveries = append(resp.Deliveries, deliveryDTO{
			ID:           record.ID,
			Recipient:    record.Recipient,
			Type:         string(record.Action),
			Status:       record.Status,
			ErrorMessage: record.ErrorMessage,
			SentAt:       record.SentAt.UTC().Format(time.RFC3339),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *MeetingHandler) meetingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return 0, false
	}
	id, ok := MeetingIDFromContext(r.Context())
	if !ok || id <= 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return 0, false
	}
	return id, true
}

// parseMeetingID accepts positive decimal identifiers only.
func parseMeetingID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidMeetingID
	}
	return id, nil
}

func parseTime(vErr *application.ValidationError, field, value string) scheduler.TimeOfDay {
	value = strings.TrimSpace(value)
	if value == "" {
		vErr.Add(field, field+" is required")
		return scheduler.TimeOfDay{}
	}
	t, err := scheduler.ParseTimeOfDay(value)
	if err != nil {
		vErr.Add(field, field+" must use HH:MM")
		return scheduler.TimeOfDay{}
	}
	return t
}

type createMeetingRequest struct {
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	Location     string   `json:"location"`
	Note         *string  `json:"note"`
	Participants []string `json:"participants"`
}

type createMeetingResponse struct {
	ID int64 `json:"id"`
}

type updateMeetingRequest struct {
	Title        *string   `json:"title"`
	Date         *string   `json:"date"`
	StartTime    *string   `json:"start_time"`
	EndTime      *string   `json:"end_time"`
	Location     *string   `json:"location"`
	Note         *string   `json:"note"`
	Participants *[]string `json:"participants"`
}

func (req updateMeetingRequest) toChanges() (application.MeetingChanges, *application.ValidationError) {
	vErr := &application.ValidationError{}
	changes := application.MeetingChanges{
		Title:        req.Title,
		Date:         req.Date,
		Location:     req.Location,
		Note:         req.Note,
		Participants: req.Participants,
	}
	if req.StartTime != nil {
		start := parseTime(vErr, "start_time", *req.StartTime)
		changes.Start = &start
	}
	if req.EndTime != nil {
		end := parseTime(vErr, "end_time", *req.EndTime)
		changes.End = &end
	}
	return changes, vErr
}

type updateMeetingResponse struct {
	Changed bool `json:"changed"`
}

type cancelMeetingResponse struct {
	Cancelled bool `json:"cancelled"`
}

type meetingDTO struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	Location     string   `json:"location"`
	Note         *string  `json:"note,omitempty"`
	Participants []string `json:"participants"`
	CreatedBy    string   `json:"created_by"`
	UpdatedBy    *string  `json:"updated_by,omitempty"`
	IsCancelled  bool     `json:"is_cancelled"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

type meetingListResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

func toMeetingDTO(meeting application.Meeting) meetingDTO {
	participants := meeting.Participants
	if participants == nil {
		participants = []string{}
	}
	return meetingDTO{
		ID:           meeting.ID,
		Title:        meeting.Title,
		Date:         meeting.Date,
		StartTime:    meeting.Start.String(),
		EndTime:      meeting.End.String(),
		Location:     meeting.Location,
		Note:         meeting.Note,
		Participants: participants,
		CreatedBy:    meeting.CreatedBy,
		UpdatedBy:    meeting.UpdatedBy,
		IsCancelled:  meeting.IsCancelled,
		CreatedAt:    meeting.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    meeting.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type deliveryDTO struct {
	ID           int64   `json:"id"`
	Recipient    string  `json:"recipient"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message,omitempty"`
	SentAt       string  `json:"sent_at"`
}

type deliveryListResponse struct {
	Deliveries []deliveryDTO `json:"deliveries"`
}
