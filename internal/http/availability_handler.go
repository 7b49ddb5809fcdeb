package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/meeting-rooms/internal/application"
)

type availabilityService interface {
	CheckAvailability(ctx context.Context, query application.AvailabilityQuery) (application.AvailabilityResult, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

// Check serves POST /availability.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "AvailabilityHandler", "Check").WarnContext(r.Context(), "failed to decode availability query", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	vErr := &application.ValidationError{}
	start := parseTime(vErr, "start_time", req.StartTime)
	end := parseTime(vErr, "end_time", req.EndTime)
	if req.ExcludeMeetingID != nil && *req.ExcludeMeetingID <= 0 {
		vErr.Add("exclude_meeting_id", "exclude_meeting_id must be a positive integer")
	}
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	result, err := h.service.CheckAvailability(r.Context(), application.AvailabilityQuery{
		Date:             req.Date,
		Start:            start,
		End:              end,
		Participants:     req.Participants,
		ExcludeMeetingID: req.ExcludeMeetingID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	conflicts := result.ParticipantConflicts
	if conflicts == nil {
		conflicts = map[string][]string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		RoomAvailability:     result.RoomAvailability,
		ParticipantConflicts: conflicts,
	})
}

type availabilityRequest struct {
	Date             string   `json:"date"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	Participants     []string `json:"participants"`
	ExcludeMeetingID *int64   `json:"exclude_meeting_id"`
}

type availabilityResponse struct {
	RoomAvailability     map[string]bool     `json:"room_availability"`
	ParticipantConflicts map[string][]string `json:"participant_conflicts"`
}
