package http

import (
	"log/slog"
	"net/http"

	"github.com/example/meeting-rooms/internal/application"
)

type RoomHandler struct {
	catalog   application.RoomCatalog
	responder responder
}

func NewRoomHandler(catalog application.RoomCatalog, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{catalog: catalog, responder: newResponder(logger)}
}

// List returns the configured rooms in catalog order.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.catalog == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms := h.catalog.Rooms()
	resp := roomListResponse{Rooms: make([]roomDTO, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, roomDTO{
			Name:        room.Name,
			Capacity:    room.Capacity,
			Description: room.Description,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type roomDTO struct {
	Name        string `json:"name"`
	Capacity    int    `json:"capacity,omitempty"`
	Description string `json:"description,omitempty"`
}

type roomListResponse struct {
	Rooms []roomDTO `json:"rooms"`
}
