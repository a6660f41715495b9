package get_performer_bookings

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kir4ng/PCS-BookingService/internal/api/handlers"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/performers/{performerId}/bookings?from=...&to=...&active=true
//
// from/to в формате RFC3339 ограничивают выборку по времени начала звонка,
// active=true оставляет только слот-блокирующие брони (расписание исполнителя)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	performerIDStr := mux.Vars(r)["performerId"]

	performerID, err := strconv.ParseInt(performerIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("GET /performers/{id}/bookings - Invalid performer ID: %v", err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidInput)
		return
	}

	var from, to *time.Time
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.logger.Warn("GET /performers/{id}/bookings - Invalid from: %v", err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidInput)
			return
		}
		from = &t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.logger.Warn("GET /performers/{id}/bookings - Invalid to: %v", err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidInput)
			return
		}
		to = &t
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	result, err := h.service.GetPerformerBookings(r.Context(), performerID, from, to, activeOnly)
	if err != nil {
		h.logger.Error("GET /performers/{id}/bookings - Failed: performer_id=%d, error=%v", performerID, err)
		handlers.RespondInternalError(w)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
