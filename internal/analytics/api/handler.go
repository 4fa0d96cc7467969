package analytics_api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-reservation/internal/analytics"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/utils"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/events/{eventId}/sales", h.GetEventSales)
}

// GetEventSales returns the per-tier sales summary for an event.
func (h *Handler) GetEventSales(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Bad Request", "eventId must be a positive integer", "INVALID_ARGUMENT"))
		return
	}
	h.Logger.Debug("ANALYTICS", fmt.Sprintf("sales requested for event %d", eventID))

	sales, err := h.Service.GetEventSales(r.Context(), eventID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("sales for event %d: %v", eventID, err))
		utils.WriteError(w, err, "Failed to retrieve sales", "ANALYTICS_FAILED")
		return
	}
	utils.WriteJSON(w, http.StatusOK, sales)
}
