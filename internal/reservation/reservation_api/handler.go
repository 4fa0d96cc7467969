package reservation_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	catalog "ms-reservation/internal/catalog/service"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
	"ms-reservation/internal/reservation"
	"ms-reservation/internal/sse"
	"ms-reservation/internal/utils"
)

type Handler struct {
	Engine  *reservation.Engine
	Catalog *catalog.CatalogService
	Emitter *sse.HoldEventEmitter
	Logger  *logger.Logger
}

func NewHandler(engine *reservation.Engine, catalogService *catalog.CatalogService, emitter *sse.HoldEventEmitter, log *logger.Logger) *Handler {
	return &Handler{
		Engine:  engine,
		Catalog: catalogService,
		Emitter: emitter,
		Logger:  log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Get("/{eventId}", h.GetEvent)
		r.Get("/{eventId}/availability", h.GetAvailability)
		r.Get("/{eventId}/stream", h.StreamHoldEvents)
	})
	r.Route("/api/tickets", func(r chi.Router) {
		r.Post("/reserve", h.Reserve)
		r.Post("/confirm/{holdId}", h.Confirm)
		r.Post("/cancel/{holdId}", h.Cancel)
	})
	r.Get("/api/users/{userId}/tickets", h.ListUserTickets)
}

type reserveRequest struct {
	EventID   int64  `json:"event_id"`
	ConcertID int64  `json:"concert_id"`
	UserID    int64  `json:"user_id"`
	Quantity  int    `json:"quantity"`
	SeatType  string `json:"seat_type"`
}

type reservationDetails struct {
	Tickets           []models.Hold `json:"tickets"`
	UnitPrice         float64       `json:"unit_price"`
	TotalAmount       float64       `json:"total_amount"`
	ExpiresAt         time.Time     `json:"expires_at"`
	PaymentRequiredBy time.Time     `json:"payment_required_by"`
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.EventFilter{
		Genre:         q.Get("genre"),
		UpcomingAfter: time.Now().UTC(),
	}

	var err error
	if v := q.Get("min_price"); v != "" {
		price, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			h.badRequest(w, "min_price must be a number")
			return
		}
		filter.MinPrice = &price
	}
	if filter.Skip, err = intQuery(q.Get("skip")); err != nil {
		h.badRequest(w, "skip must be an integer")
		return
	}
	if filter.Limit, err = intQuery(q.Get("limit")); err != nil {
		h.badRequest(w, "limit must be an integer")
		return
	}

	events, err := h.Catalog.ListEvents(r.Context(), filter)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEvents: %v", err))
		utils.WriteError(w, err, "Failed to list events", "EVENT_LIST_FAILED")
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	utils.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.badRequest(w, "Invalid JSON: "+err.Error())
		return
	}
	event.ID = 0

	if err := h.Catalog.CreateEvent(r.Context(), &event); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
		utils.WriteError(w, err, "Failed to create event", "EVENT_CREATE_FAILED")
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateEvent: created event %d %q", event.ID, event.Name))
	utils.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}

	event, err := h.Catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		utils.WriteError(w, err, "Failed to load event", "EVENT_LOAD_FAILED")
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	tier := models.TierGeneral
	if v := r.URL.Query().Get("tier"); v != "" {
		parsed, err := models.ParseTier(v)
		if err != nil {
			utils.WriteError(w, err, "", "")
			return
		}
		tier = parsed
	}

	availability, err := h.Engine.Availability(r.Context(), eventID, tier)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetAvailability: event %d: %v", eventID, err))
		utils.WriteError(w, err, "Failed to compute availability", "AVAILABILITY_FAILED")
		return
	}
	utils.WriteJSON(w, http.StatusOK, availability)
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Invalid JSON: "+err.Error())
		return
	}
	eventID := req.EventID
	if eventID == 0 {
		eventID = req.ConcertID
	}
	if eventID <= 0 || req.UserID <= 0 {
		h.badRequest(w, "event_id and user_id are required")
		return
	}
	tier := models.TierGeneral
	if req.SeatType != "" {
		parsed, err := models.ParseTier(req.SeatType)
		if err != nil {
			utils.WriteError(w, err, "", "")
			return
		}
		tier = parsed
	}
	h.Logger.Info("API", fmt.Sprintf("Reserve: event=%d user=%d tier=%s qty=%d", eventID, req.UserID, tier, req.Quantity))

	res, err := h.Engine.Reserve(r.Context(), eventID, req.UserID, tier, req.Quantity)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Reserve: event %d user %d: %v", eventID, req.UserID, err))
		utils.WriteError(w, err, "Failed to reserve tickets", "RESERVATION_FAILED")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Tickets reserved successfully", map[string]interface{}{
		"reservation_details": reservationDetails{
			Tickets:           res.Holds,
			UnitPrice:         res.UnitPrice,
			TotalAmount:       res.UnitPrice * float64(len(res.Holds)),
			ExpiresAt:         res.ExpiresAt,
			PaymentRequiredBy: res.ExpiresAt,
		},
	}))
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdId")
	userID, ok := h.userQuery(w, r)
	if !ok {
		return
	}

	hold, err := h.Engine.Confirm(r.Context(), holdID, userID)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Confirm: hold %s user %d: %v", holdID, userID, err))
		utils.WriteError(w, err, "Failed to confirm ticket", "CONFIRMATION_FAILED")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket purchase confirmed", hold))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdId")
	userID, ok := h.userQuery(w, r)
	if !ok {
		return
	}

	hold, err := h.Engine.Cancel(r.Context(), holdID, userID)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Cancel: hold %s user %d: %v", holdID, userID, err))
		utils.WriteError(w, err, "Failed to cancel ticket", "CANCELLATION_FAILED")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket cancelled successfully", hold))
}

func (h *Handler) ListUserTickets(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}

	holds, err := h.Engine.HoldsForBuyer(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListUserTickets: user %d: %v", userID, err))
		utils.WriteError(w, err, "Failed to list tickets", "TICKET_LIST_FAILED")
		return
	}
	if holds == nil {
		holds = []models.Hold{}
	}
	utils.WriteJSON(w, http.StatusOK, holds)
}

// StreamHoldEvents pushes hold lifecycle events for one event as SSE until
// the client goes away.
func (h *Handler) StreamHoldEvents(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	events := h.Emitter.Subscribe(ctx, eventID)

	setupSSEHeaders(w)
	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"event_id\":%d}\n\n", eventID)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("client subscribed to hold events for event %d", eventID))

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("failed to encode hold event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("client left hold events for event %d", eventID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) userQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, "user_id query parameter is required")
		return 0, false
	}
	return id, true
}

func (h *Handler) badRequest(w http.ResponseWriter, detail string) {
	utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Bad Request", detail, "INVALID_ARGUMENT"))
}

func intQuery(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
