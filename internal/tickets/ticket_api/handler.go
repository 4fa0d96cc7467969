package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
	"ms-reservation/internal/reservation"
	qr "ms-reservation/internal/tickets/qr_generator"
	"ms-reservation/internal/utils"
)

type Handler struct {
	Engine      *reservation.Engine
	QRGenerator *qr.QRGenerator
	Clock       clock.Clock
	Logger      *logger.Logger
}

func NewHandler(engine *reservation.Engine, generator *qr.QRGenerator, clk clock.Clock, log *logger.Logger) *Handler {
	return &Handler{
		Engine:      engine,
		QRGenerator: generator,
		Clock:       clk,
		Logger:      log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/tickets/{holdId}/qr", h.GetTicketQR)
	r.Post("/api/tickets/verify", h.VerifyTicket)
}

// GetTicketQR serves the QR code of a confirmed ticket as PNG.
func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdId")
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Bad Request", "user_id query parameter is required", "INVALID_ARGUMENT"))
		return
	}

	hold, err := h.Engine.Ticket(r.Context(), holdID, userID)
	if err != nil {
		utils.WriteError(w, err, "Failed to load ticket", "TICKET_LOAD_FAILED")
		return
	}

	png, err := h.QRGenerator.GenerateTicketQR(hold, h.Clock.Now())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketQR: ticket %s: %v", holdID, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to generate QR code", "Failed to generate QR code", "QR_GENERATION_FAILED"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=ticket-%s.png", holdID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicketQR: write failed: %v", err))
	}
}

// VerifyTicket decodes a scanned QR token and checks the ticket it names is
// still a confirmed sale.
// Expected POST body: {"encrypted_qr": "..."}
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EncryptedQR string `json:"encrypted_qr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EncryptedQR == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Bad Request", "encrypted_qr is required", "INVALID_ARGUMENT"))
		return
	}

	payload, err := h.QRGenerator.Decrypt(body.EncryptedQR)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("VerifyTicket: undecodable QR: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Bad Request", "invalid QR code", "INVALID_QR"))
		return
	}

	hold, err := h.Engine.Ticket(r.Context(), payload.TicketID, payload.UserID)
	if err != nil {
		utils.WriteError(w, err, "Failed to verify ticket", "TICKET_VERIFY_FAILED")
		return
	}
	if hold.EventID != payload.EventID {
		utils.WriteError(w, models.ErrNotFoundOrUnauthorized, "", "")
		return
	}

	h.Logger.Info("API", fmt.Sprintf("VerifyTicket: ticket %s valid for event %d", hold.ID, hold.EventID))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket is valid", hold))
}
