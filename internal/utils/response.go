package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ms-reservation/internal/models"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"detail,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, detail, code string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     detail,
		ErrorCode: code,
		Timestamp: time.Now(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters only for errors wrapping more than one sentinel.
var errorMappings = []errorMapping{
	{models.ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{models.ErrNotFoundOrUnauthorized, http.StatusNotFound, "TICKET_NOT_FOUND"},
	{models.ErrEventAlreadyOccurred, http.StatusBadRequest, "EVENT_ALREADY_OCCURRED"},
	{models.ErrInsufficientAvailability, http.StatusBadRequest, "INSUFFICIENT_TICKETS"},
	{models.ErrCapacityExceeded, http.StatusBadRequest, "CAPACITY_EXCEEDED"},
	{models.ErrReservationExpired, http.StatusBadRequest, "RESERVATION_EXPIRED"},
	{models.ErrCancellationWindowClosed, http.StatusBadRequest, "CANCELLATION_WINDOW_CLOSED"},
	{models.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
}

// StatusFor maps an error to its HTTP status and error code. Errors outside
// the business taxonomy are internal failures.
func StatusFor(err error) (int, string, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code, true
		}
	}
	return http.StatusInternalServerError, "", false
}

// WriteError writes a business error verbatim. Anything else becomes a 500
// carrying fallbackMessage and fallbackCode, so internals never leak.
func WriteError(w http.ResponseWriter, err error, fallbackMessage, fallbackCode string) {
	status, code, known := StatusFor(err)
	if !known {
		WriteJSON(w, status, ErrorResponse(fallbackMessage, fallbackMessage, fallbackCode))
		return
	}
	WriteJSON(w, status, ErrorResponse(http.StatusText(status), err.Error(), code))
}
