package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

// Error is the typed application error raised by domain managers. The
// handlers in internal/api are the only place an Error is mapped to an HTTP
// response; stores and managers never see transport objects.
type Error struct {
	Code    string       `json:"error"`
	Message string       `json:"message"`
	Status  int          `json:"-"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func E(status int, code, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

func Validation(fields []FieldError) *Error {
	return &Error{
		Code:    "VALIDATION_ERROR",
		Message: "Request validation failed",
		Status:  http.StatusBadRequest,
		Fields:  fields,
	}
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the wire shape of every failure response.
type errorBody struct {
	Error     string       `json:"error"`
	Message   string       `json:"message"`
	RequestID string       `json:"requestId"`
	Timestamp string       `json:"timestamp"`
	Fields    []FieldError `json:"fields,omitempty"`

	// Set only on 423 time-lock responses.
	UnlocksAt        string `json:"unlocksAt,omitempty"`
	SecondsRemaining int64  `json:"secondsRemaining,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = E(http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
	}
	WriteJSON(w, appErr.Status, errorBody{
		Error:     appErr.Code,
		Message:   appErr.Message,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields:    appErr.Fields,
	})
}

// WriteLocked writes the distinguished 423 body carrying the unlock instant
// and the seconds remaining, so clients can render a countdown instead of a
// generic error.
func WriteLocked(w http.ResponseWriter, requestID, code, message string, unlocksAt time.Time, secondsRemaining int64) {
	WriteJSON(w, http.StatusLocked, errorBody{
		Error:            code,
		Message:          message,
		RequestID:        requestID,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		UnlocksAt:        unlocksAt.UTC().Format(time.RFC3339),
		SecondsRemaining: secondsRemaining,
	})
}
