package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler maps application errors onto webhook acknowledgment responses.
// The status code is the only business signal the provider reads: 2xx
// acknowledges the event, 4xx rejects it permanently, 5xx asks the provider
// to redeliver it later.
type Handler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

type errorResponse struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code,omitempty"`
}

// RespondError writes the response for err and logs it.
func (h *Handler) RespondError(w http.ResponseWriter, err error) {
	stdErr := h.normalizeError(err)

	status := http.StatusBadRequest
	if stdErr.Retryable {
		status = http.StatusInternalServerError
	}

	h.logError(stdErr)
	writeJSON(w, status, errorResponse{Error: stdErr.Message, Code: stdErr.Code})
}

// RespondStatus writes an error response with an explicit status code,
// for paths where the HTTP semantics matter more than retryability
// (content serving: 403 upgrade-required, 404 not found).
func (h *Handler) RespondStatus(w http.ResponseWriter, status int, err error) {
	stdErr := h.normalizeError(err)
	if status >= http.StatusInternalServerError {
		h.logError(stdErr)
	}
	writeJSON(w, status, errorResponse{Error: stdErr.Message, Code: stdErr.Code})
}

// normalizeError ensures we always have a StandardError.
func (h *Handler) normalizeError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func (h *Handler) logError(stdErr *StandardError) {
	fields := map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	}
	if stdErr.Retryable {
		h.logger.Error(stdErr.Message, fields)
	} else {
		h.logger.Warn(stdErr.Message, fields)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
