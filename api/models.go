package api

import (
	"encoding/json"
	"errors"
	"time"

	"vescollector/database"
)

// APIResponse represents a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    int         `json:"code,omitempty"`
}

// NewSuccessResponse creates a successful API response
func NewSuccessResponse(data interface{}, message ...string) *APIResponse {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}
	return &APIResponse{
		Success: true,
		Message: msg,
		Data:    data,
		Code:    200,
	}
}

// NewErrorResponse creates an error API response
func NewErrorResponse(err error, code int, message ...string) *APIResponse {
	msg := err.Error()
	if len(message) > 0 {
		msg = message[0]
	}
	return &APIResponse{
		Success: false,
		Error:   msg,
		Code:    code,
	}
}

var (
	ErrUnknownPreset   = errors.New("unknown command preset")
	ErrInvalidLimit    = errors.New("invalid limit")
	ErrStore           = errors.New("pending command store unavailable")
	ErrTooManyRequests = errors.New("too many requests")
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

// PendingView describes the pending command list.
type PendingView struct {
	Pending     bool            `json:"pending"`
	CommandList json.RawMessage `json:"commandList,omitempty"`
	Summary     string          `json:"summary,omitempty"`
}

// EventView is a journaled event as returned by the admin API.
type EventView struct {
	UUID             string          `json:"uuid"`
	TraceID          string          `json:"traceId"`
	ReceivedAt       string          `json:"receivedAt"`
	Method           string          `json:"method"`
	Path             string          `json:"path"`
	RemoteAddr       string          `json:"remoteAddr"`
	Authenticated    bool            `json:"authenticated"`
	Validation       string          `json:"validation"`
	ValidationReason string          `json:"validationReason,omitempty"`
	RequestBody      json.RawMessage `json:"requestBody,omitempty"`
	RequestText      string          `json:"requestText,omitempty"`
	ResponseStatus   int             `json:"responseStatus"`
	ResponseBody     json.RawMessage `json:"responseBody,omitempty"`
}

// ToEventView converts a journal record to API format. Bodies that are JSON
// are embedded as-is; anything else is returned as text.
func ToEventView(record database.EventRecord) EventView {
	view := EventView{
		UUID:             record.UUID,
		TraceID:          record.TraceID,
		ReceivedAt:       record.ReceivedAt.UTC().Format(time.RFC3339Nano),
		Method:           record.Method,
		Path:             record.Path,
		RemoteAddr:       record.RemoteAddr,
		Authenticated:    record.Authenticated,
		Validation:       record.Validation,
		ValidationReason: record.ValidationReason,
		ResponseStatus:   record.ResponseStatus,
	}

	if json.Valid([]byte(record.RequestBody)) {
		view.RequestBody = json.RawMessage(record.RequestBody)
	} else {
		view.RequestText = record.RequestBody
	}
	if record.ResponseBody != "" && json.Valid([]byte(record.ResponseBody)) {
		view.ResponseBody = json.RawMessage(record.ResponseBody)
	}

	return view
}
