// Package dispatch routes free-form action requests to strongly-typed
// operations. It is the single public entry point of the gateway.
package dispatch

import "encoding/json"

// Error codes returned in Result envelopes.
const (
	CodeOperationNotFound     = "OPERATION_NOT_FOUND"
	CodeRequestCreationFailed = "REQUEST_CREATION_FAILED"
	CodeDispatchError         = "DISPATCH_ERROR"
	CodeInvalidRequest        = "INVALID_REQUEST"
)

// Request is the JSON envelope for incoming dispatch requests.
type Request struct {
	ID     string `json:"id"`
	// Entity is an optional hint naming the target entity; needed when
	// the action string does not embed the entity ("getbyemail").
	Entity      string            `json:"entity,omitempty"`
	Action      string            `json:"action"`
	Payload     json.RawMessage   `json:"payload,omitempty"`
	RouteParams map[string]string `json:"routeParams,omitempty"`
}

// Result is the JSON envelope for dispatch responses.
type Result struct {
	ID       string            `json:"id"`
	Success  bool              `json:"success"`
	Data     interface{}       `json:"data,omitempty"`
	Error    *ErrorDetail      `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// failure builds a failed Result.
func failure(id, code, message string, retryable bool) *Result {
	return &Result{
		ID:      id,
		Success: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}
