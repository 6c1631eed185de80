package httpapi

import (
	"errors"
	"net/http"
)

var errInvalidJSON = errors.New("httpapi: invalid json body")

// HTTPError is an error with the status and message sent to the client.
type HTTPError struct {
	// Err is logged, never sent.
	Err error

	Message string

	// Code is an application error code clients can branch on.
	Code string

	Status int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func newHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func badRequest(code, message string, err error) *HTTPError {
	return newHTTPError(http.StatusBadRequest, code, message, err)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
