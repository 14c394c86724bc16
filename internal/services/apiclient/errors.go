package apiclient

import (
	"errors"
	"fmt"

	"loanpredictor/internal/models"
)

// User-facing fallback messages
const (
	MsgGeneric      = "An unexpected error occurred. Please try again."
	MsgNetwork      = "No internet connection. Please check your network and try again."
	MsgMalformed    = "Invalid application data. Please review your entries and try again."
	MsgUnexpected   = "Unexpected response from prediction service"
	MsgNoSubmission = "No loan data available. Please submit the form first."
)

// RequestError means the service answered but reported failure, either with
// a non-2xx status or with an error field in the payload.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Message)
}

// NetworkError means the request never got an HTTP response
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DisplayMessage maps any client error to the single message shown to the user
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var reqErr *RequestError
	var netErr *NetworkError
	var malformed *models.MalformedInputError

	switch {
	case errors.As(err, &reqErr):
		if reqErr.Message != "" {
			return reqErr.Message
		}
		return MsgGeneric
	case errors.As(err, &netErr):
		return MsgNetwork
	case errors.As(err, &malformed):
		return MsgMalformed
	}
	return MsgGeneric
}
