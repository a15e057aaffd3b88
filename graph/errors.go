package graph

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is the Graph API error envelope payload.
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	UserTitle    string `json:"error_user_title"`
	UserMsg      string `json:"error_user_msg"`
	TraceID      string `json:"fbtrace_id"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// Format renders the envelope as a human-readable message: the
// user-facing text when Meta supplies one, otherwise the raw message,
// followed by a parenthesized code/subcode/type/trace suffix for whichever
// fields are present, in that order.
func (e *APIError) Format() string {
	if e == nil {
		return genericFailure
	}

	base := e.UserMsg
	if base == "" {
		base = e.Message
	}
	if e.UserTitle != "" {
		if base == "" {
			base = e.UserTitle
		} else {
			base = e.UserTitle + ": " + base
		}
	}
	if base == "" {
		base = genericFailure
		return base
	}

	var details []string
	if e.Code != 0 {
		details = append(details, fmt.Sprintf("code=%d", e.Code))
	}
	if e.ErrorSubcode != 0 {
		details = append(details, fmt.Sprintf("subcode=%d", e.ErrorSubcode))
	}
	if e.Type != "" {
		details = append(details, fmt.Sprintf("type=%s", e.Type))
	}
	if e.TraceID != "" {
		details = append(details, fmt.Sprintf("trace=%s", e.TraceID))
	}

	if len(details) == 0 {
		return base + "."
	}
	return fmt.Sprintf("%s (%s).", base, strings.Join(details, ", "))
}

const genericFailure = "Graph API request failed."

// RequestError is a failed Graph call: either a parsed API error envelope
// or a transport/parse failure with the envelope absent.
type RequestError struct {
	Operation string
	Status    int
	Message   string
	API       *APIError
	Err       error
}

func (e *RequestError) Error() string {
	if e == nil {
		return genericFailure
	}
	if e.Message != "" {
		return e.Message
	}
	return genericFailure
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ReadError parses a non-200 response body into a RequestError. When the
// body carries no recognizable envelope it falls back to the HTTP reason
// phrase or the generic failure message.
func ReadError(operation string, status int, body []byte) *RequestError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return &RequestError{
			Operation: operation,
			Status:    status,
			Message:   env.Error.Format(),
			API:       env.Error,
		}
	}

	msg := http.StatusText(status)
	if msg == "" {
		msg = genericFailure
	}
	return &RequestError{
		Operation: operation,
		Status:    status,
		Message:   msg,
	}
}
