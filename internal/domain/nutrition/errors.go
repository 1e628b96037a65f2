package nutrition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GenericFailureMessage is shown when the service gave no usable detail.
const GenericFailureMessage = "prediction failed, try again"

var (
	ErrInvalidInput        = errors.New("form has validation errors")
	ErrSubmissionInFlight  = errors.New("a prediction request is already in flight")
	ErrSubmissionDiscarded = errors.New("submission discarded after reset")
	ErrSessionClosed       = errors.New("session closed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnknownField        = errors.New("unknown form field")
)

// TransportError means no usable reply arrived: the service was unreachable,
// the request timed out or was cancelled, or the body could not be read.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a non-2xx reply. Detail is the service's human-readable
// explanation when the body carried one as a string.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("prediction service returned status %d: %s", e.StatusCode, e.Detail)
}

// DecodeError is a 2xx reply that does not have the expected shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode prediction reply: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// UserMessage turns any prediction failure into the single message shown to
// the user: the service's detail when present, the generic text otherwise.
func UserMessage(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && strings.TrimSpace(svcErr.Detail) != "" {
		return svcErr.Detail
	}
	return GenericFailureMessage
}

// errorKind labels an error for logs and metrics.
func errorKind(err error) string {
	var (
		transportErr *TransportError
		svcErr       *ServiceError
		decodeErr    *DecodeError
	)
	switch {
	case errors.As(err, &transportErr):
		if transportErr.Timeout {
			return "timeout"
		}
		return "transport"
	case errors.As(err, &svcErr):
		return "service"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "other"
	}
}

// decodeDetail extracts an optional string "detail" field from an error
// body. Any other shape (missing, list of issues, non-JSON) yields "".
func decodeDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		return ""
	}
	return detail
}
