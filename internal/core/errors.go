package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingAPIKey      = errors.New("an API key is required to send messages")
	ErrEmptyMessage       = errors.New("message content cannot be empty")
	ErrUnknownModel       = errors.New("unknown model")
	ErrInvalidTemperature = errors.New("temperature must be between 0.0 and 2.0")
)

// Prefixes of the assistant messages that stand in for a failed completion.
const (
	TransportErrorPrefix = "Error communicating with the API"
	FormatErrorPrefix    = "Error processing the API response"
)

// TransportError covers everything up to and including the HTTP status:
// dial, DNS, TLS, timeout and non-2xx responses.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s [%d]: %s", TransportErrorPrefix, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", TransportErrorPrefix, e.Err)
	}
	return fmt.Sprintf("%s: %s", TransportErrorPrefix, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseFormatError means the provider answered 2xx but the body was not
// the expected shape.
type ResponseFormatError struct {
	Message string
	Err     error
}

func (e *ResponseFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", FormatErrorPrefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", FormatErrorPrefix, e.Message)
}

func (e *ResponseFormatError) Unwrap() error {
	return e.Err
}

// assistantErrorText turns a completion failure into the text shown in the
// conversation in place of a reply.
func assistantErrorText(err error) string {
	var te *TransportError
	var fe *ResponseFormatError
	switch {
	case errors.As(err, &te):
		return te.Error()
	case errors.As(err, &fe):
		return fe.Error()
	default:
		return fmt.Sprintf("%s: %v", TransportErrorPrefix, err)
	}
}
