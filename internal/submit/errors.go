package submit

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Error codes carried by *Error.
const (
	CodeRejected        = "REJECTED"
	CodeTransport       = "TRANSPORT"
	CodeTimeout         = "TIMEOUT"
	CodeCancelled       = "CANCELLED"
	CodeEncode          = "ENCODE"
	CodeInvalidResponse = "INVALID_RESPONSE"
)

const defaultFailureMessage = "Failed to submit poll"

// Error is the single failure kind of a poll submission. Message is meant
// to be shown to the user as-is.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Message extracts the user-facing text from err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var subErr *Error
	if errors.As(err, &subErr) && strings.TrimSpace(subErr.Message) != "" {
		return subErr.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return defaultFailureMessage
}

func mapTransportError(err error) error {
	if err == nil {
		return nil
	}
	var subErr *Error
	if errors.As(err, &subErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &Error{Code: CodeTimeout, Message: "timeout", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Code: CodeCancelled, Message: "submission cancelled", Cause: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Code: CodeTransport, Message: "Unable to reach poll service. Check the endpoint address.", Cause: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &Error{Code: CodeTransport, Message: "Poll service refused the connection.", Cause: err}
	}
	return &Error{Code: CodeTransport, Message: "Network error while submitting poll.", Cause: err}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
