// Package domain defines the core domain models for respkv.
package domain

import (
	"fmt"
	"strings"
)

// ReplyPrefix is the error prefix clients see on every error reply.
const ReplyPrefix = "ERR"

// DomainError represents a command or request failure with a structured
// error code.
//
// Code identifies the failure class and drives errors.Is and metrics;
// Message is the human-readable text sent to clients.
type DomainError struct {
	Code    string // Error code (e.g., "RK-CMD-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Reply returns the single-line text of the simple error reply for e.
func (e *DomainError) Reply() string {
	text := ReplyPrefix + " " + e.Message
	if e.Details != "" {
		text += ": " + e.Details
	}
	return replyReplacer.Replace(text)
}

// A simple error reply must not contain line breaks.
var replyReplacer = strings.NewReplacer("\r", " ", "\n", " ")

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithMessage returns a copy of the error with its message replaced.
// The code is kept, so the copy still matches e under errors.Is.
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		Details: e.Details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// ============================================================================
// Command Errors (CMD)
// ============================================================================

var (
	// ErrUnknownCommand indicates the command name is not recognized.
	ErrUnknownCommand = NewDomainError("RK-CMD-4040", "unknown command")

	// ErrWrongArity indicates the command got the wrong number of arguments.
	ErrWrongArity = NewDomainError("RK-CMD-4001", "wrong number of arguments")

	// ErrSyntax indicates an unknown option or malformed option list.
	ErrSyntax = NewDomainError("RK-CMD-4002", "syntax error")

	// ErrNotInteger indicates an argument that must be an integer is not one.
	ErrNotInteger = NewDomainError("RK-CMD-4003", "value is not an integer or out of range")

	// ErrInvalidArgument indicates an argument of the wrong protocol type.
	ErrInvalidArgument = NewDomainError("RK-CMD-4004", "invalid argument")

	// ErrInvalidRequest indicates a request value that is not a command.
	ErrInvalidRequest = NewDomainError("RK-CMD-4005", "invalid request")

	// ErrInvalidExpire indicates a negative or out of range expiry.
	ErrInvalidExpire = NewDomainError("RK-CMD-4006", "invalid expire time")
)

// UnknownCommand returns ErrUnknownCommand naming the command.
func UnknownCommand(name string) *DomainError {
	return ErrUnknownCommand.WithMessage("unknown command '%s'", name)
}

// WrongArity returns ErrWrongArity naming the command.
func WrongArity(name string) *DomainError {
	return ErrWrongArity.WithMessage("wrong number of arguments for '%s' command", name)
}

// ============================================================================
// Protocol Errors (PROTO)
// ============================================================================

var (
	// ErrProtocol indicates the request stream could not be decoded.
	// The connection is closed after it is reported.
	ErrProtocol = NewDomainError("RK-PROTO-4000", "Protocol error")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("RK-SYS-5000", "internal server error")

	// ErrRateLimited indicates the connection exceeded its command rate.
	ErrRateLimited = NewDomainError("RK-SYS-4290", "rate limit exceeded")
)
