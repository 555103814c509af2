package server

import (
	"errors"
	"fmt"
)

// ErrUnknownMessageType is returned by a MessageHandler to signal that it
// does not recognize a messageType. The session is then closed with
// CloseUnknownMessageType, exactly as when no handler is registered.
var ErrUnknownMessageType = errors.New("unknown message type")

// Error types for server operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConfig indicates an invalid or unusable configuration
	ErrTypeConfig ErrorType = iota
	// ErrTypeBind indicates the listen socket could not be bound
	ErrTypeBind
	// ErrTypeSessionNotFound indicates an operation referenced a session that is not connected
	ErrTypeSessionNotFound
	// ErrTypeCrypto indicates a failure generating authentication material
	ErrTypeCrypto
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConfig:
		return "Configuration Error"
	case ErrTypeBind:
		return "Bind Error"
	case ErrTypeSessionNotFound:
		return "Session Not Found"
	case ErrTypeCrypto:
		return "Crypto Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ServerError represents an error from a server operation
type ServerError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ServerError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error
func NewConfigError(message string, err error) *ServerError {
	return &ServerError{
		Type:    ErrTypeConfig,
		Message: message,
		Err:     err,
	}
}

// NewBindError creates a bind error for the given port
func NewBindError(port int, err error) *ServerError {
	return &ServerError{
		Type:    ErrTypeBind,
		Message: fmt.Sprintf("failed to listen on port %d", port),
		Err:     err,
	}
}

// NewSessionNotFoundError creates a session lookup error
func NewSessionNotFoundError(id uint64) *ServerError {
	return &ServerError{
		Type:    ErrTypeSessionNotFound,
		Message: fmt.Sprintf("no connected session with id %d", id),
	}
}

// NewCryptoError creates an authentication material error
func NewCryptoError(message string, err error) *ServerError {
	return &ServerError{
		Type:    ErrTypeCrypto,
		Message: message,
		Err:     err,
	}
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	if serr, ok := err.(*ServerError); ok {
		return serr.Type == ErrTypeConfig
	}
	return false
}

// IsBindError checks if an error is a bind error
func IsBindError(err error) bool {
	if serr, ok := err.(*ServerError); ok {
		return serr.Type == ErrTypeBind
	}
	return false
}

// IsSessionNotFoundError checks if an error is a session lookup error
func IsSessionNotFoundError(err error) bool {
	if serr, ok := err.(*ServerError); ok {
		return serr.Type == ErrTypeSessionNotFound
	}
	return false
}
