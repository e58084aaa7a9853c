package models

import "fmt"

// ErrorKind classifies a playback failure
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrLoad              // source unreachable or unusable
	ErrNetwork
	ErrDecode // wrong or broken codec, terminal for this source
	ErrFormat // explicitly unsupported container/codec
	ErrPermission
	ErrPlay
	ErrNotSupported // host lacks a required capability
)

// String returns the kind name
func (k ErrorKind) String() string {
	switch k {
	case ErrLoad:
		return "LOAD_ERROR"
	case ErrNetwork:
		return "NETWORK_ERROR"
	case ErrDecode:
		return "DECODE_ERROR"
	case ErrFormat:
		return "FORMAT_ERROR"
	case ErrPermission:
		return "PERMISSION_ERROR"
	case ErrPlay:
		return "PLAY_ERROR"
	case ErrNotSupported:
		return "NOT_SUPPORTED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// PlayerError represents a classified playback failure
type PlayerError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Code    int       `json:"code,omitempty"`
	Err     error     `json:"-"`
}

// NewPlayerError creates a classified playback error wrapping cause
func NewPlayerError(kind ErrorKind, message string, cause error) *PlayerError {
	return &PlayerError{Kind: kind, Message: message, Err: cause}
}

// Error implements the error interface
func (e *PlayerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *PlayerError) Unwrap() error {
	return e.Err
}

// Recoverable returns true if retrying the same source can succeed.
// Decode and format failures are terminal without changing the source.
func (e *PlayerError) Recoverable() bool {
	switch e.Kind {
	case ErrLoad, ErrNetwork, ErrPermission:
		return true
	default:
		return false
	}
}
