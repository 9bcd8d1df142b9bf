package cdp

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrNotConnected is returned for a page without an open channel.
	ErrNotConnected = errors.New("cdp: page not connected")
	// ErrCommandTimeout is returned when no response arrives within the command timeout.
	ErrCommandTimeout = errors.New("cdp: command timed out")
	// ErrConnectionClosed is returned to commands pending when their channel closes.
	ErrConnectionClosed = errors.New("cdp: connection closed")
	// ErrConnectionLimit is returned when registering a page would exceed the connection cap.
	ErrConnectionLimit = errors.New("cdp: connection limit reached")
	// ErrAlreadyConnected is returned when a page already has a channel.
	ErrAlreadyConnected = errors.New("cdp: page already connected")
)

// ProtocolError is an {id, error} response.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("cdp: protocol error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("cdp: protocol error %d: %s", e.Code, e.Message)
}

// EvaluateError is an exception thrown by an evaluated expression.
type EvaluateError struct {
	Text        string
	Description string
}

func (e *EvaluateError) Error() string {
	if e.Description != "" {
		return "cdp: evaluate: " + e.Description
	}
	return "cdp: evaluate: " + e.Text
}

// IsConnectionRefused reports whether err means nothing is listening on the port.
func IsConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
