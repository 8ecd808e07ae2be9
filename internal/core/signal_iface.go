//go:generate go run go.uber.org/mock/mockgen -source=signal_iface.go -destination=../mocks/mock_signal.go -package=mocks
package core

import "errors"

// Frame is an encoded outbound message.
type Frame []byte

// SessionID identifies one live connection. A browser tab that reconnects gets a new one.
type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking.
	TrySend(Frame) error
	Close()
}

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)
