package core

import "errors"

// ErrSignalClosed is returned by TrySend once the transport is closing.
var ErrSignalClosed = errors.New("connection closed")

// Frame is one encoded outbound message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend must not block: rooms call it while holding their lock.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
