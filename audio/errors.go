package audio

import "errors"

var (
	// ErrNotConnected is returned when disconnecting an output that has no
	// connection to the given input, or no connections at all.
	ErrNotConnected = errors.New("audio: not connected")

	// ErrAlreadyConnected is returned when connecting an output to an input it
	// already feeds. The existing connection is left as is.
	ErrAlreadyConnected = errors.New("audio: already connected")

	// ErrContextMismatch is returned when connecting nodes of different contexts.
	ErrContextMismatch = errors.New("audio: nodes belong to different contexts")

	// ErrNoInput is returned when connecting to a node that accepts no input.
	ErrNoInput = errors.New("audio: node has no input")

	// ErrClosed is returned by any structural operation on a closed context.
	ErrClosed = errors.New("audio: context closed")

	// ErrInvalidState is returned when starting or stopping a scheduled source twice.
	ErrInvalidState = errors.New("audio: invalid state")

	// ErrNoDevice is returned when a live input device cannot be acquired.
	ErrNoDevice = errors.New("audio: input device unavailable")
)

// IsBenign reports whether err only says the requested wiring already
// matches the live graph (already connected, or nothing to disconnect).
func IsBenign(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrAlreadyConnected)
}
