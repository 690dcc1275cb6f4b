package dispatcher

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by Dispatch when the response was discarded because the peer is gone.
var ErrSessionClosed = errors.New("session closed")

// Session is the outbound side of one client connection.
type Session interface {
	// IsOpen reports whether the peer can still receive messages.
	IsOpen() bool
	// SendText delivers one complete text message.
	SendText(ctx context.Context, msg []byte) error
}
