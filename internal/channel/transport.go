package channel

import (
	"context"
	"errors"
)

var (
	// ErrConnectionRejected marks an authentication or handshake refusal.
	// It is terminal; the retry policy never applies to it.
	ErrConnectionRejected = errors.New("connection rejected")
	// ErrConnectivityExhausted marks a reconnect retry budget spent without a
	// successful connection. Terminal, surfaced to the session owner once.
	ErrConnectivityExhausted = errors.New("connectivity exhausted")
	// ErrNotConnected marks a send attempted while the session has no live
	// transport.
	ErrNotConnected = errors.New("session not connected")
)

// Conn is one established physical connection. Receive is closed when the
// transport is lost; Err then reports the reason. The physical layer
// (websocket, long-polling) is outside this package; only the logical
// contract is fixed here.
type Conn interface {
	Send(ctx context.Context, frame Frame) error
	Receive() <-chan Frame
	Err() error
	Close() error
}

// Transport dials new connections. Dial must return an error wrapping
// ErrConnectionRejected for authentication/handshake refusals so the session
// can distinguish them from retryable transport failures.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// State is the session's transport liveness state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

func (s State) String() string { return string(s) }
