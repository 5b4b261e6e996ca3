package peer

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected   = errors.New("not connected to server")
	ErrClosed         = errors.New("connection closed")
	ErrServer         = errors.New("server error")
	ErrTimeout        = errors.New("timeout")
	ErrNotInLobby     = errors.New("not in a lobby")
	ErrUnknownCommand = errors.New("unknown command")
	ErrChannelNotOpen = errors.New("data channel not open")
)

// PeerError records a failed operation and, when known, the remote peer.
type PeerError struct {
	Op      string
	Peer    string
	Err     error
	Details string
}

func (e *PeerError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Peer, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PeerError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *PeerError {
	return &PeerError{Op: op, Err: err}
}

func NewPeerError(op, peer string, err error) *PeerError {
	return &PeerError{Op: op, Peer: peer, Err: err}
}

func WrapError(op string, err error, details string) *PeerError {
	return &PeerError{Op: op, Err: err, Details: details}
}
