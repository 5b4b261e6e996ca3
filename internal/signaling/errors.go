package signaling

import (
	"errors"
	"fmt"

	"github.com/kenobeee/mettta-space/internal/account"
	"github.com/kenobeee/mettta-space/internal/files"
	"github.com/kenobeee/mettta-space/internal/meeting"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

// Wire error codes carried in error.code.
const (
	CodeBadRequest      = "BadRequest"
	CodeUnknownType     = "UnknownType"
	CodeValidation      = "Validation"
	CodeUnauthorized    = "Unauthorized"
	CodeNotFound        = "NotFound"
	CodeNotToday        = "NotToday"
	CodeNotStarted      = "NotStarted"
	CodeEnded           = "Ended"
	CodeOverlap         = "Overlap"
	CodeDuplicateDevice = "DuplicateDevice"
	CodeNotSameRoom     = "NotSameRoom"
	CodeNotInLobby      = "NotInLobby"
	CodeShareHeld       = "ShareHeld"
	CodeTooLong         = "TooLong"
	CodeStorage         = "Storage"
)

// CloseDuplicateDevice is the websocket close code sent to a second
// connection presenting an already connected device id.
const CloseDuplicateDevice = 4001

var (
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("invalid request")
	ErrUnauthorized    = errors.New("authentication required")
	ErrLobbyNotFound   = errors.New("lobby not found")
	ErrChannelNotFound = errors.New("chat room not found")
	ErrDuplicateDevice = errors.New("device already connected")
	ErrNotSameRoom     = errors.New("not in same lobby")
	ErrNotInLobby      = errors.New("not in a lobby")
	ErrShareHeld       = errors.New("someone else is sharing their screen")
	ErrTooLong         = errors.New("message too long")
	ErrStopped         = errors.New("hub stopped")
)

// OpError records the operation that failed alongside the cause.
type OpError struct {
	Op      string
	Err     error
	Details string
}

func (e *OpError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *OpError {
	return &OpError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *OpError {
	return &OpError{Op: op, Err: err, Details: details}
}

// Code maps an error to its wire code.
func Code(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		return CodeUnknownType
	case errors.Is(err, protocol.ErrMalformed), errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, account.ErrUnknownToken):
		return CodeUnauthorized
	case errors.Is(err, ErrLobbyNotFound), errors.Is(err, ErrChannelNotFound), errors.Is(err, meeting.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, meeting.ErrNotToday):
		return CodeNotToday
	case errors.Is(err, meeting.ErrNotStarted):
		return CodeNotStarted
	case errors.Is(err, meeting.ErrEnded):
		return CodeEnded
	case errors.Is(err, meeting.ErrOverlap):
		return CodeOverlap
	case errors.Is(err, ErrDuplicateDevice):
		return CodeDuplicateDevice
	case errors.Is(err, ErrNotSameRoom):
		return CodeNotSameRoom
	case errors.Is(err, ErrNotInLobby):
		return CodeNotInLobby
	case errors.Is(err, ErrShareHeld):
		return CodeShareHeld
	case errors.Is(err, ErrTooLong), errors.Is(err, files.ErrTooLarge):
		return CodeTooLong
	case errors.Is(err, meeting.ErrStorage), errors.Is(err, account.ErrStorage):
		return CodeStorage
	case errors.Is(err, ErrValidation), errors.Is(err, meeting.ErrValidation),
		errors.Is(err, account.ErrInvalidName), errors.Is(err, files.ErrInvalid):
		return CodeValidation
	default:
		return CodeBadRequest
	}
}
