package negotiation

import "time"

// RenegotiateTimeout bounds how long a pending renegotiation waits for the
// link to return to stable.
const RenegotiateTimeout = 1500 * time.Millisecond

type SignalingState int

const (
	Stable SignalingState = iota
	HaveLocalOffer
	HaveRemoteOffer
)

func (s SignalingState) String() string {
	switch s {
	case Stable:
		return "stable"
	case HaveLocalOffer:
		return "have-local-offer"
	case HaveRemoteOffer:
		return "have-remote-offer"
	default:
		return "unknown"
	}
}

// Link is the negotiation record for one remote peer. It is a value: Step
// returns the successor instead of mutating in place.
type Link struct {
	Self string
	Peer string

	Polite    bool
	Initiator bool

	State                SignalingState
	MakingOffer          bool
	IgnoreOffer          bool
	SettingRemoteAnswer  bool
	ApplyingOffer        bool
	HasRemoteDescription bool

	PendingCandidates    []Candidate
	PendingRenegotiation bool
	DeadlineArmed        bool

	Closed bool
}

func NewLink(self, peer string) Link {
	return Link{
		Self:      self,
		Peer:      peer,
		Polite:    IsPolite(self, peer),
		Initiator: IsInitiator(self, peer),
	}
}

// Event is an input to Step.
type Event interface{ isEvent() }

type (
	// Start opens the link. Only the initiator makes the first offer.
	Start struct{}
	// OfferCreated reports that the driver created and applied a local offer.
	OfferCreated struct{ Description Description }
	OfferFailed  struct{ Err error }
	// RemoteOffer and RemoteAnswer carry descriptions received from the peer.
	RemoteOffer  struct{ Description Description }
	RemoteAnswer struct{ Description Description }
	// RemoteApplied reports that a remote description of Type was applied.
	RemoteApplied struct{ Type string }
	RemoteFailed  struct {
		Type string
		Err  error
	}
	AnswerCreated struct{ Description Description }
	AnswerFailed  struct{ Err error }
	RemoteCandidate struct{ Candidate Candidate }
	// Renegotiate asks for a new offer, e.g. after a track was added.
	Renegotiate         struct{}
	RenegotiateDeadline struct{}
	Close               struct{}
)

func (Start) isEvent()               {}
func (OfferCreated) isEvent()        {}
func (OfferFailed) isEvent()         {}
func (RemoteOffer) isEvent()         {}
func (RemoteAnswer) isEvent()        {}
func (RemoteApplied) isEvent()       {}
func (RemoteFailed) isEvent()        {}
func (AnswerCreated) isEvent()       {}
func (AnswerFailed) isEvent()        {}
func (RemoteCandidate) isEvent()     {}
func (Renegotiate) isEvent()         {}
func (RenegotiateDeadline) isEvent() {}
func (Close) isEvent()               {}

// Action is an effect the driver performs, in order.
type Action interface{ isAction() }

type (
	// MakeOffer: create an offer, apply it locally, then report OfferCreated or OfferFailed.
	MakeOffer struct{}
	// Rollback discards the pending local or remote description.
	Rollback struct{}
	// ApplyRemote: apply Description, then report RemoteApplied or RemoteFailed.
	ApplyRemote struct{ Description Description }
	// MakeAnswer: create an answer, apply it locally, then report AnswerCreated or AnswerFailed.
	MakeAnswer   struct{}
	AddCandidate struct{ Candidate Candidate }
	// SendDescription relays a local description to the peer.
	SendDescription struct{ Description Description }
	// ArmDeadline schedules RenegotiateDeadline after After.
	ArmDeadline    struct{ After time.Duration }
	DisarmDeadline struct{}
	// Discard reports input that was dropped on purpose.
	Discard  struct{ Reason string }
	Teardown struct{}
)

func (MakeOffer) isAction()       {}
func (Rollback) isAction()        {}
func (ApplyRemote) isAction()     {}
func (MakeAnswer) isAction()      {}
func (AddCandidate) isAction()    {}
func (SendDescription) isAction() {}
func (ArmDeadline) isAction()     {}
func (DisarmDeadline) isAction()  {}
func (Discard) isAction()         {}
func (Teardown) isAction()        {}
