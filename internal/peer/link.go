package peer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kenobeee/mettta-space/internal/negotiation"
)

const linkInbox = 256

// linkActor owns one negotiation.Link and its PeerConn. Every event for the
// link goes through the inbox and is handled on the actor's goroutine, so
// a slow peer never holds up the others.
type linkActor struct {
	peerID string
	gen    uint64
	conn   PeerConn
	link   negotiation.Link
	signal func(negotiation.Payload) error
	logger *slog.Logger

	inbox   chan negotiation.Event
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once

	timer *time.Timer
}

func newLinkActor(self, peerID string, conn PeerConn, signal func(negotiation.Payload) error, logger *slog.Logger) *linkActor {
	return &linkActor{
		peerID:  peerID,
		conn:    conn,
		link:    negotiation.NewLink(self, peerID),
		signal:  signal,
		logger:  logger.With("peer", peerID),
		inbox:   make(chan negotiation.Event, linkInbox),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// post queues ev without blocking. It reports false when the link is gone
// or its inbox is full.
func (a *linkActor) post(ev negotiation.Event) bool {
	select {
	case <-a.stop:
		return false
	default:
	}
	select {
	case a.inbox <- ev:
		return true
	default:
		a.logger.Warn("Link inbox full, dropping event", "event", eventName(ev))
		return false
	}
}

// close tears the link down. It is safe to call more than once.
func (a *linkActor) close() {
	a.once.Do(func() { close(a.stop) })
}

func (a *linkActor) run() {
	defer close(a.stopped)
	for {
		select {
		case <-a.stop:
			a.apply(negotiation.Close{})
			return
		case ev := <-a.inbox:
			a.apply(ev)
			if a.link.Closed {
				return
			}
		}
	}
}

// apply steps the link and executes the resulting actions. Completion events
// produced by the actions are handled before apply returns.
func (a *linkActor) apply(ev negotiation.Event) {
	queue := []negotiation.Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		var actions []negotiation.Action
		a.link, actions = negotiation.Step(a.link, next)
		for _, act := range actions {
			if follow := a.execute(act); follow != nil {
				queue = append(queue, follow)
			}
		}
	}
}

func (a *linkActor) execute(act negotiation.Action) negotiation.Event {
	switch act := act.(type) {
	case negotiation.MakeOffer:
		d, err := a.conn.CreateOffer()
		if err != nil {
			a.logger.Error("Offer failed", "error", err)
			return negotiation.OfferFailed{Err: err}
		}
		return negotiation.OfferCreated{Description: d}

	case negotiation.MakeAnswer:
		d, err := a.conn.CreateAnswer()
		if err != nil {
			a.logger.Error("Answer failed", "error", err)
			return negotiation.AnswerFailed{Err: err}
		}
		return negotiation.AnswerCreated{Description: d}

	case negotiation.ApplyRemote:
		if err := a.conn.SetRemote(act.Description); err != nil {
			a.logger.Error("Applying remote description failed", "type", act.Description.Type, "error", err)
			return negotiation.RemoteFailed{Type: act.Description.Type, Err: err}
		}
		return negotiation.RemoteApplied{Type: act.Description.Type}

	case negotiation.Rollback:
		if err := a.conn.Rollback(); err != nil {
			a.logger.Warn("Rollback failed", "error", err)
		}

	case negotiation.AddCandidate:
		if err := a.conn.AddCandidate(act.Candidate); err != nil {
			a.logger.Warn("Failed to add ICE candidate", "error", err)
		}

	case negotiation.SendDescription:
		d := act.Description
		if err := a.signal(negotiation.Payload{SDP: &d}); err != nil {
			a.logger.Warn("Failed to send description", "type", d.Type, "error", err)
		}

	case negotiation.ArmDeadline:
		a.stopTimer()
		a.timer = time.AfterFunc(act.After, func() {
			a.post(negotiation.RenegotiateDeadline{})
		})

	case negotiation.DisarmDeadline:
		a.stopTimer()

	case negotiation.Discard:
		a.logger.Debug("Discarded", "reason", act.Reason, "state", a.link.State.String())

	case negotiation.Teardown:
		a.stopTimer()
		if err := a.conn.Close(); err != nil {
			a.logger.Warn("Closing peer connection failed", "error", err)
		}
		a.logger.Info("Peer link closed")
	}
	return nil
}

func (a *linkActor) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func eventName(ev negotiation.Event) string {
	switch ev.(type) {
	case negotiation.RemoteOffer:
		return "remoteOffer"
	case negotiation.RemoteAnswer:
		return "remoteAnswer"
	case negotiation.RemoteCandidate:
		return "remoteCandidate"
	case negotiation.Renegotiate:
		return "renegotiate"
	case negotiation.RenegotiateDeadline:
		return "renegotiateDeadline"
	default:
		return "other"
	}
}
