package peer

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/kenobeee/mettta-space/internal/negotiation"
)

// PeerConn is the media connection to one remote participant. Offer and
// answer creation also apply the result as the local description.
type PeerConn interface {
	CreateOffer() (negotiation.Description, error)
	CreateAnswer() (negotiation.Description, error)
	SetRemote(d negotiation.Description) error
	Rollback() error
	AddCandidate(c negotiation.Candidate) error
	// SetScreenShare adds or removes the outgoing screen track and reports
	// whether anything changed.
	SetScreenShare(on bool) (bool, error)
	Close() error
}

// ConnEvents are callbacks a PeerConn fires from its own goroutines.
type ConnEvents struct {
	OnCandidate func(negotiation.Candidate)
	OnHello     func(Hello)
	OnState     func(state string)
}

// ConnFactory opens a PeerConn towards peerID.
type ConnFactory func(peerID string, initiator bool, events ConnEvents) (PeerConn, error)

// PionFactory returns a ConnFactory backed by pion/webrtc.
func PionFactory(cfg webrtc.Configuration, hello Hello, logger *slog.Logger) ConnFactory {
	return func(peerID string, initiator bool, events ConnEvents) (PeerConn, error) {
		return newPionConn(cfg, peerID, initiator, hello, events, logger.With("peer", peerID))
	}
}

type pionConn struct {
	pc     *webrtc.PeerConnection
	hello  Hello
	events ConnEvents
	logger *slog.Logger

	mu     sync.Mutex
	screen *webrtc.RTPSender
}

func newPionConn(cfg webrtc.Configuration, peerID string, initiator bool, hello Hello, events ConnEvents, logger *slog.Logger) (*pionConn, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, NewPeerError("create peer connection", peerID, err)
	}
	c := &pionConn{pc: pc, hello: hello, events: events, logger: logger}

	audio, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "mira")
	if err != nil {
		pc.Close()
		return nil, NewPeerError("create audio track", peerID, err)
	}
	sender, err := pc.AddTrack(audio)
	if err != nil {
		pc.Close()
		return nil, NewPeerError("add audio track", peerID, err)
	}
	go drainRTCP(sender)

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil || events.OnCandidate == nil {
			return
		}
		ci := cand.ToJSON()
		events.OnCandidate(negotiation.Candidate{
			Candidate:     ci.Candidate,
			SDPMid:        ci.SDPMid,
			SDPMLineIndex: ci.SDPMLineIndex,
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Debug("Peer connection state", "state", state.String())
		if events.OnState != nil {
			events.OnState(state.String())
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		logger.Info("Remote track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		buf := make([]byte, 1500)
		for {
			if _, _, err := track.Read(buf); err != nil {
				return
			}
		}
	})

	if initiator {
		ordered := true
		dc, err := pc.CreateDataChannel(DataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
		if err != nil {
			pc.Close()
			return nil, NewPeerError("create data channel", peerID, err)
		}
		c.attach(dc)
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() == DataChannelLabel {
				c.attach(dc)
			}
		})
	}

	return c, nil
}

func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// attach wires the hello exchange onto dc.
func (c *pionConn) attach(dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		frame, err := EncodeMessage(MessageTypeHello, c.hello)
		if err != nil {
			c.logger.Error("Failed to encode hello", "error", err)
			return
		}
		if err := dc.Send(frame); err != nil {
			c.logger.Warn("Failed to send hello", "error", err)
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		m, err := DecodeMessage(msg.Data)
		if err != nil {
			c.logger.Warn("Ignoring data channel frame", "error", err)
			return
		}
		if m.Type != MessageTypeHello {
			c.logger.Debug("Unhandled data channel message", "type", m.Type)
			return
		}
		var h Hello
		if err := m.DecodePayload(&h); err != nil {
			c.logger.Warn("Bad hello", "error", err)
			return
		}
		if c.events.OnHello != nil {
			c.events.OnHello(h)
		}
	})
}

func (c *pionConn) CreateOffer() (negotiation.Description, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return negotiation.Description{}, NewError("create offer", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return negotiation.Description{}, NewError("set local description", err)
	}
	return localDescription(c.pc, offer), nil
}

func (c *pionConn) CreateAnswer() (negotiation.Description, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return negotiation.Description{}, NewError("create answer", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return negotiation.Description{}, NewError("set local description", err)
	}
	return localDescription(c.pc, answer), nil
}

func localDescription(pc *webrtc.PeerConnection, fallback webrtc.SessionDescription) negotiation.Description {
	d := fallback
	if ld := pc.LocalDescription(); ld != nil {
		d = *ld
	}
	return negotiation.Description{Type: d.Type.String(), SDP: d.SDP}
}

func (c *pionConn) SetRemote(d negotiation.Description) error {
	desc := webrtc.SessionDescription{Type: webrtc.NewSDPType(d.Type), SDP: d.SDP}
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		return NewError("set remote description", err)
	}
	return nil
}

// Rollback undoes whichever description is pending. In stable it does nothing.
func (c *pionConn) Rollback() error {
	rollback := webrtc.SessionDescription{Type: webrtc.SDPTypeRollback}
	switch c.pc.SignalingState() {
	case webrtc.SignalingStateHaveLocalOffer:
		return c.pc.SetLocalDescription(rollback)
	case webrtc.SignalingStateHaveRemoteOffer:
		return c.pc.SetRemoteDescription(rollback)
	default:
		return nil
	}
}

func (c *pionConn) AddCandidate(cand negotiation.Candidate) error {
	return c.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     cand.Candidate,
		SDPMid:        cand.SDPMid,
		SDPMLineIndex: cand.SDPMLineIndex,
	})
}

func (c *pionConn) SetScreenShare(on bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !on {
		if c.screen == nil {
			return false, nil
		}
		err := c.pc.RemoveTrack(c.screen)
		c.screen = nil
		if err != nil {
			return true, NewError("remove screen track", err)
		}
		return true, nil
	}

	if c.screen != nil {
		return false, nil
	}
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "screen", "mira-screen")
	if err != nil {
		return false, NewError("create screen track", err)
	}
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return false, NewError("add screen track", err)
	}
	go drainRTCP(sender)
	c.screen = sender
	return true, nil
}

func (c *pionConn) Close() error {
	if err := c.pc.Close(); err != nil && !errors.Is(err, webrtc.ErrConnectionClosed) {
		return err
	}
	return nil
}
