package negotiation

import "slices"

// Step applies ev to l. A closed link ignores everything.
func Step(l Link, ev Event) (Link, []Action) {
	if l.Closed {
		return l, nil
	}

	switch e := ev.(type) {
	case Start:
		if !l.Initiator || l.MakingOffer || l.State != Stable {
			return l, nil
		}
		return l.startOffer(nil)

	case OfferCreated:
		if !l.MakingOffer {
			return l, []Action{Discard{Reason: "stale local offer"}}
		}
		l.MakingOffer = false
		l.State = HaveLocalOffer
		return l, []Action{SendDescription{Description: e.Description}}

	case OfferFailed:
		l.MakingOffer = false
		return l.runPending([]Action{Discard{Reason: "create offer: " + errText(e.Err)}})

	case RemoteOffer:
		return l.remoteOffer(e.Description)

	case RemoteAnswer:
		l.IgnoreOffer = false
		if l.State != HaveLocalOffer || l.SettingRemoteAnswer {
			return l, []Action{Discard{Reason: "stale answer in " + l.State.String()}}
		}
		l.SettingRemoteAnswer = true
		return l, []Action{ApplyRemote{Description: e.Description}}

	case RemoteApplied:
		return l.remoteApplied(e.Type)

	case RemoteFailed:
		acts := []Action{Rollback{}, Discard{Reason: "apply remote " + e.Type + ": " + errText(e.Err)}}
		if e.Type == SDPAnswer {
			l.SettingRemoteAnswer = false
			l.PendingRenegotiation = true
		} else {
			l.ApplyingOffer = false
		}
		l.State = Stable
		return l.runPending(acts)

	case AnswerCreated:
		if l.State != HaveRemoteOffer {
			return l, []Action{Discard{Reason: "stale local answer in " + l.State.String()}}
		}
		l.State = Stable
		return l.runPending([]Action{SendDescription{Description: e.Description}})

	case AnswerFailed:
		l.State = Stable
		return l.runPending([]Action{Rollback{}, Discard{Reason: "create answer: " + errText(e.Err)}})

	case RemoteCandidate:
		if l.IgnoreOffer {
			return l, []Action{Discard{Reason: "candidate for ignored offer"}}
		}
		if !l.HasRemoteDescription || l.SettingRemoteAnswer {
			l.PendingCandidates = append(slices.Clip(l.PendingCandidates), e.Candidate)
			return l, nil
		}
		return l, []Action{AddCandidate{Candidate: e.Candidate}}

	case Renegotiate:
		if l.PendingRenegotiation || l.MakingOffer || l.State != Stable {
			l.PendingRenegotiation = true
			if l.DeadlineArmed {
				return l, nil
			}
			l.DeadlineArmed = true
			return l, []Action{ArmDeadline{After: RenegotiateTimeout}}
		}
		return l.startOffer(nil)

	case RenegotiateDeadline:
		return l.deadline()

	case Close:
		var acts []Action
		if l.DeadlineArmed {
			acts = append(acts, DisarmDeadline{})
		}
		l.MakingOffer = false
		l.IgnoreOffer = false
		l.SettingRemoteAnswer = false
		l.ApplyingOffer = false
		l.PendingCandidates = nil
		l.PendingRenegotiation = false
		l.DeadlineArmed = false
		l.Closed = true
		return l, append(acts, Teardown{})
	}

	return l, nil
}

// remoteOffer resolves glare: the impolite side keeps its own offer, the
// polite side rolls back and takes the remote one.
func (l Link) remoteOffer(d Description) (Link, []Action) {
	collision := l.MakingOffer || l.State != Stable
	l.IgnoreOffer = !l.Polite && collision
	if l.IgnoreOffer {
		return l, []Action{Discard{Reason: "offer collision, keeping local offer"}}
	}

	var acts []Action
	if collision {
		// the rolled back local offer is made again once the remote one settles
		if l.MakingOffer || l.State == HaveLocalOffer {
			l.PendingRenegotiation = true
		}
		acts = append(acts, Rollback{})
		l.MakingOffer = false
		l.SettingRemoteAnswer = false
	}
	l.State = HaveRemoteOffer
	l.ApplyingOffer = true
	return l, append(acts, ApplyRemote{Description: d})
}

func (l Link) remoteApplied(kind string) (Link, []Action) {
	switch kind {
	case SDPOffer:
		if !l.ApplyingOffer {
			return l, []Action{Discard{Reason: "unexpected remote offer applied"}}
		}
		l.ApplyingOffer = false
		l.HasRemoteDescription = true
		l, acts := l.flush(nil)
		return l, append(acts, MakeAnswer{})

	case SDPAnswer:
		if !l.SettingRemoteAnswer {
			return l, []Action{Discard{Reason: "unexpected remote answer applied"}}
		}
		l.SettingRemoteAnswer = false
		l.State = Stable
		l.HasRemoteDescription = true
		l, acts := l.flush(nil)
		return l.runPending(acts)
	}
	return l, nil
}

// deadline runs a pending renegotiation even though a remote offer never
// settled. A local offer is never abandoned; the deadline waits for its answer.
func (l Link) deadline() (Link, []Action) {
	l.DeadlineArmed = false
	if !l.PendingRenegotiation {
		return l, nil
	}
	if l.MakingOffer || l.State == HaveLocalOffer {
		l.DeadlineArmed = true
		return l, []Action{ArmDeadline{After: RenegotiateTimeout}}
	}

	var acts []Action
	if l.State == HaveRemoteOffer {
		acts = append(acts, Rollback{})
		l.State = Stable
		l.SettingRemoteAnswer = false
		l.ApplyingOffer = false
	}
	l.PendingRenegotiation = false
	return l.startOffer(acts)
}

func (l Link) startOffer(acts []Action) (Link, []Action) {
	l.MakingOffer = true
	return l, append(acts, MakeOffer{})
}

// runPending starts a queued renegotiation once the link is stable.
func (l Link) runPending(acts []Action) (Link, []Action) {
	if !l.PendingRenegotiation || l.MakingOffer || l.State != Stable {
		return l, acts
	}
	l.PendingRenegotiation = false
	if l.DeadlineArmed {
		l.DeadlineArmed = false
		acts = append(acts, DisarmDeadline{})
	}
	return l.startOffer(acts)
}

// flush releases queued candidates in arrival order.
func (l Link) flush(acts []Action) (Link, []Action) {
	for _, c := range l.PendingCandidates {
		acts = append(acts, AddCandidate{Candidate: c})
	}
	l.PendingCandidates = nil
	return l, acts
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
