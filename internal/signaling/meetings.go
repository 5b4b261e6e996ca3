package signaling

import (
	"github.com/kenobeee/mettta-space/internal/meeting"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

func toProtocolMeeting(m meeting.Meeting) protocol.Meeting {
	return protocol.Meeting{
		ID:          m.ID,
		Title:       m.Title,
		StartsAt:    m.StartsAt,
		DurationMin: m.DurationMin,
		CreatedAt:   m.CreatedAt,
		CreatedBy:   m.CreatedBy,
	}
}

func toMeetingInput(in protocol.MeetingInput) meeting.Input {
	return meeting.Input{
		ID:          in.ID,
		Title:       in.Title,
		StartsAt:    in.StartsAt,
		DurationMin: in.DurationMin,
	}
}

func (h *Hub) meetingList() []protocol.Meeting {
	all := h.schedule.All()
	out := make([]protocol.Meeting, 0, len(all))
	for _, m := range all {
		out = append(out, toProtocolMeeting(m))
	}
	return out
}

func (h *Hub) broadcastSchedule() {
	h.broadcastAll(protocol.Meetings{Meetings: h.meetingList()})
	h.broadcastLobbies()
}

func (h *Hub) createMeeting(p *participant, in protocol.MeetingInput) error {
	if !p.authenticated() {
		return ErrUnauthorized
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	m, err := h.schedule.Create(ctx, toMeetingInput(in), p.userID, h.now())
	if err != nil {
		return WrapError("createMeeting", err, in.Title)
	}

	h.logger.Info("Meeting created", "client", p.id, "meeting", m.ID, "startsAt", m.StartsAt, "durationMin", m.DurationMin)
	h.broadcastSchedule()
	return nil
}

func (h *Hub) updateMeeting(p *participant, in protocol.MeetingInput) error {
	if !p.authenticated() {
		return ErrUnauthorized
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	m, err := h.schedule.Update(ctx, toMeetingInput(in), h.now())
	if err != nil {
		return WrapError("updateMeeting", err, in.ID)
	}

	if r, ok := h.rooms[m.ID]; ok {
		r.displayName = m.Title
	}

	h.logger.Info("Meeting updated", "client", p.id, "meeting", m.ID)
	h.broadcastSchedule()
	return nil
}

func (h *Hub) deleteMeeting(p *participant, id string) error {
	if !p.authenticated() {
		return ErrUnauthorized
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	m, err := h.schedule.Delete(ctx, id)
	if err != nil {
		return WrapError("deleteMeeting", err, id)
	}

	h.logger.Info("Meeting deleted", "client", p.id, "meeting", m.ID)
	h.evict(m.ID)
	h.broadcastSchedule()
	return nil
}
