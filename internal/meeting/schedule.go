package meeting

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Saver persists the full meeting set.
type Saver interface {
	SaveMeetings(ctx context.Context, meetings []Meeting) error
}

// Schedule is the in-memory meeting set. Every successful mutation is
// persisted before it returns; a failed save leaves the set unchanged.
// Not safe for concurrent use.
type Schedule struct {
	meetings map[string]Meeting
	saver    Saver
}

func NewSchedule(initial []Meeting, saver Saver) *Schedule {
	s := &Schedule{meetings: make(map[string]Meeting, len(initial)), saver: saver}
	for _, m := range initial {
		s.meetings[m.ID] = m
	}
	return s
}

// All returns every meeting ordered by start.
func (s *Schedule) All() []Meeting {
	out := make([]Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m)
	}
	sortByStart(out)
	return out
}

func (s *Schedule) Get(id string) (Meeting, bool) {
	m, ok := s.meetings[id]
	return m, ok
}

// Today returns meetings starting on now's calendar day in loc that have not ended.
func (s *Schedule) Today(now time.Time, loc *time.Location) []Meeting {
	var out []Meeting
	for _, m := range s.meetings {
		if SameDay(m.StartsAt, now, loc) && !m.HasEnded(now) {
			out = append(out, m)
		}
	}
	sortByStart(out)
	return out
}

// Conflict returns the first meeting other than excludeID that overlaps m.
func (s *Schedule) Conflict(m Meeting, excludeID string) (Meeting, bool) {
	for _, other := range s.All() {
		if other.ID == excludeID {
			continue
		}
		if Overlaps(m, other) {
			return other, true
		}
	}
	return Meeting{}, false
}

func (s *Schedule) Create(ctx context.Context, in Input, createdBy string, now time.Time) (Meeting, error) {
	d, err := parse(in)
	if err != nil {
		return Meeting{}, err
	}
	if err := checkNotPast(d.startsAt, now); err != nil {
		return Meeting{}, err
	}

	m := Meeting{
		ID:          uuid.NewString(),
		Title:       d.title,
		StartsAt:    d.startsAt,
		DurationMin: d.durationMin,
		CreatedAt:   now.UTC(),
		CreatedBy:   createdBy,
	}
	if other, ok := s.Conflict(m, ""); ok {
		return Meeting{}, fmt.Errorf("%w: %q", ErrOverlap, other.Title)
	}

	s.meetings[m.ID] = m
	if err := s.persist(ctx); err != nil {
		delete(s.meetings, m.ID)
		return Meeting{}, err
	}
	return m, nil
}

func (s *Schedule) Update(ctx context.Context, in Input, now time.Time) (Meeting, error) {
	id := strings.TrimSpace(in.ID)
	prev, ok := s.meetings[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}

	d, err := parse(in)
	if err != nil {
		return Meeting{}, err
	}
	if !d.startsAt.Equal(prev.StartsAt) {
		if err := checkNotPast(d.startsAt, now); err != nil {
			return Meeting{}, err
		}
	}

	m := prev
	m.Title = d.title
	m.StartsAt = d.startsAt
	m.DurationMin = d.durationMin
	if other, ok := s.Conflict(m, id); ok {
		return Meeting{}, fmt.Errorf("%w: %q", ErrOverlap, other.Title)
	}

	s.meetings[id] = m
	if err := s.persist(ctx); err != nil {
		s.meetings[id] = prev
		return Meeting{}, err
	}
	return m, nil
}

func (s *Schedule) Delete(ctx context.Context, id string) (Meeting, error) {
	prev, ok := s.meetings[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}

	delete(s.meetings, id)
	if err := s.persist(ctx); err != nil {
		s.meetings[id] = prev
		return Meeting{}, err
	}
	return prev, nil
}

func (s *Schedule) persist(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	if err := s.saver.SaveMeetings(ctx, s.All()); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func sortByStart(ms []Meeting) {
	slices.SortFunc(ms, func(a, b Meeting) int {
		if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
