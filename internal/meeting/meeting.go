// Package meeting models scheduled meetings and the rules that decide when
// they may be created and joined.
package meeting

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleRunes  = 120
	MaxDurationMin = 480
	PastGrace      = 5 * time.Minute
)

var (
	ErrValidation = errors.New("invalid meeting")
	ErrOverlap    = errors.New("meeting overlaps another meeting")
	ErrNotFound   = errors.New("meeting not found")
	ErrNotToday   = errors.New("meeting is not scheduled for today")
	ErrNotStarted = errors.New("meeting has not started yet")
	ErrEnded      = errors.New("meeting has ended")
	ErrStorage    = errors.New("failed to persist meetings")
)

type Meeting struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"startsAt"`
	DurationMin int       `json:"durationMin"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy,omitempty"`
}

// Input is an unvalidated create or update request.
type Input struct {
	ID          string
	Title       string
	StartsAt    string
	DurationMin int
}

func (m Meeting) Duration() time.Duration {
	return time.Duration(m.DurationMin) * time.Minute
}

// OccupiesAt reports whether the meeting still holds the schedule at t,
// i.e. t is before its end. A zero duration occupies the schedule forever.
func (m Meeting) OccupiesAt(t time.Time) bool {
	if m.DurationMin == 0 {
		return true
	}
	return t.Before(m.StartsAt.Add(m.Duration()))
}

// Overlaps reports whether the half-open intervals [start, end) intersect.
func Overlaps(a, b Meeting) bool {
	return b.OccupiesAt(a.StartsAt) && a.OccupiesAt(b.StartsAt)
}

// HasEnded reports whether now is past the meeting's end. A zero duration never ends.
func (m Meeting) HasEnded(now time.Time) bool {
	if m.DurationMin == 0 {
		return false
	}
	return !now.Before(m.StartsAt.Add(m.Duration()))
}

func (m Meeting) HasStarted(now time.Time) bool {
	return !now.Before(m.StartsAt)
}

// SameDay compares calendar days of a and b in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// CheckJoinable returns nil when the meeting room accepts participants at now.
func (m Meeting) CheckJoinable(now time.Time, loc *time.Location) error {
	switch {
	case !SameDay(m.StartsAt, now, loc):
		return ErrNotToday
	case !m.HasStarted(now):
		return ErrNotStarted
	case m.HasEnded(now):
		return ErrEnded
	}
	return nil
}

// draft holds the validated fields of an Input.
type draft struct {
	title       string
	startsAt    time.Time
	durationMin int
}

func parse(in Input) (draft, error) {
	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n == 0 || n > MaxTitleRunes {
		return draft{}, fmt.Errorf("%w: title must be 1..%d characters", ErrValidation, MaxTitleRunes)
	}
	if in.DurationMin < 0 || in.DurationMin > MaxDurationMin {
		return draft{}, fmt.Errorf("%w: duration must be 0..%d minutes", ErrValidation, MaxDurationMin)
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(in.StartsAt))
	if err != nil {
		return draft{}, fmt.Errorf("%w: startsAt must be an RFC 3339 timestamp", ErrValidation)
	}
	return draft{title: title, startsAt: start.UTC(), durationMin: in.DurationMin}, nil
}

func checkNotPast(start, now time.Time) error {
	if start.Before(now.Add(-PastGrace)) {
		return fmt.Errorf("%w: meeting cannot start in the past", ErrValidation)
	}
	return nil
}
