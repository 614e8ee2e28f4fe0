// Package prayer holds the canonical prayer schedule model: the fixed prayer
// order, time-of-day parsing for the upstream sources, schedule construction
// and next-prayer selection.
package prayer

import (
	"time"
)

// Name identifies one of the canonical daily prayers.
type Name string

// The canonical prayers, in chronological order.
const (
	Fajr    Name = "Fajr"
	Sunrise Name = "Sunrise"
	Dhuhr   Name = "Dhuhr"
	Asr     Name = "Asr"
	Maghrib Name = "Maghrib"
	Isha    Name = "Isha"
)

// CanonicalOrder is the fixed ordering of the daily prayers. Schedules always
// list prayers in this order regardless of how the upstream source returned
// them, and next-prayer selection scans it front to back.
var CanonicalOrder = []Name{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// IsCanonical reports whether name is one of the six tracked prayers.
func IsCanonical(name Name) bool {
	for _, n := range CanonicalOrder {
		if n == name {
			return true
		}
	}
	return false
}

// DateLayout is the local calendar-day key used by Schedule.Date.
const DateLayout = "2006-01-02"

// Prayer is a single named prayer slot resolved against a local day.
type Prayer struct {
	Name    Name
	Time    time.Time
	Enabled bool
}

// TimeString returns the prayer time formatted as HH:MM.
func (p Prayer) TimeString() string {
	return p.Time.Format("15:04")
}

// Schedule is one day's prayer set plus the played-today bookkeeping.
// It is owned exclusively by the scheduler; callers must not mutate it
// concurrently.
type Schedule struct {
	// Date is the local calendar day (DateLayout) this schedule is valid for
	Date string

	// Prayers is always in canonical order
	Prayers []Prayer

	played map[Name]struct{}
}

// NewSchedule creates an empty schedule for the given local day.
func NewSchedule(date string) *Schedule {
	return &Schedule{
		Date:   date,
		played: make(map[Name]struct{}),
	}
}

// Get returns the prayer with the given name, or nil if the schedule does not
// contain it.
func (s *Schedule) Get(name Name) *Prayer {
	for i := range s.Prayers {
		if s.Prayers[i].Name == name {
			return &s.Prayers[i]
		}
	}
	return nil
}

// MarkPlayed records that the named prayer has been triggered today.
func (s *Schedule) MarkPlayed(name Name) {
	if s.played == nil {
		s.played = make(map[Name]struct{})
	}
	s.played[name] = struct{}{}
}

// Played reports whether the named prayer has already been triggered today.
func (s *Schedule) Played(name Name) bool {
	_, ok := s.played[name]
	return ok
}

// PlayedNames returns the played set in canonical order.
func (s *Schedule) PlayedNames() []Name {
	names := make([]Name, 0, len(s.played))
	for _, n := range CanonicalOrder {
		if s.Played(n) {
			names = append(names, n)
		}
	}
	return names
}

// CarryPlayedFrom copies the played set from prev when both schedules cover
// the same local day. A refresh that crosses midnight gets a fresh, empty
// set, which is what resets the played-once guard at day rollover.
func (s *Schedule) CarryPlayedFrom(prev *Schedule) {
	if prev == nil || prev.Date != s.Date {
		return
	}
	for name := range prev.played {
		s.MarkPlayed(name)
	}
}

// OffsetPolicy is the per-prayer minute offset subtracted from a prayer's
// time before scheduling. Only Sunrise carries a configurable offset, used to
// model sunrise-avoidance windows; every other prayer fires exactly on time.
// This is intentionally not a general per-prayer offset table.
type OffsetPolicy struct {
	SunriseOffsetMinutes int
}

// Offset returns the scheduling offset for the named prayer.
func (o OffsetPolicy) Offset(name Name) time.Duration {
	if name == Sunrise {
		return time.Duration(o.SunriseOffsetMinutes) * time.Minute
	}
	return 0
}

// NextPrayer selects the next actionable prayer: the first enabled, unplayed
// prayer in canonical order whose effective time (prayer time minus offset)
// is strictly after now. It returns nil when nothing remains today, which is
// a normal terminal state telling the caller to wait for day rollover.
func NextPrayer(s *Schedule, now time.Time, offsets OffsetPolicy) *Prayer {
	if s == nil {
		return nil
	}
	for i := range s.Prayers {
		p := &s.Prayers[i]
		if !p.Enabled {
			continue
		}
		if s.Played(p.Name) {
			continue
		}
		effective := p.Time.Add(-offsets.Offset(p.Name))
		if effective.After(now) {
			return p
		}
	}
	return nil
}

// NextUpcoming returns the first prayer after now regardless of enabled or
// played state. Used for the countdown observable, which keeps ticking even
// when the next prayer will not trigger playback.
func NextUpcoming(s *Schedule, now time.Time) *Prayer {
	if s == nil {
		return nil
	}
	for i := range s.Prayers {
		if s.Prayers[i].Time.After(now) {
			return &s.Prayers[i]
		}
	}
	return nil
}
