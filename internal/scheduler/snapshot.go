package scheduler

import (
	"time"

	"minaret/internal/prayer"
)

// PrayerInfo is one prayer's observable state.
type PrayerInfo struct {
	Name    string    `json:"name"`
	Time    string    `json:"time"`
	At      time.Time `json:"datetime"`
	Enabled bool      `json:"enabled"`
	Played  bool      `json:"played"`
}

// NextInfo describes the next actionable prayer and the countdown to it.
type NextInfo struct {
	Name             string    `json:"name"`
	Time             string    `json:"time"`
	At               time.Time `json:"datetime"`
	CountdownMinutes int       `json:"countdown_minutes"`
	Hours            int       `json:"hours"`
	Minutes          int       `json:"minutes"`
	Seconds          int       `json:"seconds"`
}

// Snapshot is a point-in-time view of the schedule and playback state, used
// by the HTTP API and the Home Assistant publisher.
type Snapshot struct {
	Date             string       `json:"date"`
	Hijri            string       `json:"hijri,omitempty"`
	Prayers          []PrayerInfo `json:"prayers"`
	Next             *NextInfo    `json:"next_prayer,omitempty"`
	Status           string       `json:"status"`
	CurrentlyPlaying string       `json:"currently_playing,omitempty"`
}

// Snapshot captures the current observable state.
func (s *Scheduler) Snapshot() Snapshot {
	now := s.clk.Now()

	s.mu.Lock()
	schedule := s.schedule
	hijri := s.hijri
	var prayers []PrayerInfo
	var next *NextInfo
	if schedule != nil {
		prayers = make([]PrayerInfo, 0, len(schedule.Prayers))
		for _, p := range schedule.Prayers {
			prayers = append(prayers, PrayerInfo{
				Name:    string(p.Name),
				Time:    p.TimeString(),
				At:      p.Time,
				Enabled: p.Enabled,
				Played:  schedule.Played(p.Name),
			})
		}

		if np := prayer.NextPrayer(schedule, now, s.offsets); np != nil {
			remaining := np.Time.Sub(now)
			if remaining < 0 {
				remaining = 0
			}
			total := int(remaining.Seconds())
			next = &NextInfo{
				Name:             string(np.Name),
				Time:             np.TimeString(),
				At:               np.Time,
				CountdownMinutes: total / 60,
				Hours:            total / 3600,
				Minutes:          (total % 3600) / 60,
				Seconds:          total % 60,
			}
		}
	}
	s.mu.Unlock()

	snap := Snapshot{
		Hijri:   hijri,
		Prayers: prayers,
		Next:    next,
		Status:  string(s.status.Status()),
	}
	if schedule != nil {
		snap.Date = schedule.Date
	}
	if current, ok := s.status.CurrentlyPlaying(); ok {
		snap.CurrentlyPlaying = string(current)
	}
	return snap
}
