package prayer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(hour, minute int) time.Time {
	return time.Date(2026, 3, 1, hour, minute, 0, 0, time.UTC)
}

func testSchedule() *Schedule {
	s := NewSchedule("2026-03-01")
	s.Prayers = []Prayer{
		{Name: Fajr, Time: day(5, 0), Enabled: true},
		{Name: Sunrise, Time: day(6, 30), Enabled: false},
		{Name: Dhuhr, Time: day(12, 0), Enabled: true},
		{Name: Asr, Time: day(15, 30), Enabled: true},
		{Name: Maghrib, Time: day(18, 10), Enabled: true},
		{Name: Isha, Time: day(19, 45), Enabled: true},
	}
	return s
}

func TestNextPrayerSkipsPastAndDisabled(t *testing.T) {
	s := testSchedule()

	// At 05:30 Fajr has passed and Sunrise is disabled
	next := NextPrayer(s, day(5, 30), OffsetPolicy{})
	require.NotNil(t, next)
	assert.Equal(t, Dhuhr, next.Name)
}

func TestNextPrayerIsIdempotent(t *testing.T) {
	s := testSchedule()
	now := day(5, 30)

	first := NextPrayer(s, now, OffsetPolicy{})
	second := NextPrayer(s, now, OffsetPolicy{})
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Name, second.Name)
}

func TestNextPrayerHonorsPlayedSet(t *testing.T) {
	s := testSchedule()
	now := day(4, 0)

	next := NextPrayer(s, now, OffsetPolicy{})
	require.NotNil(t, next)
	assert.Equal(t, Fajr, next.Name)

	// Once marked played, Fajr is never returned again even though its time
	// has not been reached
	s.MarkPlayed(Fajr)
	next = NextPrayer(s, now, OffsetPolicy{})
	require.NotNil(t, next)
	assert.Equal(t, Dhuhr, next.Name)
}

func TestNextPrayerSunriseOffset(t *testing.T) {
	s := testSchedule()
	s.Get(Sunrise).Enabled = true

	// Sunrise at 06:30 with a 45 minute offset is effective at 05:45
	offsets := OffsetPolicy{SunriseOffsetMinutes: 45}
	next := NextPrayer(s, day(5, 30), offsets)
	require.NotNil(t, next)
	assert.Equal(t, Sunrise, next.Name)

	// Past the effective time the selection moves on even though the raw
	// sunrise is still ahead
	next = NextPrayer(s, day(5, 50), offsets)
	require.NotNil(t, next)
	assert.Equal(t, Dhuhr, next.Name)

	// The offset applies to Sunrise only
	next = NextPrayer(s, day(11, 50), OffsetPolicy{SunriseOffsetMinutes: 45})
	require.NotNil(t, next)
	assert.Equal(t, Dhuhr, next.Name)
}

func TestNextPrayerNoneRemaining(t *testing.T) {
	s := testSchedule()

	assert.Nil(t, NextPrayer(s, day(23, 0), OffsetPolicy{}))

	// All played
	s2 := testSchedule()
	for _, p := range s2.Prayers {
		s2.MarkPlayed(p.Name)
	}
	assert.Nil(t, NextPrayer(s2, day(4, 0), OffsetPolicy{}))

	// All disabled
	s3 := testSchedule()
	for i := range s3.Prayers {
		s3.Prayers[i].Enabled = false
	}
	assert.Nil(t, NextPrayer(s3, day(4, 0), OffsetPolicy{}))

	assert.Nil(t, NextPrayer(nil, day(4, 0), OffsetPolicy{}))
}

func TestNextUpcomingIgnoresFlags(t *testing.T) {
	s := testSchedule()
	s.MarkPlayed(Fajr)

	// Countdown keeps tracking disabled and played prayers
	next := NextUpcoming(s, day(4, 0))
	require.NotNil(t, next)
	assert.Equal(t, Fajr, next.Name)

	next = NextUpcoming(s, day(6, 0))
	require.NotNil(t, next)
	assert.Equal(t, Sunrise, next.Name)
}

func TestCarryPlayedFromSameDay(t *testing.T) {
	prev := testSchedule()
	prev.MarkPlayed(Fajr)
	prev.MarkPlayed(Dhuhr)

	next := testSchedule()
	next.CarryPlayedFrom(prev)

	assert.True(t, next.Played(Fajr))
	assert.True(t, next.Played(Dhuhr))
	assert.False(t, next.Played(Asr))
}

func TestCarryPlayedFromResetsAtRollover(t *testing.T) {
	prev := testSchedule()
	prev.MarkPlayed(Fajr)
	prev.MarkPlayed(Isha)

	next := testSchedule()
	next.Date = "2026-03-02"
	next.CarryPlayedFrom(prev)

	assert.Empty(t, next.PlayedNames())
}

func TestPlayedNamesCanonicalOrder(t *testing.T) {
	s := testSchedule()
	s.MarkPlayed(Isha)
	s.MarkPlayed(Fajr)
	s.MarkPlayed(Asr)

	assert.Equal(t, []Name{Fajr, Asr, Isha}, s.PlayedNames())
}

func TestIsCanonical(t *testing.T) {
	for _, n := range CanonicalOrder {
		assert.True(t, IsCanonical(n))
	}
	assert.False(t, IsCanonical("Midnight"))
	assert.False(t, IsCanonical("Test"))
}
