package prayer

import (
	"time"

	"go.uber.org/zap"
)

// BuildOptions controls schedule normalization.
type BuildOptions struct {
	// Enabled maps prayer names to their user toggle. Missing names are
	// treated as disabled.
	Enabled map[Name]bool

	// TwelveHour marks the raw mapping as coming from the 12-hour table
	// source, enabling the PM disambiguation rule.
	TwelveHour bool

	// SunriseFallback, when set, computes a local sunrise for the given day.
	// It is consulted only when the source did not yield a usable Sunrise
	// entry. The boolean reports whether a sunrise could be computed.
	SunriseFallback func(day time.Time) (time.Time, bool)
}

// BuildSchedule normalizes a raw name -> time-string mapping into a canonical
// schedule for the day containing now. It walks the canonical prayer order,
// so the result is ordered regardless of input iteration order; names outside
// the canonical set are silently dropped, and entries whose time cannot be
// parsed are logged and skipped rather than failing the whole schedule.
//
// A mapping that yields zero recognized prayers still produces a valid, empty
// schedule; deciding that this constitutes a failed refresh is the caller's
// responsibility. The played set starts empty; callers carry it forward with
// CarryPlayedFrom when the date is unchanged.
func BuildSchedule(raw map[string]string, now time.Time, opts BuildOptions, logger *zap.Logger) *Schedule {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := NewSchedule(now.Format(DateLayout))

	for _, name := range CanonicalOrder {
		at, ok := resolveTime(name, raw, now, opts, logger)
		if !ok {
			continue
		}
		s.Prayers = append(s.Prayers, Prayer{
			Name:    name,
			Time:    at,
			Enabled: opts.Enabled[name],
		})
	}

	return s
}

func resolveTime(name Name, raw map[string]string, now time.Time, opts BuildOptions, logger *zap.Logger) (time.Time, bool) {
	rawTime, present := raw[string(name)]
	if present {
		hour, minute, err := ParseClock(rawTime)
		if err == nil {
			if opts.TwelveHour {
				hour = ApplyPMRule(name, hour)
			}
			return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), true
		}
		logger.Warn("Dropping unparseable prayer time",
			zap.String("prayer", string(name)),
			zap.String("raw", rawTime),
			zap.Error(err))
	}

	if name == Sunrise && opts.SunriseFallback != nil {
		if at, ok := opts.SunriseFallback(now); ok {
			logger.Debug("Using computed sunrise fallback",
				zap.Time("sunrise", at))
			return at, true
		}
	}

	return time.Time{}, false
}
