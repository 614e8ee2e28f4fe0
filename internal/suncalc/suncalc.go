// Package suncalc computes local sunrise times from coordinates. It backs the
// Sunrise schedule entry when the upstream provider omits or mangles it.
package suncalc

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
	"go.uber.org/zap"
)

// Calculator computes sunrise for a fixed location.
type Calculator struct {
	latitude  float64
	longitude float64
	logger    *zap.Logger
}

// NewCalculator creates a sunrise calculator for the given coordinates.
func NewCalculator(latitude, longitude float64, logger *zap.Logger) *Calculator {
	return &Calculator{
		latitude:  latitude,
		longitude: longitude,
		logger:    logger.Named("suncalc"),
	}
}

// SunriseOn returns the local sunrise for the day containing t, in t's
// location. The boolean is false in polar conditions where the sun does not
// rise that day.
func (c *Calculator) SunriseOn(t time.Time) (time.Time, bool) {
	rise, _ := sunrise.SunriseSunset(
		c.latitude, c.longitude,
		t.Year(), t.Month(), t.Day(),
	)
	if rise.IsZero() {
		c.logger.Warn("No sunrise for this day",
			zap.Float64("latitude", c.latitude),
			zap.Time("day", t))
		return time.Time{}, false
	}
	return rise.In(t.Location()), true
}
