// Package provider implements the upstream prayer-time sources. Each provider
// fetches "today's" times and returns them as a raw name -> time-string
// mapping; normalization into a schedule happens in the prayer package.
package provider

import (
	"context"
	"fmt"
)

// Result is a single day's raw fetch from an upstream source.
type Result struct {
	// Times maps prayer names to raw time strings exactly as the source
	// returned them. Keys may include names outside the canonical set.
	Times map[string]string

	// Hijri is the Islamic date string when the source supplies one.
	Hijri string

	// TwelveHour marks sources that publish 12-hour clock values needing the
	// PM disambiguation rule.
	TwelveHour bool
}

// Provider is an upstream source of daily prayer times. Implementations are
// stateless per call and perform no retries; retry cadence belongs to the
// refresh loop.
type Provider interface {
	// Name identifies the source in logs and config
	Name() string

	// Fetch retrieves today's raw prayer times
	Fetch(ctx context.Context) (*Result, error)
}

// UpstreamError reports a provider fetch or parse failure. The refresh
// orchestrator keeps the previous schedule in effect when it sees one.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
