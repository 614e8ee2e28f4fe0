// Package state publishes minaret's observables into Home Assistant helper
// entities (input_text / input_boolean), diffing against a local cache so
// unchanged values cost no service calls.
package state

import (
	"fmt"
	"strings"
	"sync"

	"minaret/internal/ha"
	"minaret/internal/scheduler"

	"go.uber.org/zap"
)

// Helper entity names. The matching helpers must exist in Home Assistant;
// writes to missing helpers fail per-entity and are logged, not fatal.
const (
	helperNextPrayer       = "azan_next_prayer"
	helperCountdown        = "azan_countdown"
	helperStatus           = "azan_status"
	helperCurrentlyPlaying = "azan_currently_playing"
	helperHijriDate        = "azan_hijri_date"
)

func prayerTimeHelper(name string) string {
	return "azan_" + strings.ToLower(name) + "_time"
}

func prayerPlayedHelper(name string) string {
	return "azan_" + strings.ToLower(name) + "_played"
}

func prayerEnabledHelper(name string) string {
	return "azan_" + strings.ToLower(name) + "_enabled"
}

// Publisher writes schedule snapshots into Home Assistant.
type Publisher struct {
	client   ha.HAClient
	logger   *zap.Logger
	readOnly bool

	mu    sync.Mutex
	cache map[string]string
}

// NewPublisher creates a publisher. In read-only mode changes are logged but
// never written to Home Assistant.
func NewPublisher(client ha.HAClient, logger *zap.Logger, readOnly bool) *Publisher {
	return &Publisher{
		client:   client,
		logger:   logger.Named("state"),
		readOnly: readOnly,
		cache:    make(map[string]string),
	}
}

// Publish pushes every changed observable from the snapshot.
func (p *Publisher) Publish(snap scheduler.Snapshot) {
	for _, pr := range snap.Prayers {
		p.setText(prayerTimeHelper(pr.Name), pr.Time)
		p.setBool(prayerPlayedHelper(pr.Name), pr.Played)
		p.setBool(prayerEnabledHelper(pr.Name), pr.Enabled)
	}

	nextName, countdown := "", ""
	if snap.Next != nil {
		nextName = snap.Next.Name
		countdown = fmt.Sprintf("%d:%02d:%02d", snap.Next.Hours, snap.Next.Minutes, snap.Next.Seconds)
	}
	p.setText(helperNextPrayer, nextName)
	p.setText(helperCountdown, countdown)
	p.setText(helperStatus, snap.Status)
	p.setText(helperCurrentlyPlaying, snap.CurrentlyPlaying)
	p.setText(helperHijriDate, snap.Hijri)
}

func (p *Publisher) setText(name, value string) {
	if !p.dirty("text:"+name, value) {
		return
	}
	if p.readOnly {
		p.logger.Info("READ-ONLY mode: would set input_text",
			zap.String("name", name),
			zap.String("value", value))
		return
	}
	if err := p.client.SetInputText(name, value); err != nil {
		p.logger.Warn("Failed to set input_text",
			zap.String("name", name),
			zap.Error(err))
		p.invalidate("text:" + name)
	}
}

func (p *Publisher) setBool(name string, value bool) {
	str := fmt.Sprintf("%t", value)
	if !p.dirty("bool:"+name, str) {
		return
	}
	if p.readOnly {
		p.logger.Info("READ-ONLY mode: would set input_boolean",
			zap.String("name", name),
			zap.Bool("value", value))
		return
	}
	if err := p.client.SetInputBoolean(name, value); err != nil {
		p.logger.Warn("Failed to set input_boolean",
			zap.String("name", name),
			zap.Error(err))
		p.invalidate("bool:" + name)
	}
}

// dirty records the new value and reports whether it differed from the cache.
func (p *Publisher) dirty(key, value string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.cache[key]; ok && prev == value {
		return false
	}
	p.cache[key] = value
	return true
}

// invalidate drops a cache entry after a failed write so the next publish
// retries it.
func (p *Publisher) invalidate(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, key)
}
