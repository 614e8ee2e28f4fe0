package player

import (
	"sync"
	"time"

	"minaret/internal/clock"
	"minaret/internal/prayer"

	"go.uber.org/zap"
)

// Status is the externally visible playback state.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusDownloading Status = "downloading"
	StatusPlaying     Status = "playing"
)

// playingReset is how long after a dispatch the playing state clears itself.
// Home Assistant gives no end-of-media signal for fire-and-forget playback.
const playingReset = 5 * time.Minute

// StatusTracker owns the idle/downloading/playing state and the name of the
// prayer currently playing.
type StatusTracker struct {
	clk    clock.Clock
	logger *zap.Logger

	mu          sync.Mutex
	downloading bool
	current     prayer.Name
	playing     bool
	resetTimer  clock.Timer
	onChange    func()
}

// NewStatusTracker creates a tracker on the given clock.
func NewStatusTracker(clk clock.Clock, logger *zap.Logger) *StatusTracker {
	return &StatusTracker{
		clk:    clk,
		logger: logger.Named("status"),
	}
}

// OnChange registers a callback invoked after every state transition, outside
// the tracker's lock.
func (t *StatusTracker) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// SetDownloading flips the downloading flag, shown while audio is prepared.
func (t *StatusTracker) SetDownloading(v bool) {
	t.mu.Lock()
	changed := t.downloading != v
	t.downloading = v
	fn := t.onChange
	t.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
}

// StartedPlaying records a successful dispatch for the named prayer and arms
// the auto-reset. A new dispatch replaces any pending reset.
func (t *StatusTracker) StartedPlaying(name prayer.Name) {
	t.mu.Lock()
	if t.resetTimer != nil {
		t.resetTimer.Stop()
	}
	t.playing = true
	t.current = name
	t.resetTimer = t.clk.AfterFunc(playingReset, func() {
		t.resetIfCurrent(name)
	})
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (t *StatusTracker) resetIfCurrent(name prayer.Name) {
	t.mu.Lock()
	if !t.playing || t.current != name {
		t.mu.Unlock()
		return
	}
	t.logger.Debug("Clearing playing state", zap.String("prayer", string(name)))
	t.playing = false
	t.current = ""
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stopped clears the playing state immediately.
func (t *StatusTracker) Stopped() {
	t.mu.Lock()
	if t.resetTimer != nil {
		t.resetTimer.Stop()
		t.resetTimer = nil
	}
	changed := t.playing
	t.playing = false
	t.current = ""
	fn := t.onChange
	t.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
}

// Status returns the current playback status. Playing wins over downloading,
// matching how the states are surfaced to the user.
func (t *StatusTracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing {
		return StatusPlaying
	}
	if t.downloading {
		return StatusDownloading
	}
	return StatusIdle
}

// CurrentlyPlaying returns the prayer currently playing, if any.
func (t *StatusTracker) CurrentlyPlaying() (prayer.Name, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.playing
}
