// Package scheduler drives the azan loop: refresh the day's prayer times,
// keep exactly one timer armed for the next actionable prayer, dispatch
// playback when it fires, and roll the schedule over at midnight.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"sync"

	"minaret/internal/audio"
	"minaret/internal/clock"
	"minaret/internal/config"
	"minaret/internal/player"
	"minaret/internal/prayer"
	"minaret/internal/provider"

	"go.uber.org/zap"
)

// TestPrayer is the manual-trigger pseudo prayer. It plays the short sound,
// bypasses the played guard and is never marked played.
const TestPrayer = "Test"

// Scheduler owns one schedule, one played-set and at most one outstanding
// fire timer, plus an independent periodic refresh timer. All mutations are
// serialized through its mutex: the marked-played write always happens before
// the re-arm that reads it.
type Scheduler struct {
	source  provider.Provider
	sink    player.Player
	library *audio.Library
	status  *player.StatusTracker
	clk     clock.Clock
	logger  *zap.Logger

	enabled   map[prayer.Name]bool
	offsets   prayer.OffsetPolicy
	sounds    config.SoundConfig
	mediaBase string
	interval  time.Duration

	// SunriseFallback, when set, supplies a computed sunrise for days where
	// the provider omits one.
	SunriseFallback func(day time.Time) (time.Time, bool)

	mu           sync.Mutex
	schedule     *prayer.Schedule
	hijri        string
	fireTimer    clock.Timer
	refreshTimer clock.Timer
	armedFor     prayer.Name // empty when waiting for midnight
	armedAt      time.Time
	started      bool
	onUpdate     func()
}

// New creates a scheduler. mediaBase is the URL prefix media targets fetch
// audio from (see player.HAPlayer.MediaBase).
func New(
	source provider.Provider,
	sink player.Player,
	library *audio.Library,
	status *player.StatusTracker,
	clk clock.Clock,
	cfg *config.Config,
	mediaBase string,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		source:    source,
		sink:      sink,
		library:   library,
		status:    status,
		clk:       clk,
		logger:    logger.Named("scheduler"),
		enabled:   cfg.Prayers.EnabledMap(),
		offsets:   cfg.OffsetPolicy(),
		sounds:    cfg.Sounds,
		mediaBase: mediaBase,
		interval:  cfg.RefreshInterval(),
	}
}

// OnUpdate registers a callback invoked after every schedule or played-set
// change, outside the scheduler's lock. Used by the observable publisher.
func (s *Scheduler) OnUpdate(fn func()) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Start fetches the initial schedule and arms the loop. A failed initial
// fetch is not fatal: the midnight timer keeps the loop alive and the
// periodic refresh retries.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("Starting prayer scheduler",
		zap.String("source", s.source.Name()),
		zap.Duration("refresh_interval", s.interval))

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("Initial refresh failed, will retry on schedule", zap.Error(err))
		s.mu.Lock()
		s.arm()
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.armRefresh()
	s.mu.Unlock()

	return nil
}

// Stop cancels all outstanding timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fireTimer != nil {
		s.fireTimer.Stop()
		s.fireTimer = nil
	}
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
	s.started = false
	s.logger.Info("Prayer scheduler stopped")
}

// Refresh fetches today's times and replaces the schedule. The played set
// carries over only when the date is unchanged. On any upstream failure the
// previous schedule stays in effect and no timer is re-armed from bad data.
func (s *Scheduler) Refresh(ctx context.Context) error {
	result, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch prayer times", zap.Error(err))
		return err
	}

	now := s.clk.Now()
	next := prayer.BuildSchedule(result.Times, now, prayer.BuildOptions{
		Enabled:         s.enabled,
		TwelveHour:      result.TwelveHour,
		SunriseFallback: s.SunriseFallback,
	}, s.logger)

	if len(next.Prayers) == 0 {
		err := &provider.UpstreamError{
			Source: s.source.Name(),
			Err:    fmt.Errorf("no recognized prayers in response"),
		}
		s.logger.Error("Refresh produced empty schedule, keeping previous", zap.Error(err))
		return err
	}

	s.mu.Lock()
	next.CarryPlayedFrom(s.schedule)
	s.schedule = next
	if result.Hijri != "" {
		s.hijri = result.Hijri
	}
	s.logger.Info("Prayer times refreshed",
		zap.String("date", next.Date),
		zap.Int("prayers", len(next.Prayers)),
		zap.Any("played", next.PlayedNames()))
	s.arm()
	s.mu.Unlock()

	s.notify()
	return nil
}

// arm re-derives the next timer. Callers must hold s.mu. Any previously
// outstanding fire timer is cancelled first so exactly one ever exists.
func (s *Scheduler) arm() {
	if s.fireTimer != nil {
		s.fireTimer.Stop()
		s.fireTimer = nil
	}
	if !s.started {
		return
	}

	now := s.clk.Now()
	next := prayer.NextPrayer(s.schedule, now, s.offsets)
	if next == nil {
		// Nothing left today: wake just after midnight and refresh. The one
		// minute margin avoids racing the provider's day boundary.
		target := midnightAfter(now).Add(time.Minute)
		s.armedFor = ""
		s.armedAt = target
		s.fireTimer = s.clk.AfterFunc(s.clk.Until(target), s.onMidnight)
		s.logger.Info("No prayers remaining today, scheduled rollover refresh",
			zap.Time("at", target))
		return
	}

	target := next.Time.Add(-s.offsets.Offset(next.Name))
	s.armedFor = next.Name
	s.armedAt = target
	name := next.Name
	s.fireTimer = s.clk.AfterFunc(s.clk.Until(target), func() {
		s.onFire(name)
	})
	s.logger.Info("Armed azan timer",
		zap.String("prayer", string(name)),
		zap.Time("at", target))
}

func midnightAfter(now time.Time) time.Time {
	next := now.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, now.Location())
}

// onFire handles a prayer timer firing.
func (s *Scheduler) onFire(name prayer.Name) {
	s.mu.Lock()

	// Guard against duplicate triggers: a manual play or a racing re-arm may
	// have marked this prayer already.
	if s.schedule != nil && s.schedule.Played(name) {
		s.logger.Debug("Prayer already played, skipping duplicate trigger",
			zap.String("prayer", string(name)))
		s.arm()
		s.mu.Unlock()
		return
	}

	s.logger.Info("Prayer timer fired", zap.String("prayer", string(name)))
	played := s.dispatchLocked(name, s.sounds.Selection(name))
	if played && s.schedule != nil {
		s.schedule.MarkPlayed(name)
	}
	s.arm()
	s.mu.Unlock()

	s.notify()
}

// dispatchLocked resolves the audio and invokes the playback capability.
// Returns true only when the dispatch succeeded; a failure leaves the prayer
// unplayed so a later refresh or manual trigger can still attempt it.
func (s *Scheduler) dispatchLocked(name prayer.Name, selection string) bool {
	filename, ok := s.library.Resolve(name, selection)
	if !ok {
		s.logger.Error("No audio available for prayer",
			zap.String("prayer", string(name)))
		return false
	}

	mediaURL := audio.MediaURL(s.mediaBase, filename)
	if err := s.sink.Play(name, mediaURL); err != nil {
		s.logger.Error("Playback dispatch failed",
			zap.String("prayer", string(name)),
			zap.Error(err))
		return false
	}

	s.status.StartedPlaying(name)
	return true
}

// onMidnight handles the day-rollover timer: force a refresh (the date change
// resets the played set) and re-arm from the fresh schedule.
func (s *Scheduler) onMidnight() {
	s.logger.Info("Midnight rollover, refreshing prayer times")

	if err := s.Refresh(context.Background()); err != nil {
		// Refresh arms on success; on failure re-arm from the stale schedule
		// so the loop self-heals at the next rollover or periodic refresh.
		s.mu.Lock()
		s.arm()
		s.mu.Unlock()
	}
}

// armRefresh schedules the next periodic refresh. Callers hold s.mu. The
// refresh timer is independent of the fire timer: a hung fetch stalls only
// the refresh path.
func (s *Scheduler) armRefresh() {
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}
	if !s.started {
		return
	}
	s.refreshTimer = s.clk.AfterFunc(s.interval, s.onPeriodicRefresh)
}

func (s *Scheduler) onPeriodicRefresh() {
	if err := s.Refresh(context.Background()); err != nil {
		s.logger.Warn("Periodic refresh failed, keeping previous schedule", zap.Error(err))
	}
	s.mu.Lock()
	s.armRefresh()
	s.mu.Unlock()
}

// PlayNow handles a manual play request for a named prayer or TestPrayer.
// Test plays the short recording, skips the guard and is never marked played.
// A named prayer still consults the played guard. Either way the normal
// schedule is re-armed afterward.
func (s *Scheduler) PlayNow(name string) error {
	if name == TestPrayer {
		s.mu.Lock()
		ok := s.dispatchLocked(prayer.Name(TestPrayer), config.SoundShort)
		s.arm()
		s.mu.Unlock()
		s.notify()
		if !ok {
			return fmt.Errorf("test playback failed")
		}
		return nil
	}

	pname := prayer.Name(name)
	if !prayer.IsCanonical(pname) {
		return fmt.Errorf("unknown prayer %q", name)
	}

	s.mu.Lock()
	if s.schedule != nil && s.schedule.Played(pname) {
		s.logger.Debug("Prayer already played, ignoring manual trigger",
			zap.String("prayer", name))
		s.arm()
		s.mu.Unlock()
		return nil
	}

	played := s.dispatchLocked(pname, s.sounds.Selection(pname))
	if played && s.schedule != nil {
		s.schedule.MarkPlayed(pname)
	}
	s.arm()
	s.mu.Unlock()

	s.notify()
	if !played {
		return fmt.Errorf("playback failed for %s", name)
	}
	return nil
}

// StopPlayback stops the currently playing azan.
func (s *Scheduler) StopPlayback() error {
	err := s.sink.Stop()
	s.status.Stopped()
	s.notify()
	return err
}

func (s *Scheduler) notify() {
	s.mu.Lock()
	fn := s.onUpdate
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
