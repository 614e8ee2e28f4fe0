// Package player dispatches azan playback to Home Assistant and tracks the
// resulting playback status.
package player

import (
	"fmt"
	"strings"

	"minaret/internal/config"
	"minaret/internal/ha"
	"minaret/internal/prayer"

	"go.uber.org/zap"
)

// Player is the playback capability the scheduler invokes. Implementations
// dispatch the command and return; they do not wait for the audio to finish.
type Player interface {
	Play(name prayer.Name, mediaURL string) error
	Stop() error
}

// DispatchError reports a failed playback service call. The scheduler leaves
// the prayer unplayed when it sees one so a later cycle can retry.
type DispatchError struct {
	Target string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("playback dispatch to %s: %v", e.Target, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// HAPlayer plays azan audio through Home Assistant, either on media_player
// entities or on an Android companion device driven through notify commands.
type HAPlayer struct {
	client ha.HAClient
	logger *zap.Logger

	mode          string
	targets       []string
	notifyService string
	internalBase  string
	externalBase  string
}

// NewHAPlayer creates a player for the configured playback mode and targets.
func NewHAPlayer(client ha.HAClient, playback config.PlaybackConfig, logger *zap.Logger) *HAPlayer {
	return &HAPlayer{
		client:        client,
		logger:        logger.Named("player"),
		mode:          playback.Mode,
		targets:       playback.MediaPlayers,
		notifyService: playback.NotifyService,
		internalBase:  playback.InternalBaseURL,
		externalBase:  playback.ExternalBaseURL,
	}
}

// MediaBase returns the base URL media devices should fetch audio from:
// media_player entities live on the local network and prefer the internal
// URL, while the Android companion app needs the external one.
func (p *HAPlayer) MediaBase() string {
	if p.mode == config.PlaybackAndroidVLC {
		if p.externalBase != "" {
			return strings.TrimRight(p.externalBase, "/")
		}
		return strings.TrimRight(p.internalBase, "/")
	}
	if p.internalBase != "" {
		return strings.TrimRight(p.internalBase, "/")
	}
	return strings.TrimRight(p.externalBase, "/")
}

// Play dispatches playback of mediaURL for the named prayer.
func (p *HAPlayer) Play(name prayer.Name, mediaURL string) error {
	p.logger.Info("Dispatching azan playback",
		zap.String("prayer", string(name)),
		zap.String("media_url", mediaURL),
		zap.String("mode", p.mode))

	if p.mode == config.PlaybackAndroidVLC {
		return p.playAndroid(mediaURL)
	}
	return p.playMediaPlayers(mediaURL)
}

func (p *HAPlayer) playMediaPlayers(mediaURL string) error {
	for _, target := range p.targets {
		err := p.client.CallService("media_player", "play_media", map[string]interface{}{
			"entity_id":          target,
			"media_content_id":   mediaURL,
			"media_content_type": "music",
		})
		if err != nil {
			return &DispatchError{Target: target, Err: err}
		}
	}
	return nil
}

func (p *HAPlayer) playAndroid(mediaURL string) error {
	// Wake the screen first, then hand the URL to VLC
	err := p.client.CallService("notify", p.notifyService, map[string]interface{}{
		"message": "command_screen_on",
		"data":    map[string]interface{}{"ttl": 0, "priority": "high"},
	})
	if err != nil {
		return &DispatchError{Target: p.notifyService, Err: err}
	}

	err = p.client.CallService("notify", p.notifyService, map[string]interface{}{
		"message": "command_activity",
		"data": map[string]interface{}{
			"intent_action":       "android.intent.action.VIEW",
			"intent_uri":          mediaURL,
			"intent_type":         "audio/mpeg",
			"intent_package_name": "org.videolan.vlc",
			"ttl":                 0,
			"priority":            "high",
		},
	})
	if err != nil {
		return &DispatchError{Target: p.notifyService, Err: err}
	}
	return nil
}

// Stop halts playback on every configured target.
func (p *HAPlayer) Stop() error {
	if p.mode == config.PlaybackAndroidVLC {
		err := p.client.CallService("notify", p.notifyService, map[string]interface{}{
			"message": "command_media",
			"data": map[string]interface{}{
				"media_command":      "stop",
				"media_package_name": "org.videolan.vlc",
				"ttl":                0,
				"priority":           "high",
			},
		})
		if err != nil {
			return &DispatchError{Target: p.notifyService, Err: err}
		}
		return nil
	}

	for _, target := range p.targets {
		err := p.client.CallService("media_player", "media_stop", map[string]interface{}{
			"entity_id": target,
		})
		if err != nil {
			return &DispatchError{Target: target, Err: err}
		}
		p.logger.Info("Stopped playback", zap.String("target", target))
	}
	return nil
}
