// Package config loads and validates the minaret configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"minaret/internal/prayer"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Provider source identifiers
const (
	SourceAlAdhan  = "aladhan"
	SourceQatarMOI = "qatar_moi"
)

// Playback modes
const (
	PlaybackMediaPlayer = "media_player"
	PlaybackAndroidVLC  = "android_vlc"
)

// Sound selection options
const (
	SoundFull   = "full"
	SoundShort  = "short"
	SoundCustom = "custom"
)

const (
	defaultMethod       = 2 // Islamic Society of North America
	defaultRefreshHours = 6
	defaultAPIPort      = 8099
	maxSunriseOffset    = 45
)

// Config is the root of minaret_config.yaml.
type Config struct {
	Provider string `yaml:"provider"`
	City     string `yaml:"city"`
	Country  string `yaml:"country"`
	Method   int    `yaml:"method"`

	// Coordinates enable the local sunrise fallback computation
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`

	Prayers              PrayerToggles  `yaml:"prayers"`
	SunriseOffsetMinutes int            `yaml:"sunrise_offset_minutes"`
	Playback             PlaybackConfig `yaml:"playback"`
	Sounds               SoundConfig    `yaml:"sounds"`

	RefreshHours int `yaml:"refresh_hours"`
	APIPort      int `yaml:"api_port"`
}

// PrayerToggles are the per-prayer enabled flags. Unset toggles take the
// defaults: Sunrise disabled, every other prayer enabled.
type PrayerToggles struct {
	Fajr    *bool `yaml:"fajr"`
	Sunrise *bool `yaml:"sunrise"`
	Dhuhr   *bool `yaml:"dhuhr"`
	Asr     *bool `yaml:"asr"`
	Maghrib *bool `yaml:"maghrib"`
	Isha    *bool `yaml:"isha"`
}

// EnabledMap resolves the toggles into the map the schedule builder consumes.
func (t PrayerToggles) EnabledMap() map[prayer.Name]bool {
	resolve := func(v *bool, def bool) bool {
		if v != nil {
			return *v
		}
		return def
	}
	return map[prayer.Name]bool{
		prayer.Fajr:    resolve(t.Fajr, true),
		prayer.Sunrise: resolve(t.Sunrise, false),
		prayer.Dhuhr:   resolve(t.Dhuhr, true),
		prayer.Asr:     resolve(t.Asr, true),
		prayer.Maghrib: resolve(t.Maghrib, true),
		prayer.Isha:    resolve(t.Isha, true),
	}
}

// PlaybackConfig describes how and where the azan is played.
type PlaybackConfig struct {
	Mode string `yaml:"mode"`

	// MediaPlayers accepts a single entity id or a list in YAML; it is always
	// a list by the time anything else sees it.
	MediaPlayers TargetList `yaml:"media_players"`

	NotifyService   string `yaml:"notify_service"`
	InternalBaseURL string `yaml:"internal_base_url"`
	ExternalBaseURL string `yaml:"external_base_url"`
}

// SoundConfig selects which azan recording plays for each prayer and where
// the audio files live.
type SoundConfig struct {
	MediaDir   string `yaml:"media_dir"`
	FullFile   string `yaml:"full_file"`
	ShortFile  string `yaml:"short_file"`
	FajrFile   string `yaml:"fajr_file"`
	CustomFile string `yaml:"custom_file"`

	Fajr    string `yaml:"fajr"`
	Sunrise string `yaml:"sunrise"`
	Dhuhr   string `yaml:"dhuhr"`
	Asr     string `yaml:"asr"`
	Maghrib string `yaml:"maghrib"`
	Isha    string `yaml:"isha"`
}

// Selection returns the configured sound option for a prayer, defaulting to
// the full recording.
func (s SoundConfig) Selection(name prayer.Name) string {
	var v string
	switch name {
	case prayer.Fajr:
		v = s.Fajr
	case prayer.Sunrise:
		v = s.Sunrise
	case prayer.Dhuhr:
		v = s.Dhuhr
	case prayer.Asr:
		v = s.Asr
	case prayer.Maghrib:
		v = s.Maghrib
	case prayer.Isha:
		v = s.Isha
	}
	if v == "" {
		return SoundFull
	}
	return v
}

// TargetList is a []string that also accepts a single scalar in YAML, so a
// config may say either `media_players: media_player.living_room` or provide
// a list. Everything downstream only ever deals with a list.
type TargetList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TargetList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		if single == "" {
			*t = nil
			return nil
		}
		*t = TargetList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*t = TargetList(many)
		return nil
	default:
		return fmt.Errorf("media_players must be a string or a list of strings")
	}
}

// Load reads, defaults and validates the config file at path.
func Load(path string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration",
		zap.String("path", path),
		zap.String("provider", cfg.Provider),
		zap.String("playback_mode", cfg.Playback.Mode),
		zap.Int("sunrise_offset_minutes", cfg.SunriseOffsetMinutes))

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = SourceAlAdhan
	}
	if c.Method == 0 {
		c.Method = defaultMethod
	}
	if c.Playback.Mode == "" {
		c.Playback.Mode = PlaybackMediaPlayer
	}
	if c.RefreshHours == 0 {
		c.RefreshHours = defaultRefreshHours
	}
	if c.APIPort == 0 {
		c.APIPort = defaultAPIPort
	}

	// The sunrise offset models an avoidance window and is bounded 0-45
	if c.SunriseOffsetMinutes < 0 {
		c.SunriseOffsetMinutes = 0
	}
	if c.SunriseOffsetMinutes > maxSunriseOffset {
		c.SunriseOffsetMinutes = maxSunriseOffset
	}
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Provider {
	case SourceAlAdhan:
		if c.City == "" || c.Country == "" {
			return fmt.Errorf("provider %s requires city and country", SourceAlAdhan)
		}
	case SourceQatarMOI:
		// No location parameters; the portal serves Qatar only
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Playback.Mode {
	case PlaybackMediaPlayer:
		if len(c.Playback.MediaPlayers) == 0 {
			return fmt.Errorf("playback mode %s requires at least one media player", PlaybackMediaPlayer)
		}
	case PlaybackAndroidVLC:
		if c.Playback.NotifyService == "" {
			return fmt.Errorf("playback mode %s requires a notify service", PlaybackAndroidVLC)
		}
	default:
		return fmt.Errorf("unknown playback mode %q", c.Playback.Mode)
	}

	if (c.Latitude == nil) != (c.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be set together")
	}

	for _, name := range prayer.CanonicalOrder {
		switch c.Sounds.Selection(name) {
		case SoundFull, SoundShort, SoundCustom:
		default:
			return fmt.Errorf("invalid sound selection for %s: %q", name, c.Sounds.Selection(name))
		}
	}

	return nil
}

// RefreshInterval returns the schedule refresh cadence.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshHours) * time.Hour
}

// OffsetPolicy returns the scheduling offsets derived from the config.
func (c *Config) OffsetPolicy() prayer.OffsetPolicy {
	return prayer.OffsetPolicy{SunriseOffsetMinutes: c.SunriseOffsetMinutes}
}
