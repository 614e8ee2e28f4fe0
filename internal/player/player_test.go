package player

import (
	"errors"
	"testing"

	"minaret/internal/config"
	"minaret/internal/ha"
	"minaret/internal/prayer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPlayMediaPlayers(t *testing.T) {
	mock := ha.NewMockClient()
	p := NewHAPlayer(mock, config.PlaybackConfig{
		Mode:            config.PlaybackMediaPlayer,
		MediaPlayers:    config.TargetList{"media_player.living_room", "media_player.bedroom"},
		InternalBaseURL: "http://ha.local:8123",
	}, zap.NewNop())

	url := "http://ha.local:8123/local/azan/azan_full.mp3"
	require.NoError(t, p.Play(prayer.Dhuhr, url))

	calls := mock.CallsFor("media_player", "play_media")
	require.Len(t, calls, 2)
	assert.Equal(t, "media_player.living_room", calls[0].Data["entity_id"])
	assert.Equal(t, "media_player.bedroom", calls[1].Data["entity_id"])
	assert.Equal(t, url, calls[0].Data["media_content_id"])
	assert.Equal(t, "music", calls[0].Data["media_content_type"])
}

func TestPlayMediaPlayersDispatchError(t *testing.T) {
	mock := ha.NewMockClient()
	mock.SetServiceError(errors.New("service unavailable"))
	p := NewHAPlayer(mock, config.PlaybackConfig{
		Mode:         config.PlaybackMediaPlayer,
		MediaPlayers: config.TargetList{"media_player.hall"},
	}, zap.NewNop())

	err := p.Play(prayer.Asr, "http://ha.local/x.mp3")
	require.Error(t, err)

	var dispatch *DispatchError
	require.True(t, errors.As(err, &dispatch))
	assert.Equal(t, "media_player.hall", dispatch.Target)
}

func TestPlayAndroidVLC(t *testing.T) {
	mock := ha.NewMockClient()
	p := NewHAPlayer(mock, config.PlaybackConfig{
		Mode:            config.PlaybackAndroidVLC,
		NotifyService:   "mobile_app_tablet",
		ExternalBaseURL: "https://ha.example.com",
	}, zap.NewNop())

	url := "https://ha.example.com/local/azan/azan_full.mp3"
	require.NoError(t, p.Play(prayer.Maghrib, url))

	calls := mock.CallsFor("notify", "mobile_app_tablet")
	require.Len(t, calls, 2)
	assert.Equal(t, "command_screen_on", calls[0].Data["message"])
	assert.Equal(t, "command_activity", calls[1].Data["message"])

	data, ok := calls[1].Data["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, url, data["intent_uri"])
	assert.Equal(t, "org.videolan.vlc", data["intent_package_name"])
}

func TestStopMediaPlayers(t *testing.T) {
	mock := ha.NewMockClient()
	p := NewHAPlayer(mock, config.PlaybackConfig{
		Mode:         config.PlaybackMediaPlayer,
		MediaPlayers: config.TargetList{"media_player.living_room", "media_player.bedroom"},
	}, zap.NewNop())

	require.NoError(t, p.Stop())

	calls := mock.CallsFor("media_player", "media_stop")
	require.Len(t, calls, 2)
	assert.Equal(t, "media_player.living_room", calls[0].Data["entity_id"])
}

func TestStopAndroidVLC(t *testing.T) {
	mock := ha.NewMockClient()
	p := NewHAPlayer(mock, config.PlaybackConfig{
		Mode:          config.PlaybackAndroidVLC,
		NotifyService: "mobile_app_tablet",
	}, zap.NewNop())

	require.NoError(t, p.Stop())

	calls := mock.CallsFor("notify", "mobile_app_tablet")
	require.Len(t, calls, 1)
	assert.Equal(t, "command_media", calls[0].Data["message"])
	data, ok := calls[0].Data["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "stop", data["media_command"])
}

func TestMediaBase(t *testing.T) {
	cases := []struct {
		name     string
		playback config.PlaybackConfig
		want     string
	}{
		{
			name: "media_player prefers internal",
			playback: config.PlaybackConfig{
				Mode:            config.PlaybackMediaPlayer,
				InternalBaseURL: "http://ha.local:8123/",
				ExternalBaseURL: "https://ha.example.com",
			},
			want: "http://ha.local:8123",
		},
		{
			name: "media_player falls back to external",
			playback: config.PlaybackConfig{
				Mode:            config.PlaybackMediaPlayer,
				ExternalBaseURL: "https://ha.example.com/",
			},
			want: "https://ha.example.com",
		},
		{
			name: "android prefers external",
			playback: config.PlaybackConfig{
				Mode:            config.PlaybackAndroidVLC,
				InternalBaseURL: "http://ha.local:8123",
				ExternalBaseURL: "https://ha.example.com",
			},
			want: "https://ha.example.com",
		},
		{
			name: "android falls back to internal",
			playback: config.PlaybackConfig{
				Mode:            config.PlaybackAndroidVLC,
				InternalBaseURL: "http://ha.local:8123",
			},
			want: "http://ha.local:8123",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewHAPlayer(ha.NewMockClient(), tc.playback, zap.NewNop())
			assert.Equal(t, tc.want, p.MediaBase())
		})
	}
}
