package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"minaret/internal/audio"
	"minaret/internal/clock"
	"minaret/internal/config"
	"minaret/internal/player"
	"minaret/internal/prayer"
	"minaret/internal/provider"
	"minaret/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu  sync.Mutex
	err error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context) (*provider.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Result{
		Times: map[string]string{
			"Fajr": "05:00", "Sunrise": "06:30", "Dhuhr": "12:00",
			"Asr": "15:30", "Maghrib": "18:10", "Isha": "19:45",
		},
	}, nil
}

type fakeSink struct {
	mu    sync.Mutex
	plays []prayer.Name
	err   error
}

func (f *fakeSink) Play(name prayer.Name, mediaURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.plays = append(f.plays, name)
	return nil
}

func (f *fakeSink) Stop() error { return nil }

func newTestServer(t *testing.T) (*Server, *fakeSource, *fakeSink) {
	t.Helper()

	clk := clock.NewMockClock(time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC))
	source := &fakeSource{}
	sink := &fakeSink{}
	status := player.NewStatusTracker(clk, zap.NewNop())

	dir := t.TempDir()
	src := filepath.Join(dir, "azan.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0o644))
	library := audio.NewLibrary(filepath.Join(dir, "www"), zap.NewNop())
	require.NoError(t, library.Install(audio.VariantFull, src))
	require.NoError(t, library.Install(audio.VariantShort, src))

	cfg := &config.Config{
		Provider: config.SourceAlAdhan,
		City:     "Doha",
		Country:  "Qatar",
		Playback: config.PlaybackConfig{
			Mode:         config.PlaybackMediaPlayer,
			MediaPlayers: config.TargetList{"media_player.hall"},
		},
		RefreshHours: 48,
	}

	sched := scheduler.New(source, sink, library, status, clk, cfg, "http://ha.local:8123", zap.NewNop())
	require.NoError(t, sched.Start(context.Background()))
	t.Cleanup(sched.Stop)

	return NewServer(sched, zap.NewNop(), 0), source, sink
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestScheduleEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap scheduler.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "2026-03-01", snap.Date)
	require.Len(t, snap.Prayers, 6)
	require.NotNil(t, snap.Next)
	assert.Equal(t, "Fajr", snap.Next.Name)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/schedule", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPlayEndpoint(t *testing.T) {
	srv, _, sink := newTestServer(t)

	// Empty body defaults to a test playback
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/play", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	sink.mu.Lock()
	require.Len(t, sink.plays, 1)
	assert.Equal(t, prayer.Name(scheduler.TestPrayer), sink.plays[0])
	sink.mu.Unlock()

	// A named prayer plays that prayer
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/play",
		strings.NewReader(`{"prayer":"Maghrib"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	sink.mu.Lock()
	require.Len(t, sink.plays, 2)
	assert.Equal(t, prayer.Maghrib, sink.plays[1])
	sink.mu.Unlock()
}

func TestPlayEndpointErrors(t *testing.T) {
	srv, _, sink := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/play",
		strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/play",
		strings.NewReader(`{"prayer":"Lunch"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	sink.mu.Lock()
	sink.err = errors.New("device offline")
	sink.mu.Unlock()
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/play", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStopEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stop", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	srv, source, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	source.mu.Lock()
	source.err = errors.New("portal down")
	source.mu.Unlock()

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
