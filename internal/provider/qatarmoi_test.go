package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const moiTable = `<table class="prayer-table">
	<tr>
		<th><span>Fajer</span></th>
		<th>Sunrise</th>
		<th>Zuhr</th>
		<th>Asr</th>
		<th>Maghrib</th>
		<th>Isha</th>
	</tr>
	<tr>
		<td>05:12 AM</td>
		<td>06:31</td>
		<td>12:05</td>
		<td>3:30</td>
		<td>6:10</td>
		<td>7:45</td>
	</tr>
</table>`

func newTestQatarMOI(t *testing.T, handler http.HandlerFunc) *QatarMOI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewQatarMOI(zap.NewNop())
	c.BaseURL = srv.URL
	return c
}

func TestQatarMOIFetch(t *testing.T) {
	c := newTestQatarMOI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, moiTable)
	})

	result, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.True(t, result.TwelveHour)
	assert.Empty(t, result.Hijri)

	// Portal spellings are normalized to canonical names
	assert.Equal(t, "05:12 AM", result.Times["Fajr"])
	assert.Equal(t, "12:05", result.Times["Dhuhr"])
	assert.Equal(t, "7:45", result.Times["Isha"])
	assert.NotContains(t, result.Times, "Fajer")
	assert.NotContains(t, result.Times, "Zuhr")
}

func TestQatarMOIFetchServerError(t *testing.T) {
	c := newTestQatarMOI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Fetch(context.Background())
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "qatar_moi", upstream.Source)
}

func TestQatarMOIFetchNoTable(t *testing.T) {
	c := newTestQatarMOI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>Under maintenance</body></html>")
	})

	_, err := c.Fetch(context.Background())
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Contains(t, err.Error(), "no prayer times")
}

func TestParseTable(t *testing.T) {
	t.Run("case insensitive aliases", func(t *testing.T) {
		times := parseTable(`<th>FAJR</th><th>isha</th><td>05:12</td><td>7:45</td>`)
		assert.Equal(t, map[string]string{"Fajr": "05:12", "Isha": "7:45"}, times)
	})

	t.Run("unknown header passes through", func(t *testing.T) {
		times := parseTable(`<th>Date</th><th>Fajer</th><td>1 Ramadan</td><td>05:12</td>`)
		assert.Equal(t, "1 Ramadan", times["Date"])
		assert.Equal(t, "05:12", times["Fajr"])
	})

	t.Run("empty headers discarded before pairing", func(t *testing.T) {
		// The portal occasionally emits a decorative empty <th>; cells pair
		// against the surviving headers by position
		times := parseTable(`<th></th><th>Fajer</th><th>Zuhr</th><td>05:12</td><td>12:05</td>`)
		assert.Equal(t, map[string]string{"Fajr": "05:12", "Dhuhr": "12:05"}, times)
	})

	t.Run("header without cell skipped", func(t *testing.T) {
		times := parseTable(`<th>Fajer</th><th>Zuhr</th><td>05:12</td>`)
		assert.Equal(t, map[string]string{"Fajr": "05:12"}, times)
	})

	t.Run("nested markup stripped", func(t *testing.T) {
		times := parseTable(`<th><div><b>Maghrib</b></div></th><td><span>6:10</span></td>`)
		assert.Equal(t, map[string]string{"Maghrib": "6:10"}, times)
	})

	t.Run("no table yields empty map", func(t *testing.T) {
		assert.Empty(t, parseTable("<p>nothing here</p>"))
	})
}
