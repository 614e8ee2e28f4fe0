package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultAlAdhanBaseURL = "https://api.aladhan.com/v1"

// AlAdhan fetches prayer times from the Al Adhan API by city and country.
type AlAdhan struct {
	httpClient *http.Client
	logger     *zap.Logger

	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string

	city    string
	country string
	method  int
}

// NewAlAdhan creates an Al Adhan provider for the given location and
// calculation method.
func NewAlAdhan(city, country string, method int, logger *zap.Logger) *AlAdhan {
	return &AlAdhan{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("aladhan"),
		BaseURL:    defaultAlAdhanBaseURL,
		city:       city,
		country:    country,
		method:     method,
	}
}

// Name identifies the source
func (c *AlAdhan) Name() string {
	return "aladhan"
}

// alAdhanResponse is the subset of the Al Adhan response minaret consumes.
type alAdhanResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings map[string]string `json:"timings"`
		Date    struct {
			Hijri alAdhanHijri `json:"hijri"`
		} `json:"date"`
	} `json:"data"`
}

type alAdhanHijri struct {
	Day   string `json:"day"`
	Month struct {
		En string `json:"en"`
	} `json:"month"`
	Year        string `json:"year"`
	Designation struct {
		Abbreviated string `json:"abbreviated"`
	} `json:"designation"`
}

// format renders the Hijri date as "DD MonthName YYYY AH".
func (h alAdhanHijri) format() string {
	if h.Day == "" || h.Month.En == "" || h.Year == "" {
		return ""
	}
	abbr := h.Designation.Abbreviated
	if abbr == "" {
		abbr = "AH"
	}
	return h.Day + " " + h.Month.En + " " + h.Year + " " + abbr
}

// requiredTimings are the six keys a usable response must carry.
var requiredTimings = []string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

// Fetch retrieves today's prayer times for the configured city.
func (c *AlAdhan) Fetch(ctx context.Context) (*Result, error) {
	params := url.Values{}
	params.Set("city", c.city)
	params.Set("country", c.country)
	params.Set("method", fmt.Sprintf("%d", c.method))

	reqURL := fmt.Sprintf("%s/timingsByCity?%s", c.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &UpstreamError{Source: c.Name(), Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	c.logger.Debug("Fetching prayer times",
		zap.String("city", c.city),
		zap.String("country", c.country),
		zap.Int("method", c.method))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Source: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Source: c.Name(),
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var body alAdhanResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &UpstreamError{
			Source: c.Name(),
			Err:    fmt.Errorf("failed to decode response: %w", err),
		}
	}

	times := make(map[string]string, len(requiredTimings))
	for _, key := range requiredTimings {
		value, ok := body.Data.Timings[key]
		if !ok || value == "" {
			return nil, &UpstreamError{
				Source: c.Name(),
				Err:    fmt.Errorf("response missing timing %q", key),
			}
		}
		times[key] = value
	}

	return &Result{
		Times: times,
		Hijri: body.Data.Date.Hijri.format(),
	}, nil
}
