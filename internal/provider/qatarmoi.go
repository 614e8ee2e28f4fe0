package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultQatarMOIBaseURL = "https://portal.moi.gov.qa/MoiPortalRestServices/rest/prayertimings/today/en"

// QatarMOI fetches prayer times from the Qatar Ministry of Interior portal,
// which serves an HTML table fragment in 12-hour format.
type QatarMOI struct {
	httpClient *http.Client
	logger     *zap.Logger

	// BaseURL is the portal endpoint. Exported for testing with httptest.
	BaseURL string
}

// NewQatarMOI creates a Qatar MOI provider.
func NewQatarMOI(logger *zap.Logger) *QatarMOI {
	return &QatarMOI{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("qatarmoi"),
		BaseURL:    defaultQatarMOIBaseURL,
	}
}

// Name identifies the source
func (c *QatarMOI) Name() string {
	return "qatar_moi"
}

var (
	thPattern  = regexp.MustCompile(`(?s)<th[^>]*>(.*?)</th>`)
	tdPattern  = regexp.MustCompile(`(?s)<td[^>]*>(.*?)</td>`)
	tagPattern = regexp.MustCompile(`<[^>]+>`)
)

// headerAliases normalizes the portal's header spellings to canonical prayer
// names, case-insensitively. Unrecognized headers pass through unchanged and
// get dropped during schedule construction.
var headerAliases = map[string]string{
	"fajer":   "Fajr",
	"fajr":    "Fajr",
	"sunrise": "Sunrise",
	"dhuhr":   "Dhuhr",
	"zuhr":    "Dhuhr",
	"asr":     "Asr",
	"maghrib": "Maghrib",
	"isha":    "Isha",
}

// Fetch retrieves today's prayer times from the portal. The table is parsed
// positionally: header i pairs with cell i. The portal has never published a
// table where these diverge, so the pairing is kept source-faithful; a header
// without a matching cell index is simply skipped.
func (c *QatarMOI) Fetch(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return nil, &UpstreamError{Source: c.Name(), Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	c.logger.Debug("Fetching prayer times from portal")

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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Source: c.Name(), Err: err}
	}

	times := parseTable(string(body))
	if len(times) == 0 {
		return nil, &UpstreamError{
			Source: c.Name(),
			Err:    fmt.Errorf("no prayer times found in response"),
		}
	}

	return &Result{
		Times:      times,
		TwelveHour: true,
	}, nil
}

// parseTable extracts header/cell pairs from the HTML fragment. Headers are
// tag-stripped and trimmed; empty headers are discarded before pairing, which
// matches how the portal nests markup inside <th> elements.
func parseTable(html string) map[string]string {
	var headers []string
	for _, m := range thPattern.FindAllStringSubmatch(html, -1) {
		text := strings.TrimSpace(tagPattern.ReplaceAllString(m[1], ""))
		if text != "" {
			headers = append(headers, text)
		}
	}

	var cells []string
	for _, m := range tdPattern.FindAllStringSubmatch(html, -1) {
		cells = append(cells, strings.TrimSpace(tagPattern.ReplaceAllString(m[1], "")))
	}

	times := make(map[string]string)
	for i, header := range headers {
		if i >= len(cells) {
			break
		}
		name := header
		if alias, ok := headerAliases[strings.ToLower(header)]; ok {
			name = alias
		}
		times[name] = cells[i]
	}

	return times
}
