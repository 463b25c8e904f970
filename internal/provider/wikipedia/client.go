// Package wikipedia mines habitat descriptions from Wikipedia page
// summaries. The extract is scanned for range phrases ("found in ...",
// "native to ...") and the mined region is geocoded into coordinates by
// the geocode client.
package wikipedia

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"github.com/naturetrace/naturetrace-go/internal/provider"
	"github.com/naturetrace/naturetrace-go/internal/provider/geocode"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "wikipedia.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "wikipedia", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize wikipedia file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "wikipedia")
		closeLogger = func() error { return nil }
	}
}

// Config holds the Wikipedia client configuration.
type Config struct {
	BaseURL string
	// RateLimit is requests per second, per Wikipedia's robot policy.
	RateLimit float64
	Timeout   time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://en.wikipedia.org/api/rest_v1",
		RateLimit: 2,
		Timeout:   15 * time.Second,
	}
}

// Client provides methods for fetching Wikipedia page summaries.
type Client struct {
	config  Config
	http    *httpclient.Client
	limiter *rate.Limiter
}

// NewClient creates a new Wikipedia REST API client.
func NewClient(config Config, hc *httpclient.Client) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.RateLimit <= 0 {
		config.RateLimit = DefaultConfig().RateLimit
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if hc == nil {
		hc = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
	}
	return &Client{
		config:  config,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Close releases client resources.
func (c *Client) Close() {
	c.http.Close()
	if closeLogger != nil {
		_ = closeLogger()
	}
}

// habitatPatterns are tried in order against the page extract. The capture
// runs to the end of the sentence and is trimmed at the first comma or
// semicolon.
var habitatPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)found in ([^.]+)`),
	regexp.MustCompile(`(?i)native to ([^.]+)`),
	regexp.MustCompile(`(?i)distributed in ([^.]+)`),
	regexp.MustCompile(`(?i)ranges from ([^.]+)`),
	regexp.MustCompile(`(?i)occurs in ([^.]+)`),
	regexp.MustCompile(`(?i)inhabits ([^.]+)`),
	regexp.MustCompile(`(?i)lives in ([^.]+)`),
}

// MineHabitat extracts the first range phrase from a page extract.
// Returns an empty string when nothing matches.
func MineHabitat(extract string) string {
	for _, re := range habitatPatterns {
		m := re.FindStringSubmatch(extract)
		if m == nil {
			continue
		}
		region := m[1]
		if idx := strings.IndexAny(region, ",;"); idx >= 0 {
			region = region[:idx]
		}
		return strings.TrimSpace(region)
	}
	return ""
}

// Summary fetches the page summary extract for a subject.
func (c *Client) Summary(ctx context.Context, subject string) (string, error) {
	reqID := uuid.New().String()[:8]

	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.New(err).
			Category(errors.CategoryCancellation).
			Component("wikipedia").
			Context("request_id", reqID).
			Build()
	}

	title := strings.ReplaceAll(strings.TrimSpace(subject), " ", "_")
	requestURL := fmt.Sprintf("%s/page/summary/%s", c.config.BaseURL, url.PathEscape(title))

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.Get(reqCtx, requestURL)
	if err != nil {
		logger.Error("Wikipedia API request failed",
			"request_id", reqID,
			"url", requestURL,
			"error", err)
		return "", errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Component("wikipedia").
			NetworkContext(requestURL, c.config.Timeout).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Component("wikipedia").
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Wikipedia API error response",
			"request_id", reqID,
			"status_code", resp.StatusCode,
			"url", requestURL)
		return "", errors.Newf("Wikipedia API error (status %d) for %q", resp.StatusCode, subject).
			Category(provider.StatusCategory(resp.StatusCode)).
			Component("wikipedia").
			Context("status_code", resp.StatusCode).
			Context("subject", subject).
			Build()
	}

	v, err := jason.NewObjectFromBytes(bodyBytes)
	if err != nil {
		logger.Error("Failed to parse Wikipedia response",
			"request_id", reqID,
			"error", err,
			"response_preview", provider.Preview(bodyBytes))
		return "", errors.Newf("failed to parse Wikipedia response: %w", err).
			Category(errors.CategoryMalformed).
			Component("wikipedia").
			Build()
	}

	extract, err := v.GetString("extract")
	if err != nil || extract == "" {
		return "", errors.Newf("no extract in Wikipedia summary for %q", subject).
			Category(errors.CategoryNotFound).
			Component("wikipedia").
			Context("subject", subject).
			Build()
	}

	logger.Debug("summary fetched",
		"request_id", reqID,
		"subject", subject,
		"extract_len", len(extract),
		"duration_ms", time.Since(start).Milliseconds())

	return extract, nil
}

// LocationAdapter resolves a location by mining the Wikipedia summary for a
// habitat region and geocoding it.
type LocationAdapter struct {
	Wiki *Client
	Geo  *geocode.Client
}

func (a *LocationAdapter) Name() string { return "wikipedia" }

func (a *LocationAdapter) Resolve(ctx context.Context, q resolver.Query) (resolver.Location, error) {
	extract, err := a.Wiki.Summary(ctx, q.Subject)
	if err != nil {
		return resolver.Location{}, err
	}

	region := MineHabitat(extract)
	if region == "" {
		return resolver.Location{}, errors.Newf("no habitat phrase in summary for %q", q.Subject).
			Category(errors.CategoryNotFound).
			Component("wikipedia").
			Context("subject", q.Subject).
			Build()
	}

	lat, lon, err := a.Geo.Geocode(ctx, region)
	if err != nil {
		return resolver.Location{}, err
	}

	loc := resolver.Location{
		Latitude:       lat,
		Longitude:      lon,
		LocationString: region,
		PlaceGuess:     region + " (Wikipedia)",
		Source:         "wikipedia",
	}
	if !loc.Valid() {
		return resolver.Location{}, errors.Newf("geocoder returned invalid coordinates for %q", region).
			Category(errors.CategoryMalformed).
			Component("wikipedia").
			Context("region", region).
			Build()
	}
	return loc, nil
}
