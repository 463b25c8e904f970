// Package geocode resolves free-form place descriptions into coordinates
// through the Nominatim search API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"github.com/naturetrace/naturetrace-go/internal/provider"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "geocode.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "geocode", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize geocode file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "geocode")
		closeLogger = func() error { return nil }
	}
}

// Config holds the Nominatim client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://nominatim.openstreetmap.org",
		Timeout: 15 * time.Second,
	}
}

// Client provides geocoding through Nominatim.
type Client struct {
	config Config
	http   *httpclient.Client
}

// NewClient creates a new Nominatim client.
func NewClient(config Config, hc *httpclient.Client) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if hc == nil {
		hc = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
	}
	return &Client{config: config, http: hc}
}

// Close releases client resources.
func (c *Client) Close() {
	c.http.Close()
	if closeLogger != nil {
		_ = closeLogger()
	}
}

// searchResult is one entry of the Nominatim search response. Coordinates
// arrive as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a place description to its first match's coordinates.
func (c *Client) Geocode(ctx context.Context, place string) (lat, lon float64, err error) {
	params := url.Values{}
	params.Set("q", place)
	params.Set("format", "json")
	params.Set("limit", "1")

	requestURL := fmt.Sprintf("%s/search?%s", c.config.BaseURL, params.Encode())

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.http.Get(reqCtx, requestURL)
	if err != nil {
		logger.Error("Nominatim request failed", "url", requestURL, "error", err)
		return 0, 0, errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Component("geocode").
			NetworkContext(requestURL, c.config.Timeout).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Component("geocode").
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Nominatim error response",
			"status_code", resp.StatusCode,
			"response_preview", provider.Preview(bodyBytes))
		return 0, 0, errors.Newf("Nominatim error (status %d)", resp.StatusCode).
			Category(provider.StatusCategory(resp.StatusCode)).
			Component("geocode").
			Context("status_code", resp.StatusCode).
			Build()
	}

	var results []searchResult
	if err := json.Unmarshal(bodyBytes, &results); err != nil {
		logger.Error("Failed to parse Nominatim response",
			"error", err,
			"response_preview", provider.Preview(bodyBytes))
		return 0, 0, errors.Newf("failed to parse Nominatim response: %w", err).
			Category(errors.CategoryMalformed).
			Component("geocode").
			Build()
	}

	if len(results) == 0 {
		return 0, 0, errors.Newf("no geocoding match for %q", place).
			Category(errors.CategoryNotFound).
			Component("geocode").
			Context("place", place).
			Build()
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, errors.Newf("unparseable coordinates %q/%q for %q", results[0].Lat, results[0].Lon, place).
			Category(errors.CategoryMalformed).
			Component("geocode").
			Context("place", place).
			Build()
	}

	logger.Debug("geocoded place",
		"place", place,
		"lat", lat,
		"lon", lon,
		"display_name", results[0].DisplayName)

	return lat, lon, nil
}
