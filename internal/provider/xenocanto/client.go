// Package xenocanto queries the xeno-canto recordings API. It is the most
// trusted sound source for birds: recordings are curated and the file field
// is a directly playable URL.
package xenocanto

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
	"strings"
	"time"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"github.com/naturetrace/naturetrace-go/internal/provider"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "xenocanto.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "xenocanto", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize xenocanto file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "xenocanto")
		closeLogger = func() error { return nil }
	}
}

// Config holds the xeno-canto client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://xeno-canto.org/api/2",
		Timeout: 15 * time.Second,
	}
}

// Client provides methods for querying the xeno-canto recordings API.
type Client struct {
	config Config
	http   *httpclient.Client
}

// NewClient creates a new xeno-canto API client.
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

// recordingsResponse is the envelope of the /recordings endpoint.
type recordingsResponse struct {
	NumRecordings string      `json:"numRecordings"`
	Recordings    []recording `json:"recordings"`
}

type recording struct {
	ID      string `json:"id"`
	English string `json:"en"`
	File    string `json:"file"`
	Length  string `json:"length"`
	Quality string `json:"q"`
	Type    string `json:"type"`
}

// SearchSound returns the first matching recording for the subject.
func (c *Client) SearchSound(ctx context.Context, q resolver.Query) (resolver.Media, error) {
	params := url.Values{}
	params.Set("query", strings.TrimSpace(q.Subject))
	requestURL := fmt.Sprintf("%s/recordings?%s", c.config.BaseURL, params.Encode())

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.Get(reqCtx, requestURL)
	if err != nil {
		logger.Error("xeno-canto API request failed", "url", requestURL, "error", err)
		return resolver.Media{}, errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Component("xenocanto").
			NetworkContext(requestURL, c.config.Timeout).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resolver.Media{}, errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Component("xenocanto").
			Context("url", requestURL).
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("xeno-canto API error response",
			"status_code", resp.StatusCode,
			"url", requestURL,
			"response_preview", provider.Preview(bodyBytes))
		return resolver.Media{}, errors.Newf("xeno-canto API error (status %d)", resp.StatusCode).
			Category(provider.StatusCategory(resp.StatusCode)).
			Component("xenocanto").
			Context("status_code", resp.StatusCode).
			Build()
	}

	var response recordingsResponse
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		logger.Error("Failed to parse xeno-canto response",
			"error", err,
			"response_preview", provider.Preview(bodyBytes))
		return resolver.Media{}, errors.Newf("failed to parse xeno-canto response: %w", err).
			Category(errors.CategoryMalformed).
			Component("xenocanto").
			Build()
	}

	for i := range response.Recordings {
		rec := &response.Recordings[i]
		if rec.File == "" {
			continue
		}
		if !nameMatches(q.Subject, rec.English) {
			continue
		}
		fileURL := rec.File
		// Older API versions return scheme-relative URLs
		if strings.HasPrefix(fileURL, "//") {
			fileURL = "https:" + fileURL
		}
		logger.Debug("recording matched",
			"subject", q.Subject,
			"recording_id", rec.ID,
			"quality", rec.Quality,
			"duration_ms", time.Since(start).Milliseconds())
		return resolver.Media{
			URL:    fileURL,
			Source: "xeno-canto",
			Metadata: map[string]any{
				"recording_id": rec.ID,
				"quality":      rec.Quality,
				"length":       rec.Length,
				"type":         rec.Type,
			},
		}, nil
	}

	return resolver.Media{}, errors.Newf("no recordings for %q", q.Subject).
		Component("xenocanto").
		Category(errors.CategoryNotFound).
		Context("subject", q.Subject).
		Build()
}

// nameMatches accepts case-insensitive substring matches in either direction.
func nameMatches(subject, english string) bool {
	if english == "" {
		// Recordings without a common name still match; the query already
		// filtered by name
		return true
	}
	s := strings.ToLower(strings.TrimSpace(subject))
	e := strings.ToLower(strings.TrimSpace(english))
	return s == e || strings.Contains(e, s) || strings.Contains(s, e)
}

// Adapter exposes the client as a sound resolver adapter.
type Adapter struct {
	Client *Client
}

func (a *Adapter) Name() string { return "xeno-canto" }

func (a *Adapter) Resolve(ctx context.Context, q resolver.Query) (resolver.Media, error) {
	return a.Client.SearchSound(ctx, q)
}
