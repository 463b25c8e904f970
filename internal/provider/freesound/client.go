// Package freesound queries the FreeSound text search API, ranks the
// results through soundscore and resolves the winner's download URL.
// Downloads normally answer with a 302 redirect; the Location header is
// captured instead of followed so the redirect target can be stored.
package freesound

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
	"time"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"github.com/naturetrace/naturetrace-go/internal/provider"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
	"github.com/naturetrace/naturetrace-go/internal/soundscore"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "freesound.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "freesound", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize freesound file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "freesound")
		closeLogger = func() error { return nil }
	}
}

// Config holds the FreeSound client configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	PageSize    int
	MaxDuration int // seconds
	Timeout     time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://freesound.org/apiv2",
		PageSize:    20,
		MaxDuration: 30,
		Timeout:     15 * time.Second,
	}
}

// Client provides methods for querying the FreeSound API.
type Client struct {
	config Config
	http   *httpclient.Client
}

// NewClient creates a new FreeSound API client. The API key is mandatory.
func NewClient(config Config, hc *httpclient.Client) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("FreeSound API key is required").
			Category(errors.CategoryConfiguration).
			Component("freesound").
			Build()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultConfig().PageSize
	}
	if config.MaxDuration <= 0 {
		config.MaxDuration = DefaultConfig().MaxDuration
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if hc == nil {
		hc = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
	}
	// Redirects are captured, not followed, so the 302 Location of a
	// download endpoint can be stored directly. Derived here so an injected
	// shared client cannot reintroduce redirect following.
	hc = hc.WithCheckRedirect(func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	})

	logger.Info("FreeSound client initialized",
		"base_url", config.BaseURL,
		"page_size", config.PageSize,
		"max_duration", config.MaxDuration)

	return &Client{config: config, http: hc}, nil
}

// Close releases client resources.
func (c *Client) Close() {
	c.http.Close()
	if closeLogger != nil {
		_ = closeLogger()
	}
}

// searchResponse is the envelope of /search/text/.
type searchResponse struct {
	Count   int           `json:"count"`
	Results []soundResult `json:"results"`
}

type soundResult struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Duration    float64  `json:"duration"`
	AvgRating   float64  `json:"avg_rating"`
	Previews    previews `json:"previews"`
}

type previews struct {
	HQMP3 string `json:"preview-hq-mp3"`
	LQMP3 string `json:"preview-lq-mp3"`
}

// SearchSound queries FreeSound, scores the results and resolves the best
// candidate's download URL.
func (c *Client) SearchSound(ctx context.Context, q resolver.Query) (resolver.Media, error) {
	results, err := c.search(ctx, q)
	if err != nil {
		return resolver.Media{}, err
	}

	candidates := make([]soundscore.Candidate, 0, len(results))
	previewsByRef := make(map[string]previews, len(results))
	for i := range results {
		r := &results[i]
		ref := fmt.Sprintf("%d", r.ID)
		candidates = append(candidates, soundscore.Candidate{
			Ref:         ref,
			Title:       r.Name,
			Description: r.Description,
			Duration:    r.Duration,
			Rating:      r.AvgRating,
			PreviewURL:  r.Previews.HQMP3,
		})
		previewsByRef[ref] = r.Previews
	}

	best, score, err := soundscore.Best(q.Subject, candidates)
	if err != nil {
		return resolver.Media{}, err
	}

	downloadURL := c.resolveDownloadURL(ctx, best.Ref, previewsByRef[best.Ref])
	if downloadURL == "" {
		return resolver.Media{}, errors.Newf("no playable URL for sound %s", best.Ref).
			Component("freesound").
			Category(errors.CategoryNotFound).
			Context("sound_id", best.Ref).
			Build()
	}

	logger.Debug("best candidate selected",
		"subject", q.Subject,
		"sound_id", best.Ref,
		"score", score,
		"duration", best.Duration)

	return resolver.Media{
		URL:    downloadURL,
		Source: "freesound",
		Metadata: map[string]any{
			"sound_id": best.Ref,
			"score":    score,
			"duration": best.Duration,
			"rating":   best.Rating,
		},
	}, nil
}

// search runs the text search with the animal-sound query shape.
func (c *Client) search(ctx context.Context, q resolver.Query) ([]soundResult, error) {
	maxDur := c.config.MaxDuration
	if q.MaxDuration > 0 {
		maxDur = int(q.MaxDuration.Seconds())
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("%q animal sound call", q.Subject))
	params.Set("filter", fmt.Sprintf("duration:[0 TO %d] type:(wav OR mp3)", maxDur))
	params.Set("sort", "rating_desc")
	params.Set("page_size", fmt.Sprintf("%d", c.config.PageSize))
	params.Set("fields", "id,name,description,duration,avg_rating,previews")

	requestURL := fmt.Sprintf("%s/search/text/?%s", c.config.BaseURL, params.Encode())

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, errors.Newf("failed to create request: %w", err).
			Category(errors.CategoryNetwork).
			Component("freesound").
			Build()
	}
	req.Header.Set("Authorization", "Token "+c.config.APIKey)

	resp, err := c.http.Do(reqCtx, req)
	if err != nil {
		logger.Error("FreeSound API request failed", "url", requestURL, "error", err)
		return nil, errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Component("freesound").
			NetworkContext(requestURL, c.config.Timeout).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Component("freesound").
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("FreeSound API error response",
			"status_code", resp.StatusCode,
			"url", requestURL,
			"response_preview", provider.Preview(bodyBytes))
		return nil, errors.Newf("FreeSound API error (status %d)", resp.StatusCode).
			Category(provider.StatusCategory(resp.StatusCode)).
			Component("freesound").
			Context("status_code", resp.StatusCode).
			Build()
	}

	var response searchResponse
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		logger.Error("Failed to parse FreeSound response",
			"error", err,
			"response_preview", provider.Preview(bodyBytes))
		return nil, errors.Newf("failed to parse FreeSound response: %w", err).
			Category(errors.CategoryMalformed).
			Component("freesound").
			Build()
	}

	if len(response.Results) == 0 {
		return nil, errors.Newf("no FreeSound results for %q", q.Subject).
			Component("freesound").
			Category(errors.CategoryNotFound).
			Context("subject", q.Subject).
			Build()
	}

	return response.Results, nil
}

// resolveDownloadURL asks the download endpoint for its redirect target and
// falls back to the preview URLs when the download is not accessible
// (OAuth-only downloads answer 401 for token auth).
func (c *Client) resolveDownloadURL(ctx context.Context, soundID string, p previews) string {
	requestURL := fmt.Sprintf("%s/sounds/%s/download/", c.config.BaseURL, soundID)

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, http.NoBody)
	if err == nil {
		req.Header.Set("Authorization", "Token "+c.config.APIKey)
		resp, doErr := c.http.Do(reqCtx, req)
		if doErr == nil {
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusMovedPermanently {
				if loc := resp.Header.Get("Location"); loc != "" {
					return loc
				}
			}
			logger.Debug("download endpoint gave no redirect, using preview",
				"sound_id", soundID,
				"status_code", resp.StatusCode)
		}
	}

	if p.HQMP3 != "" {
		return p.HQMP3
	}
	return p.LQMP3
}

// Adapter exposes the client as a sound resolver adapter.
type Adapter struct {
	Client *Client
}

func (a *Adapter) Name() string { return "freesound" }

func (a *Adapter) Resolve(ctx context.Context, q resolver.Query) (resolver.Media, error) {
	return a.Client.SearchSound(ctx, q)
}
