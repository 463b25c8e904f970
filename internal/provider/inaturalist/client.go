// Package inaturalist queries the iNaturalist observations API for animal
// locations and sound attachments. Research grade observations carry a
// place guess plus geojson coordinates; observations with sounds carry
// directly playable file URLs.
package inaturalist

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

	"github.com/patrickmn/go-cache"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"github.com/naturetrace/naturetrace-go/internal/provider"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

// Package-level logger specific to the inaturalist service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "inaturalist.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "inaturalist", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize inaturalist file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "inaturalist")
		closeLogger = func() error { return nil }
	}
}

// Config holds the iNaturalist client configuration.
type Config struct {
	BaseURL  string
	PerPage  int
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "https://api.inaturalist.org/v1",
		PerPage:  5,
		Timeout:  15 * time.Second,
		CacheTTL: time.Hour,
	}
}

// Client provides methods for querying the iNaturalist observations API.
type Client struct {
	config Config
	http   *httpclient.Client
	cache  *cache.Cache
}

// NewClient creates a new iNaturalist API client.
func NewClient(config Config, hc *httpclient.Client) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.PerPage <= 0 {
		config.PerPage = DefaultConfig().PerPage
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if hc == nil {
		hc = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
	}

	logger.Info("iNaturalist client initialized",
		"base_url", config.BaseURL,
		"per_page", config.PerPage,
		"cache_ttl", config.CacheTTL)

	return &Client{
		config: config,
		http:   hc,
		cache:  cache.New(config.CacheTTL, config.CacheTTL*2),
	}
}

// Close releases client resources.
func (c *Client) Close() {
	c.http.Close()
	if closeLogger != nil {
		_ = closeLogger()
	}
}

// iconicTaxa maps our coarse categories onto iNaturalist iconic taxon names.
var iconicTaxa = map[resolver.Category]string{
	resolver.CategoryBird:      "Aves",
	resolver.CategoryMammal:    "Mammalia",
	resolver.CategoryReptile:   "Reptilia",
	resolver.CategoryAmphibian: "Amphibia",
	resolver.CategoryFish:      "Actinopterygii",
	resolver.CategoryInsect:    "Insecta",
}

// queryVariants returns the search terms tried in order: the raw name,
// a plus-joined form, a quoted form, and the name scoped to the iconic
// taxon when the category is known.
func queryVariants(q resolver.Query) []string {
	name := strings.TrimSpace(q.Subject)
	variants := []string{
		name,
		strings.ReplaceAll(name, " ", "+"),
		fmt.Sprintf("%q", name),
	}
	if taxon, ok := iconicTaxa[q.Category]; ok {
		variants = append(variants, name+" "+taxon)
	}
	return variants
}

// commonNameMatches accepts exact or substring matches, case-insensitively,
// in either direction ("Bobcat" matches "bobcat" and "Iberian Bobcat").
func commonNameMatches(subject, commonName string) bool {
	if commonName == "" {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(subject))
	c := strings.ToLower(strings.TrimSpace(commonName))
	return s == c || strings.Contains(c, s) || strings.Contains(s, c)
}

// SearchLocation finds a representative observation location for the subject.
func (c *Client) SearchLocation(ctx context.Context, q resolver.Query) (resolver.Location, error) {
	for _, variant := range queryVariants(q) {
		obs, err := c.fetchObservations(ctx, variant, false)
		if err != nil {
			// Provider level failures abort the variant loop; the next
			// adapter in the chain takes over
			return resolver.Location{}, err
		}

		for i := range obs {
			o := &obs[i]
			if !commonNameMatches(q.Subject, o.Taxon.PreferredCommonName) {
				continue
			}
			if o.Geojson == nil || len(o.Geojson.Coordinates) != 2 {
				continue
			}
			loc := resolver.Location{
				// geojson order is [longitude, latitude]
				Latitude:       o.Geojson.Coordinates[1],
				Longitude:      o.Geojson.Coordinates[0],
				LocationString: o.PlaceGuess,
				PlaceGuess:     placeGuessLabel(o.PlaceGuess),
				Source:         "inaturalist",
			}
			if !loc.Valid() {
				continue
			}
			logger.Debug("observation location matched",
				"subject", q.Subject,
				"variant", variant,
				"observation_id", o.ID,
				"place_guess", o.PlaceGuess)
			return loc, nil
		}
	}

	return resolver.Location{}, errors.Newf("no located observations for %q", q.Subject).
		Component("inaturalist").
		Category(errors.CategoryNotFound).
		Context("subject", q.Subject).
		Build()
}

// SearchSound finds a sound attachment from observations of the subject.
func (c *Client) SearchSound(ctx context.Context, q resolver.Query) (resolver.Media, error) {
	for _, variant := range queryVariants(q) {
		obs, err := c.fetchObservations(ctx, variant, true)
		if err != nil {
			return resolver.Media{}, err
		}

		for i := range obs {
			o := &obs[i]
			if !commonNameMatches(q.Subject, o.Taxon.PreferredCommonName) {
				continue
			}
			for _, s := range o.Sounds {
				if s.FileURL == "" {
					continue
				}
				logger.Debug("observation sound matched",
					"subject", q.Subject,
					"variant", variant,
					"observation_id", o.ID)
				return resolver.Media{
					URL:    s.FileURL,
					Source: "inaturalist",
					Metadata: map[string]any{
						"observation_id": o.ID,
						"license":        s.LicenseCode,
					},
				}, nil
			}
		}
	}

	return resolver.Media{}, errors.Newf("no sound attachments for %q", q.Subject).
		Component("inaturalist").
		Category(errors.CategoryNotFound).
		Context("subject", q.Subject).
		Build()
}

func placeGuessLabel(placeGuess string) string {
	if placeGuess == "" {
		return ""
	}
	return placeGuess + " (iNaturalist)"
}

// fetchObservations queries /observations for one search term, caching the
// decoded result per term.
func (c *Client) fetchObservations(ctx context.Context, term string, withSounds bool) ([]observation, error) {
	cacheKey := fmt.Sprintf("obs:%t:%s", withSounds, term)
	if cached, found := c.cache.Get(cacheKey); found {
		if obs, ok := cached.([]observation); ok {
			logger.Debug("observation cache hit", "cache_key", cacheKey, "results", len(obs))
			return obs, nil
		}
	}

	params := url.Values{}
	params.Set("taxon_name", term)
	params.Set("quality_grade", "research")
	params.Set("per_page", fmt.Sprintf("%d", c.config.PerPage))
	params.Set("order", "desc")
	params.Set("order_by", "created_at")
	if withSounds {
		params.Set("sounds", "true")
	} else {
		params.Set("has_photo", "true")
	}

	requestURL := fmt.Sprintf("%s/observations?%s", c.config.BaseURL, params.Encode())

	var response observationResponse
	if err := c.doRequest(ctx, requestURL, &response); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, response.Results, cache.DefaultExpiration)
	return response.Results, nil
}

func (c *Client) doRequest(ctx context.Context, requestURL string, result any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.Get(reqCtx, requestURL)
	if err != nil {
		logger.Error("iNaturalist API request failed", "url", requestURL, "error", err)
		return errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Component("inaturalist").
			NetworkContext(requestURL, c.config.Timeout).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Component("inaturalist").
			Context("url", requestURL).
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("iNaturalist API error response",
			"status_code", resp.StatusCode,
			"url", requestURL,
			"response_preview", provider.Preview(bodyBytes))
		return errors.Newf("iNaturalist API error (status %d)", resp.StatusCode).
			Category(provider.StatusCategory(resp.StatusCode)).
			Component("inaturalist").
			Context("status_code", resp.StatusCode).
			Context("url", requestURL).
			Build()
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		logger.Error("Failed to parse iNaturalist API response",
			"error", err,
			"url", requestURL,
			"response_preview", provider.Preview(bodyBytes))
		return errors.Newf("failed to parse iNaturalist response: %w", err).
			Category(errors.CategoryMalformed).
			Component("inaturalist").
			Context("url", requestURL).
			Build()
	}

	logger.Debug("iNaturalist API request completed",
		"url", requestURL,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
