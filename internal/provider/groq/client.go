// Package groq asks a Groq-hosted LLM for an animal's typical habitat as a
// last-resort location source. The model must answer with strict JSON; any
// deviation is treated as a malformed response and an explicit unknown as
// not-found. Responses are never retried.
package groq

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "groq.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "groq", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize groq file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "groq")
		closeLogger = func() error { return nil }
	}
}

// Config holds the Groq client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the transport, used by tests.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "llama3-8b-8192",
		Timeout: 30 * time.Second,
	}
}

const (
	// Near-deterministic output for a factual lookup.
	promptTemperature = 0.1
	promptMaxTokens   = 200
)

// Client asks the chat completion endpoint for typical habitats.
type Client struct {
	config Config
	api    *openai.Client
}

// NewClient creates a new Groq client. The API key is mandatory.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("Groq API key is required").
			Category(errors.CategoryConfiguration).
			Component("groq").
			Build()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	apiConfig := openai.DefaultConfig(config.APIKey)
	apiConfig.BaseURL = config.BaseURL
	if config.HTTPClient != nil {
		apiConfig.HTTPClient = config.HTTPClient
	}

	logger.Info("Groq client initialized", "base_url", config.BaseURL, "model", config.Model)

	return &Client{
		config: config,
		api:    openai.NewClientWithConfig(apiConfig),
	}, nil
}

// Close releases client resources.
func (c *Client) Close() {
	if closeLogger != nil {
		_ = closeLogger()
	}
}

// habitatAnswer is the JSON shape the prompt demands from the model.
type habitatAnswer struct {
	Region      string `json:"region"`
	Country     string `json:"country"`
	Continent   string `json:"continent"`
	Coordinates struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"coordinates"`
	Error string `json:"error"`
}

const systemPrompt = `You are a wildlife habitat reference. Answer with strict JSON only, no prose.
For a known animal answer {"region": "...", "country": "...", "continent": "...", "coordinates": {"lat": 0.0, "lng": 0.0}}
with the centroid of its typical habitat. If you do not know the animal answer {"error": "unknown"}.`

// TypicalHabitat asks the model for the subject's typical habitat.
func (c *Client) TypicalHabitat(ctx context.Context, q resolver.Query) (resolver.Location, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: promptTemperature,
		MaxTokens:   promptMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Typical habitat of: " + q.Subject},
		},
	})
	if err != nil {
		logger.Error("Groq chat completion failed", "subject", q.Subject, "error", err)
		return resolver.Location{}, errors.Newf("chat completion failed: %w", err).
			Category(errors.CategoryNetwork).
			Component("groq").
			Context("subject", q.Subject).
			Build()
	}

	if len(resp.Choices) == 0 {
		return resolver.Location{}, errors.Newf("empty completion for %q", q.Subject).
			Category(errors.CategoryMalformed).
			Component("groq").
			Build()
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	var answer habitatAnswer
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		logger.Warn("Groq answer is not valid JSON",
			"subject", q.Subject,
			"content", content)
		return resolver.Location{}, errors.Newf("model answer is not valid JSON: %w", err).
			Category(errors.CategoryMalformed).
			Component("groq").
			Context("subject", q.Subject).
			Build()
	}

	if answer.Error != "" {
		return resolver.Location{}, errors.Newf("model does not know %q", q.Subject).
			Category(errors.CategoryNotFound).
			Component("groq").
			Context("subject", q.Subject).
			Build()
	}

	loc := resolver.Location{
		Latitude:       answer.Coordinates.Lat,
		Longitude:      answer.Coordinates.Lng,
		LocationString: habitatLabel(answer),
		PlaceGuess:     habitatLabel(answer) + " (AI typical habitat)",
		Source:         "groq",
	}
	if !loc.Valid() {
		return resolver.Location{}, errors.Newf("model returned invalid coordinates for %q", q.Subject).
			Category(errors.CategoryMalformed).
			Component("groq").
			Context("lat", answer.Coordinates.Lat).
			Context("lng", answer.Coordinates.Lng).
			Build()
	}

	logger.Debug("typical habitat resolved",
		"subject", q.Subject,
		"region", answer.Region,
		"duration_ms", time.Since(start).Milliseconds())

	return loc, nil
}

// habitatLabel joins the non-empty location parts into a readable string.
func habitatLabel(a habitatAnswer) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Region, a.Country, a.Continent} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// Adapter exposes the client as a location resolver adapter.
type Adapter struct {
	Client *Client
}

func (a *Adapter) Name() string { return "groq" }

func (a *Adapter) Resolve(ctx context.Context, q resolver.Query) (resolver.Location, error) {
	return a.Client.TypicalHabitat(ctx, q)
}
