// Package resolver implements ordered provider fallback: adapters are tried
// in trust order and the first success wins. Failures are collected per
// adapter so an exhausted run can report why every provider was rejected.
package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/logging"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("resolver")
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Category is a coarse taxonomic hint used to bias provider queries.
type Category string

const (
	CategoryBird      Category = "bird"
	CategoryMammal    Category = "mammal"
	CategoryReptile   Category = "reptile"
	CategoryAmphibian Category = "amphibian"
	CategoryFish      Category = "fish"
	CategoryInsect    Category = "insect"
	CategoryUnknown   Category = "unknown"
)

// ParseCategory normalizes a free-form category string.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bird", "birds", "aves":
		return CategoryBird
	case "mammal", "mammals", "mammalia":
		return CategoryMammal
	case "reptile", "reptiles", "reptilia":
		return CategoryReptile
	case "amphibian", "amphibians", "amphibia":
		return CategoryAmphibian
	case "fish", "fishes", "actinopterygii":
		return CategoryFish
	case "insect", "insects", "insecta":
		return CategoryInsect
	default:
		return CategoryUnknown
	}
}

// mammalKeywords trigger mammal categorization when the record itself
// carries no usable category.
var mammalKeywords = []string{
	"bear", "wolf", "lion", "tiger", "elephant", "whale", "dolphin",
	"cat", "dog", "horse", "bobcat", "lynx", "fox", "deer", "elk",
}

// GuessCategory falls back to name keywords when the stored category is
// empty or unknown.
func GuessCategory(name, stored string) Category {
	if c := ParseCategory(stored); c != CategoryUnknown {
		return c
	}
	lower := strings.ToLower(name)
	for _, kw := range mammalKeywords {
		if strings.Contains(lower, kw) {
			return CategoryMammal
		}
	}
	return CategoryUnknown
}

// Query describes one resolution request.
type Query struct {
	// Subject is the animal's common name.
	Subject string
	// Category biases provider queries when known.
	Category Category
	// MaxDuration caps acceptable clip length for sound lookups.
	MaxDuration time.Duration
}

// Adapter resolves a query against one provider. Implementations return
// categorized errors (not-found, rate-limited, malformed-response, network)
// so the resolver can aggregate failure reasons.
type Adapter[T any] interface {
	Name() string
	Resolve(ctx context.Context, q Query) (T, error)
}

// Attempt records one failed adapter call.
type Attempt struct {
	Adapter string
	Reason  errors.ErrorCategory
	Err     error
}

// ExhaustedError reports that every adapter in the chain failed.
type ExhaustedError struct {
	Subject  string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "all providers exhausted for %q:", e.Subject)
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, " %s=%s", a.Adapter, a.Reason)
	}
	return sb.String()
}

// Unwrap exposes the individual attempt errors for errors.Is/As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Resolver tries adapters in order until one succeeds.
type Resolver[T any] struct {
	adapters []Adapter[T]
	log      *slog.Logger
}

// New creates a resolver over the given adapter chain. The order of the
// slice is the trust order.
func New[T any](adapters ...Adapter[T]) (*Resolver[T], error) {
	if len(adapters) == 0 {
		return nil, errors.Newf("resolver requires at least one adapter").
			Component("resolver").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &Resolver[T]{adapters: adapters, log: logger}, nil
}

// Adapters returns the adapter names in trust order.
func (r *Resolver[T]) Adapters() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// Resolve tries each adapter in order and returns the first successful
// result together with the winning adapter's name. When every adapter
// fails the returned error is an *ExhaustedError; context cancellation
// stops the chain immediately.
func (r *Resolver[T]) Resolve(ctx context.Context, q Query) (T, string, error) {
	var zero T

	if strings.TrimSpace(q.Subject) == "" {
		return zero, "", errors.Newf("empty subject").
			Component("resolver").
			Category(errors.CategoryValidation).
			Build()
	}

	requestID := uuid.New().String()[:8]
	attempts := make([]Attempt, 0, len(r.adapters))

	for _, adapter := range r.adapters {
		if err := ctx.Err(); err != nil {
			return zero, "", errors.New(err).
				Component("resolver").
				Category(errors.CategoryCancellation).
				Context("request_id", requestID).
				Build()
		}

		start := time.Now()
		result, err := adapter.Resolve(ctx, q)
		if err == nil {
			r.log.Info("resolved",
				"request_id", requestID,
				"subject", q.Subject,
				"adapter", adapter.Name(),
				"attempts", len(attempts)+1,
				"duration_ms", time.Since(start).Milliseconds())
			return result, adapter.Name(), nil
		}

		reason := errors.CategoryOf(err)
		attempts = append(attempts, Attempt{Adapter: adapter.Name(), Reason: reason, Err: err})
		r.log.Debug("adapter failed",
			"request_id", requestID,
			"subject", q.Subject,
			"adapter", adapter.Name(),
			"reason", string(reason),
			"error", err)
	}

	r.log.Warn("all adapters exhausted",
		"request_id", requestID,
		"subject", q.Subject,
		"attempts", len(attempts))
	return zero, "", &ExhaustedError{Subject: q.Subject, Attempts: attempts}
}
