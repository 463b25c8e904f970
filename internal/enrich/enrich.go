// Package enrich runs batch enrichment over animal records that are missing
// sounds or locations. Subjects are processed sequentially with a politeness
// delay between provider lookups; per-subject failures are logged, counted
// and never abort the batch.
package enrich

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/naturetrace/naturetrace-go/internal/datastore"
	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/gateway"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
	"github.com/naturetrace/naturetrace-go/internal/speechfilter"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("enrich")
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Stats tallies one batch run.
type Stats struct {
	// Processed counts every subject attempted.
	Processed int
	// Updated counts subjects whose record was written.
	Updated int
	// NoData counts subjects every provider rejected.
	NoData int
	// Failed counts subjects lost to non-provider errors (persistence,
	// cancellation).
	Failed int
	// Sources counts updates per winning provider.
	Sources map[string]int
}

func newStats() *Stats {
	return &Stats{Sources: make(map[string]int)}
}

// SpeechFilter strips narration from a resolved recording. Implemented by
// speechfilter.Processor; nil disables filtering.
type SpeechFilter interface {
	Process(ctx context.Context, audioURL, subject string) (*speechfilter.Result, error)
}

// SoundEnricher fills in missing sound URLs.
type SoundEnricher struct {
	store  datastore.Interface
	chain  *SoundChain
	gw     *gateway.Gateway
	filter SpeechFilter
	delay  time.Duration
	// maxDuration caps acceptable clip length in provider queries.
	maxDuration time.Duration
}

// NewSoundEnricher creates a sound enricher. filter may be nil.
func NewSoundEnricher(store datastore.Interface, chain *SoundChain, gw *gateway.Gateway, filter SpeechFilter, delay, maxDuration time.Duration) *SoundEnricher {
	return &SoundEnricher{
		store:       store,
		chain:       chain,
		gw:          gw,
		filter:      filter,
		delay:       delay,
		maxDuration: maxDuration,
	}
}

// EnrichOne resolves and persists a sound for a single record. It returns
// the winning source tag.
func (e *SoundEnricher) EnrichOne(ctx context.Context, animal *datastore.Animal) (string, error) {
	q := queryFor(animal.Name, animal.Category, e.maxDuration)

	media, source, err := e.chain.For(q.Category).Resolve(ctx, q)
	if err != nil {
		return "", err
	}

	processed := false
	if e.filter != nil {
		res, ferr := e.filter.Process(ctx, media.URL, animal.Name)
		if ferr != nil {
			// Keep the unfiltered original; losing the recording is worse
			// than keeping the narration
			logger.Warn("speech filtering failed, keeping original",
				"subject", animal.Name,
				"error", ferr)
		} else {
			media.URL = res.Path
			processed = true
			logger.Info("speech filtered",
				"subject", animal.Name,
				"segments_dropped", res.SegmentsDropped,
				"output_duration", res.OutputDuration)
		}
	}

	if err := e.gw.WriteSound(animal.ID, media, processed); err != nil {
		return "", err
	}
	if processed {
		source += " (processed)"
	}
	return source, nil
}

// Run enriches every record missing a sound URL, up to limit (0 = all).
func (e *SoundEnricher) Run(ctx context.Context, limit int) (*Stats, error) {
	animals, err := e.store.AnimalsMissingSound(limit)
	if err != nil {
		return nil, err
	}
	return runBatch(ctx, animals, "sound", e.delay, func(ctx context.Context, a *datastore.Animal) (string, error) {
		return e.EnrichOne(ctx, a)
	})
}

// LocationEnricher fills in missing coordinates.
type LocationEnricher struct {
	store datastore.Interface
	res   *resolver.Resolver[resolver.Location]
	gw    *gateway.Gateway
	delay time.Duration
}

// NewLocationEnricher creates a location enricher.
func NewLocationEnricher(store datastore.Interface, res *resolver.Resolver[resolver.Location], gw *gateway.Gateway, delay time.Duration) *LocationEnricher {
	return &LocationEnricher{store: store, res: res, gw: gw, delay: delay}
}

// EnrichOne resolves and persists a location for a single record. It returns
// the winning source tag.
func (e *LocationEnricher) EnrichOne(ctx context.Context, animal *datastore.Animal) (string, error) {
	q := queryFor(animal.Name, animal.Category, 0)

	loc, source, err := e.res.Resolve(ctx, q)
	if err != nil {
		return "", err
	}
	if err := e.gw.WriteLocation(animal.ID, loc); err != nil {
		return "", err
	}
	return source, nil
}

// Run enriches every record missing coordinates, up to limit (0 = all).
func (e *LocationEnricher) Run(ctx context.Context, limit int) (*Stats, error) {
	animals, err := e.store.AnimalsMissingLocation(limit)
	if err != nil {
		return nil, err
	}
	return runBatch(ctx, animals, "location", e.delay, func(ctx context.Context, a *datastore.Animal) (string, error) {
		return e.EnrichOne(ctx, a)
	})
}

// runBatch drives one sequential enrichment pass. Provider exhaustion counts
// as no-data; anything else counts as failed. Context cancellation stops the
// batch and returns the stats gathered so far.
func runBatch(ctx context.Context, animals []datastore.Animal, kind string, delay time.Duration, one func(context.Context, *datastore.Animal) (string, error)) (*Stats, error) {
	stats := newStats()

	logger.Info("batch started", "kind", kind, "subjects", len(animals))

	for i := range animals {
		animal := &animals[i]

		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctxError(ctx, kind, stats)
			case <-time.After(delay):
			}
		}

		stats.Processed++
		source, err := one(ctx, animal)
		switch {
		case err == nil:
			stats.Updated++
			stats.Sources[source]++
			logger.Info("subject enriched",
				"kind", kind,
				"subject", animal.Name,
				"source", source)
		case isNoData(err):
			stats.NoData++
			logger.Info("no provider data",
				"kind", kind,
				"subject", animal.Name,
				"error", err)
		case errors.IsCategory(err, errors.CategoryCancellation):
			return stats, ctxError(ctx, kind, stats)
		default:
			stats.Failed++
			logger.Error("subject failed",
				"kind", kind,
				"subject", animal.Name,
				"error", err)
		}
	}

	logger.Info("batch finished",
		"kind", kind,
		"processed", stats.Processed,
		"updated", stats.Updated,
		"no_data", stats.NoData,
		"failed", stats.Failed)
	return stats, nil
}

// isNoData reports whether the error means every provider was tried and none
// had usable data.
func isNoData(err error) bool {
	var exhausted *resolver.ExhaustedError
	return errors.As(err, &exhausted)
}

func ctxError(ctx context.Context, kind string, stats *Stats) error {
	logger.Warn("batch interrupted",
		"kind", kind,
		"processed", stats.Processed,
		"error", ctx.Err())
	return errors.New(ctx.Err()).
		Component("enrich").
		Category(errors.CategoryCancellation).
		Build()
}
