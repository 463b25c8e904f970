// Package gateway is the single writer of enrichment results. Resolvers hand
// it normalized media and location values; it validates them and persists
// them through the datastore.
package gateway

import (
	"io"
	"log/slog"
	"time"

	"github.com/naturetrace/naturetrace-go/internal/datastore"
	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("gateway")
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// processedSuffix marks sound sources whose audio went through speech
// filtering.
const processedSuffix = " (processed)"

// Gateway persists resolved enrichment results.
type Gateway struct {
	store datastore.Interface
	now   func() time.Time
}

// New creates a gateway over the given store.
func New(store datastore.Interface) *Gateway {
	return &Gateway{store: store, now: time.Now}
}

// WriteSound persists a resolved sound for one record. processed marks the
// URL as speech-filtered, which is reflected in the stored source tag.
func (g *Gateway) WriteSound(id uint, media resolver.Media, processed bool) error {
	if media.URL == "" {
		return errors.Newf("sound URL must not be empty").
			Component("gateway").
			Category(errors.CategoryValidation).
			Context("animal_id", id).
			Build()
	}

	source := media.Source
	if processed {
		source += processedSuffix
	}

	if err := g.store.UpdateSound(id, media.URL, source, g.now()); err != nil {
		return err
	}

	logger.Info("sound persisted",
		"animal_id", id,
		"source", source,
		"processed", processed)
	return nil
}

// WriteLocation persists a resolved location for one record. The coordinate
// pair is validated before the write so a record never ends up with one
// coordinate and not the other.
func (g *Gateway) WriteLocation(id uint, loc resolver.Location) error {
	if !loc.Valid() {
		return errors.Newf("invalid coordinates (%f, %f)", loc.Latitude, loc.Longitude).
			Component("gateway").
			Category(errors.CategoryValidation).
			Context("animal_id", id).
			Build()
	}

	if err := g.store.UpdateLocation(id, loc.Latitude, loc.Longitude, loc.LocationString, loc.PlaceGuess); err != nil {
		return err
	}

	logger.Info("location persisted",
		"animal_id", id,
		"source", loc.Source,
		"place_guess", loc.PlaceGuess)
	return nil
}

// EnsureSchema adds the optional enrichment columns when the backing table
// predates them. Failures from already existing columns are ignored by the
// store.
func (g *Gateway) EnsureSchema() error {
	return g.store.EnsureSoundColumns()
}
