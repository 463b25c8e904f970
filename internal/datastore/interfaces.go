// Package datastore handles database operations for animal records and
// their sound/location enrichment columns.
package datastore

import (
	"io"
	"log/slog"
	"time"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/logging"
	"gorm.io/gorm"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("datastore")
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Interface defines the operations the enrichment pipeline needs from
// a database backend.
type Interface interface {
	Open() error
	Close() error
	Save(animal *Animal) error
	Get(id uint) (*Animal, error)
	GetByName(name string) (*Animal, error)
	AnimalsMissingSound(limit int) ([]Animal, error)
	AnimalsMissingLocation(limit int) ([]Animal, error)
	UpdateSound(id uint, soundURL, soundSource string, updated time.Time) error
	UpdateLocation(id uint, latitude, longitude float64, locationString, placeGuess string) error
	EnsureSoundColumns() error
	SoundCoverage() (*Coverage, error)
}

// DataStore implements Interface using a GORM database handle. The concrete
// stores embed it and provide Open/Close.
type DataStore struct {
	DB *gorm.DB
}

// Save inserts or updates an animal record.
func (ds *DataStore) Save(animal *Animal) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	if err := ds.DB.Save(animal).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save").
			Build()
	}
	return nil
}

// Get retrieves an animal by primary key.
func (ds *DataStore) Get(id uint) (*Animal, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	var animal Animal
	if err := ds.DB.First(&animal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("animal %d not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, dbError(err, "get")
	}
	return &animal, nil
}

// GetByName retrieves the first animal whose name matches, case-insensitively.
func (ds *DataStore) GetByName(name string) (*Animal, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	var animal Animal
	if err := ds.DB.Where("LOWER(name) = LOWER(?)", name).First(&animal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("animal %q not found", name).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, dbError(err, "get_by_name")
	}
	return &animal, nil
}

// AnimalsMissingSound returns records without a sound URL, oldest first.
// limit <= 0 means no limit.
func (ds *DataStore) AnimalsMissingSound(limit int) ([]Animal, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	var animals []Animal
	q := ds.DB.Where("sound_url IS NULL OR sound_url = ''").Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&animals).Error; err != nil {
		return nil, dbError(err, "missing_sound")
	}
	return animals, nil
}

// AnimalsMissingLocation returns records without coordinates, oldest first.
// limit <= 0 means no limit.
func (ds *DataStore) AnimalsMissingLocation(limit int) ([]Animal, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	var animals []Animal
	q := ds.DB.Where("latitude IS NULL OR longitude IS NULL").Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&animals).Error; err != nil {
		return nil, dbError(err, "missing_location")
	}
	return animals, nil
}

// UpdateSound writes the sound enrichment columns for one record in a single
// UPDATE statement.
func (ds *DataStore) UpdateSound(id uint, soundURL, soundSource string, updated time.Time) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	result := ds.DB.Model(&Animal{}).Where("id = ?", id).Updates(map[string]any{
		"sound_url":     soundURL,
		"sound_source":  soundSource,
		"sound_updated": updated,
	})
	if result.Error != nil {
		return dbError(result.Error, "update_sound")
	}
	if result.RowsAffected == 0 {
		return errors.Newf("animal %d not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// UpdateLocation writes all four location columns for one record in a single
// UPDATE statement, so the coordinate pair is never half-written.
func (ds *DataStore) UpdateLocation(id uint, latitude, longitude float64, locationString, placeGuess string) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	result := ds.DB.Model(&Animal{}).Where("id = ?", id).Updates(map[string]any{
		"latitude":        latitude,
		"longitude":       longitude,
		"location_string": locationString,
		"place_guess":     placeGuess,
	})
	if result.Error != nil {
		return dbError(result.Error, "update_location")
	}
	if result.RowsAffected == 0 {
		return errors.Newf("animal %d not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// EnsureSoundColumns adds the sound enrichment columns when they are missing.
// Errors from already existing columns are ignored.
func (ds *DataStore) EnsureSoundColumns() error {
	if ds.DB == nil {
		return errNotOpen()
	}
	m := ds.DB.Migrator()
	for _, column := range []string{"SoundSource", "SoundUpdated"} {
		if m.HasColumn(&Animal{}, column) {
			continue
		}
		if err := m.AddColumn(&Animal{}, column); err != nil {
			// Concurrent migrations can race; an existing column is fine
			logger.Debug("add column skipped", "column", column, "error", err)
		}
	}
	return nil
}

// SoundCoverage aggregates enrichment progress for the status report.
func (ds *DataStore) SoundCoverage() (*Coverage, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}

	cov := &Coverage{BySource: make(map[string]int64)}

	if err := ds.DB.Model(&Animal{}).Count(&cov.Total).Error; err != nil {
		return nil, dbError(err, "coverage_total")
	}
	if err := ds.DB.Model(&Animal{}).
		Where("sound_url IS NOT NULL AND sound_url != ''").
		Count(&cov.WithSound).Error; err != nil {
		return nil, dbError(err, "coverage_sound")
	}
	if err := ds.DB.Model(&Animal{}).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Count(&cov.WithLocation).Error; err != nil {
		return nil, dbError(err, "coverage_location")
	}

	var rows []struct {
		SoundSource string
		Count       int64
	}
	if err := ds.DB.Model(&Animal{}).
		Select("sound_source, count(*) as count").
		Where("sound_source IS NOT NULL AND sound_source != ''").
		Group("sound_source").
		Scan(&rows).Error; err != nil {
		return nil, dbError(err, "coverage_sources")
	}
	for _, row := range rows {
		cov.BySource[row.SoundSource] = row.Count
	}

	if err := ds.DB.
		Where("sound_updated IS NOT NULL").
		Order("sound_updated desc").
		Limit(5).
		Find(&cov.RecentSounds).Error; err != nil {
		return nil, dbError(err, "coverage_recent")
	}

	return cov, nil
}

func errNotOpen() error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
