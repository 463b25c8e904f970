package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naturetrace/naturetrace-go/internal/conf"
	"github.com/naturetrace/naturetrace-go/internal/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Database.SQLite.Enabled = true
	settings.Database.SQLite.Path = t.TempDir() + "/test.db"

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedAnimal(t *testing.T, store *SQLiteStore, name, category string) *Animal {
	t.Helper()
	animal := &Animal{Name: name, Category: category}
	require.NoError(t, store.Save(animal))
	return animal
}

func TestGetByNameCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	seedAnimal(t, store, "Bobcat", "Mammal")

	got, err := store.GetByName("bobcat")
	require.NoError(t, err)
	assert.Equal(t, "Bobcat", got.Name)

	_, err = store.GetByName("unicorn")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestAnimalsMissingSound(t *testing.T) {
	store := newTestStore(t)
	a := seedAnimal(t, store, "Bobcat", "Mammal")
	b := seedAnimal(t, store, "Bald Eagle", "Bird")
	seedAnimal(t, store, "Gray Wolf", "Mammal")

	now := time.Now()
	require.NoError(t, store.UpdateSound(a.ID, "https://example.com/a.mp3", "xeno-canto", now))

	missing, err := store.AnimalsMissingSound(0)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, b.ID, missing[0].ID)

	limited, err := store.AnimalsMissingSound(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateSoundIdempotent(t *testing.T) {
	store := newTestStore(t)
	a := seedAnimal(t, store, "Bobcat", "Mammal")

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateSound(a.ID, "https://example.com/a.wav", "freesound", ts))
	require.NoError(t, store.UpdateSound(a.ID, "https://example.com/a.wav", "freesound", ts))

	got, err := store.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.wav", got.SoundURL)
	assert.Equal(t, "freesound", got.SoundSource)
	require.NotNil(t, got.SoundUpdated)
}

func TestUpdateSoundUnknownID(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateSound(999, "https://example.com/a.wav", "freesound", time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateLocationWritesAllFields(t *testing.T) {
	store := newTestStore(t)
	a := seedAnimal(t, store, "Bobcat", "Mammal")

	require.NoError(t, store.UpdateLocation(a.ID, 44.5, -110.3, "Yellowstone region", "Yellowstone (iNaturalist)"))

	got, err := store.Get(a.ID)
	require.NoError(t, err)
	require.True(t, got.HasLocation())
	assert.InDelta(t, 44.5, *got.Latitude, 1e-9)
	assert.InDelta(t, -110.3, *got.Longitude, 1e-9)
	assert.Equal(t, "Yellowstone region", got.LocationString)
	assert.Equal(t, "Yellowstone (iNaturalist)", got.PlaceGuess)
}

func TestEnsureSoundColumnsTwice(t *testing.T) {
	store := newTestStore(t)

	// Open already ran the column check once; a second run must be harmless
	require.NoError(t, store.EnsureSoundColumns())
	require.NoError(t, store.EnsureSoundColumns())
}

func TestSoundCoverage(t *testing.T) {
	store := newTestStore(t)
	a := seedAnimal(t, store, "Bobcat", "Mammal")
	b := seedAnimal(t, store, "Bald Eagle", "Bird")
	seedAnimal(t, store, "Gray Wolf", "Mammal")

	now := time.Now()
	require.NoError(t, store.UpdateSound(a.ID, "https://example.com/a.mp3", "xeno-canto", now))
	require.NoError(t, store.UpdateSound(b.ID, "https://example.com/b.mp3", "xeno-canto", now))
	require.NoError(t, store.UpdateLocation(a.ID, 44.5, -110.3, "Yellowstone region", "Yellowstone"))

	cov, err := store.SoundCoverage()
	require.NoError(t, err)
	assert.Equal(t, int64(3), cov.Total)
	assert.Equal(t, int64(2), cov.WithSound)
	assert.Equal(t, int64(1), cov.WithLocation)
	assert.Equal(t, int64(2), cov.BySource["xeno-canto"])
	assert.InDelta(t, 66.6, cov.SoundPercent(), 0.1)
	assert.Len(t, cov.RecentSounds, 2)
}
