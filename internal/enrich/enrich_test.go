package enrich

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naturetrace/naturetrace-go/internal/conf"
	"github.com/naturetrace/naturetrace-go/internal/datastore"
	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/gateway"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
	"github.com/naturetrace/naturetrace-go/internal/speechfilter"
)

type fakeMediaAdapter struct {
	name  string
	media map[string]resolver.Media // keyed by subject; missing means not-found
	calls []string
}

func (f *fakeMediaAdapter) Name() string { return f.name }

func (f *fakeMediaAdapter) Resolve(ctx context.Context, q resolver.Query) (resolver.Media, error) {
	f.calls = append(f.calls, q.Subject)
	if m, ok := f.media[q.Subject]; ok {
		return m, nil
	}
	return resolver.Media{}, errors.Newf("no recordings for %q", q.Subject).
		Category(errors.CategoryNotFound).
		Build()
}

type fakeLocationAdapter struct {
	name string
	locs map[string]resolver.Location
}

func (f *fakeLocationAdapter) Name() string { return f.name }

func (f *fakeLocationAdapter) Resolve(ctx context.Context, q resolver.Query) (resolver.Location, error) {
	if l, ok := f.locs[q.Subject]; ok {
		return l, nil
	}
	return resolver.Location{}, errors.Newf("no observations for %q", q.Subject).
		Category(errors.CategoryNotFound).
		Build()
}

type fakeFilter struct {
	path string
	err  error
}

func (f *fakeFilter) Process(ctx context.Context, audioURL, subject string) (*speechfilter.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &speechfilter.Result{Path: f.path, SegmentsKept: 1}, nil
}

func newTestStore(t *testing.T) *datastore.SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Database.SQLite.Enabled = true
	settings.Database.SQLite.Path = t.TempDir() + "/test.db"

	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedAnimal(t *testing.T, store *datastore.SQLiteStore, name, category string) *datastore.Animal {
	t.Helper()
	animal := &datastore.Animal{Name: name, Category: category}
	require.NoError(t, store.Save(animal))
	return animal
}

func soundChainOf(t *testing.T, adapters ...resolver.Adapter[resolver.Media]) *SoundChain {
	t.Helper()
	r, err := resolver.New(adapters...)
	require.NoError(t, err)
	return &SoundChain{standard: r, mammalFirst: r}
}

func TestSoundRunTallies(t *testing.T) {
	store := newTestStore(t)
	seedAnimal(t, store, "Bald Eagle", "Bird")
	seedAnimal(t, store, "Gray Wolf", "Mammal")
	seedAnimal(t, store, "Unicorn", "")

	adapter := &fakeMediaAdapter{name: "xeno-canto", media: map[string]resolver.Media{
		"Bald Eagle": {URL: "https://example.com/eagle.mp3", Source: "xeno-canto"},
		"Gray Wolf":  {URL: "https://example.com/wolf.mp3", Source: "xeno-canto"},
	}}
	e := NewSoundEnricher(store, soundChainOf(t, adapter), gateway.New(store), nil, 0, 0)

	stats, err := e.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Updated)
	assert.Equal(t, 1, stats.NoData)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 2, stats.Sources["xeno-canto"])

	// Enriched records got their URLs, the miss stayed untouched
	missing, err := store.AnimalsMissingSound(0)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "Unicorn", missing[0].Name)
}

func TestSoundMammalChainOrder(t *testing.T) {
	store := newTestStore(t)
	wolf := seedAnimal(t, store, "Gray Wolf", "Mammal")
	eagle := seedAnimal(t, store, "Bald Eagle", "Bird")

	standardFirst := &fakeMediaAdapter{name: "xeno-canto", media: map[string]resolver.Media{
		"Gray Wolf":  {URL: "https://example.com/xc.mp3", Source: "xeno-canto"},
		"Bald Eagle": {URL: "https://example.com/xc.mp3", Source: "xeno-canto"},
	}}
	mammalFirst := &fakeMediaAdapter{name: "inaturalist", media: map[string]resolver.Media{
		"Gray Wolf":  {URL: "https://example.com/inat.mp3", Source: "inaturalist"},
		"Bald Eagle": {URL: "https://example.com/inat.mp3", Source: "inaturalist"},
	}}

	std, err := resolver.New[resolver.Media](standardFirst, mammalFirst)
	require.NoError(t, err)
	mam, err := resolver.New[resolver.Media](mammalFirst, standardFirst)
	require.NoError(t, err)
	chain := &SoundChain{standard: std, mammalFirst: mam}

	e := NewSoundEnricher(store, chain, gateway.New(store), nil, 0, 0)

	source, err := e.EnrichOne(context.Background(), wolf)
	require.NoError(t, err)
	assert.Equal(t, "inaturalist", source)

	source, err = e.EnrichOne(context.Background(), eagle)
	require.NoError(t, err)
	assert.Equal(t, "xeno-canto", source)
}

func TestSoundSpeechFilterApplied(t *testing.T) {
	store := newTestStore(t)
	animal := seedAnimal(t, store, "Bobcat", "Mammal")

	adapter := &fakeMediaAdapter{name: "freesound", media: map[string]resolver.Media{
		"Bobcat": {URL: "https://example.com/bobcat.mp3", Source: "freesound"},
	}}
	filter := &fakeFilter{path: "/tmp/filtered_bobcat.wav"}
	e := NewSoundEnricher(store, soundChainOf(t, adapter), gateway.New(store), filter, 0, 0)

	source, err := e.EnrichOne(context.Background(), animal)
	require.NoError(t, err)
	assert.Equal(t, "freesound (processed)", source)

	got, err := store.Get(animal.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/filtered_bobcat.wav", got.SoundURL)
	assert.Equal(t, "freesound (processed)", got.SoundSource)
}

func TestSoundSpeechFilterFailureFallsBack(t *testing.T) {
	store := newTestStore(t)
	animal := seedAnimal(t, store, "Bobcat", "Mammal")

	adapter := &fakeMediaAdapter{name: "freesound", media: map[string]resolver.Media{
		"Bobcat": {URL: "https://example.com/bobcat.mp3", Source: "freesound"},
	}}
	filter := &fakeFilter{err: errors.Newf("filtered audio too short").Category(errors.CategoryAudio).Build()}
	e := NewSoundEnricher(store, soundChainOf(t, adapter), gateway.New(store), filter, 0, 0)

	source, err := e.EnrichOne(context.Background(), animal)
	require.NoError(t, err)
	assert.Equal(t, "freesound", source)

	got, err := store.Get(animal.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/bobcat.mp3", got.SoundURL)
	assert.Equal(t, "freesound", got.SoundSource)
}

func TestLocationRun(t *testing.T) {
	store := newTestStore(t)
	seedAnimal(t, store, "Red Panda", "Mammal")
	seedAnimal(t, store, "Unicorn", "")

	adapter := &fakeLocationAdapter{name: "inaturalist", locs: map[string]resolver.Location{
		"Red Panda": {
			Latitude:   30.2,
			Longitude:  88.1,
			PlaceGuess: "Sikkim, India (iNaturalist)",
			Source:     "inaturalist",
		},
	}}
	res, err := resolver.New[resolver.Location](adapter)
	require.NoError(t, err)

	e := NewLocationEnricher(store, res, gateway.New(store), 0)

	stats, err := e.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.NoData)
	assert.Equal(t, 1, stats.Sources["inaturalist"])

	panda, err := store.GetByName("Red Panda")
	require.NoError(t, err)
	require.NotNil(t, panda.Latitude)
	assert.InDelta(t, 30.2, *panda.Latitude, 1e-9)
}

func TestRunRespectsLimit(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"A", "B", "C", "D"} {
		seedAnimal(t, store, name, "Bird")
	}

	adapter := &fakeMediaAdapter{name: "xeno-canto", media: map[string]resolver.Media{}}
	e := NewSoundEnricher(store, soundChainOf(t, adapter), gateway.New(store), nil, 0, 0)

	stats, err := e.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
}

func TestRunStopsOnCancellation(t *testing.T) {
	store := newTestStore(t)
	seedAnimal(t, store, "A", "Bird")
	seedAnimal(t, store, "B", "Bird")
	seedAnimal(t, store, "C", "Bird")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := &fakeMediaAdapter{name: "xeno-canto", media: map[string]resolver.Media{}}
	e := NewSoundEnricher(store, soundChainOf(t, adapter), gateway.New(store), nil, time.Millisecond, 0)

	stats, err := e.Run(ctx, 0)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.Less(t, stats.Processed, 3)
}

func TestBuildChainsFromSettings(t *testing.T) {
	settings := &conf.Settings{}
	settings.Providers.FreeSound.APIKey = "test-key"
	settings.Providers.Groq.APIKey = "test-key"

	chain, err := BuildSoundChain(settings, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"xeno-canto", "freesound", "inaturalist"},
		chain.For(resolver.CategoryBird).Adapters())
	assert.Equal(t, []string{"inaturalist", "xeno-canto", "freesound"},
		chain.For(resolver.CategoryMammal).Adapters())

	loc, err := BuildLocationResolver(settings, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"inaturalist", "wikipedia", "groq"}, loc.Adapters())
}

func TestBuiltChainCapturesDownloadRedirect(t *testing.T) {
	settings := &conf.Settings{}
	settings.Providers.FreeSound.APIKey = "test-key"

	// The shared pipeline client follows redirects; FreeSound must still see
	// the raw 302 of its download endpoint when wired through the chain.
	hc := httpclient.New(nil)
	httpmock.ActivateNonDefault(hc.StdClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	chain, err := BuildSoundChain(settings, hc)
	require.NoError(t, err)

	httpmock.RegisterResponder("GET", "https://xeno-canto.org/api/2/recordings",
		httpmock.NewStringResponder(200, `{"numRecordings": "0", "recordings": []}`))
	httpmock.RegisterResponder("GET", `=~^https://freesound\.org/apiv2/search/text/`,
		httpmock.NewStringResponder(200, `{
			"count": 1,
			"results": [
				{"id": 2, "name": "Bald Eagle call", "description": "wildlife bird call", "duration": 0.8, "avg_rating": 4.0,
				 "previews": {"preview-hq-mp3": "https://cdn.freesound.org/previews/2-hq.mp3"}}
			]
		}`))
	httpmock.RegisterResponder("GET", "https://freesound.org/apiv2/sounds/2/download/",
		httpmock.ResponderFromResponse(&http.Response{
			StatusCode: http.StatusFound,
			Header:     http.Header{"Location": []string{"https://cdn.freesound.org/full/2.wav"}},
			Body:       httpmock.NewRespBodyFromString(""),
		}))

	media, source, err := chain.For(resolver.CategoryBird).
		Resolve(context.Background(), resolver.Query{Subject: "Bald Eagle"})
	require.NoError(t, err)
	assert.Equal(t, "freesound", source)
	assert.Equal(t, "https://cdn.freesound.org/full/2.wav", media.URL,
		"redirect target stored, not the preview fallback")
}

func TestBuildChainsWithoutOptionalKeys(t *testing.T) {
	settings := &conf.Settings{}

	chain, err := BuildSoundChain(settings, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"xeno-canto", "inaturalist"},
		chain.For(resolver.CategoryBird).Adapters())

	loc, err := BuildLocationResolver(settings, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"inaturalist", "wikipedia"}, loc.Adapters())
}
