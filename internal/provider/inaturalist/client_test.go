package inaturalist

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/httpclient"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	hc := httpclient.New(nil)
	httpmock.ActivateNonDefault(hc.StdClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewClient(Config{}, hc)
}

const observationJSON = `{
	"total_results": 1,
	"results": [
		{
			"id": 42,
			"place_guess": "Yellowstone National Park, WY, USA",
			"geojson": {"type": "Point", "coordinates": [-110.5885, 44.428]},
			"taxon": {"name": "Lynx rufus", "preferred_common_name": "Bobcat", "iconic_taxon_name": "Mammalia"},
			"sounds": []
		}
	]
}`

const soundObservationJSON = `{
	"total_results": 1,
	"results": [
		{
			"id": 43,
			"place_guess": "",
			"taxon": {"name": "Haliaeetus leucocephalus", "preferred_common_name": "Bald Eagle", "iconic_taxon_name": "Aves"},
			"sounds": [{"file_url": "https://static.inaturalist.org/sounds/43.mp3", "license_code": "cc-by"}]
		}
	]
}`

func TestSearchLocation(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", `=~^https://api\.inaturalist\.org/v1/observations`,
		httpmock.NewStringResponder(200, observationJSON))

	loc, err := c.SearchLocation(context.Background(), resolver.Query{Subject: "Bobcat", Category: resolver.CategoryMammal})
	require.NoError(t, err)
	assert.InDelta(t, 44.428, loc.Latitude, 1e-6)
	assert.InDelta(t, -110.5885, loc.Longitude, 1e-6)
	assert.Equal(t, "Yellowstone National Park, WY, USA", loc.LocationString)
	assert.Equal(t, "Yellowstone National Park, WY, USA (iNaturalist)", loc.PlaceGuess)
	assert.Equal(t, "inaturalist", loc.Source)
}

func TestSearchLocationCommonNameMismatch(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", `=~^https://api\.inaturalist\.org/v1/observations`,
		httpmock.NewStringResponder(200, observationJSON))

	_, err := c.SearchLocation(context.Background(), resolver.Query{Subject: "Canada Lynx"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSearchLocationEmptyResults(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", `=~^https://api\.inaturalist\.org/v1/observations`,
		httpmock.NewStringResponder(200, `{"total_results": 0, "results": []}`))

	_, err := c.SearchLocation(context.Background(), resolver.Query{Subject: "Unicorn"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSearchLocationServerError(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", `=~^https://api\.inaturalist\.org/v1/observations`,
		httpmock.NewStringResponder(503, "upstream unavailable"))

	_, err := c.SearchLocation(context.Background(), resolver.Query{Subject: "Bobcat"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestSearchLocationRateLimited(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", `=~^https://api\.inaturalist\.org/v1/observations`,
		httpmock.NewStringResponder(429, "slow down"))

	_, err := c.SearchLocation(context.Background(), resolver.Query{Subject: "Bobcat"})
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
}

func TestSearchLocationMalformedJSON(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", `=~^https://api\.inaturalist\.org/v1/observations`,
		httpmock.NewStringResponder(200, "<html>not json</html>"))

	_, err := c.SearchLocation(context.Background(), resolver.Query{Subject: "Bobcat"})
	require.Error(t, err)
	assert.True(t, errors.IsMalformed(err))
}

func TestSearchSound(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", `=~^https://api\.inaturalist\.org/v1/observations`,
		httpmock.NewStringResponder(200, soundObservationJSON))

	media, err := c.SearchSound(context.Background(), resolver.Query{Subject: "Bald Eagle", Category: resolver.CategoryBird})
	require.NoError(t, err)
	assert.Equal(t, "https://static.inaturalist.org/sounds/43.mp3", media.URL)
	assert.Equal(t, "inaturalist", media.Source)
	assert.Equal(t, "cc-by", media.Metadata["license"])
}

func TestObservationCaching(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", `=~^https://api\.inaturalist\.org/v1/observations`,
		httpmock.NewStringResponder(200, observationJSON))

	q := resolver.Query{Subject: "Bobcat"}
	_, err := c.SearchLocation(context.Background(), q)
	require.NoError(t, err)
	firstCount := httpmock.GetTotalCallCount()

	_, err = c.SearchLocation(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, firstCount, httpmock.GetTotalCallCount(), "second lookup must be served from cache")
}

func TestQueryVariants(t *testing.T) {
	t.Parallel()

	variants := queryVariants(resolver.Query{Subject: "Bald Eagle", Category: resolver.CategoryBird})
	assert.Equal(t, []string{"Bald Eagle", "Bald+Eagle", `"Bald Eagle"`, "Bald Eagle Aves"}, variants)

	variants = queryVariants(resolver.Query{Subject: "Bobcat"})
	assert.Equal(t, []string{"Bobcat", "Bobcat", `"Bobcat"`}, variants)
}

func TestCommonNameMatches(t *testing.T) {
	t.Parallel()

	assert.True(t, commonNameMatches("Bobcat", "bobcat"))
	assert.True(t, commonNameMatches("Bobcat", "Iberian Bobcat"))
	assert.True(t, commonNameMatches("Great Horned Owl", "Horned Owl"))
	assert.False(t, commonNameMatches("Bobcat", "Canada Lynx"))
	assert.False(t, commonNameMatches("Bobcat", ""))
}
