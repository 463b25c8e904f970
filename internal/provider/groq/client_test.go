package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naturetrace/naturetrace-go/internal/errors"
	"github.com/naturetrace/naturetrace-go/internal/resolver"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	c, err := NewClient(Config{APIKey: "test-key", HTTPClient: hc})
	require.NoError(t, err)
	return c
}

// completion wraps model output in a chat completion envelope.
func completion(content string) string {
	q, _ := json.Marshal(content)
	return fmt.Sprintf(`{"choices": [{"message": {"role": "assistant", "content": %s}}]}`, q)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestTypicalHabitat(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("POST", "https://api.groq.com/openai/v1/chat/completions",
		httpmock.NewStringResponder(200, completion(
			`{"region": "Rocky Mountains", "country": "United States", "continent": "North America", "coordinates": {"lat": 43.5, "lng": -110.8}}`)))

	loc, err := c.TypicalHabitat(context.Background(), resolver.Query{Subject: "Bobcat"})
	require.NoError(t, err)
	assert.InDelta(t, 43.5, loc.Latitude, 1e-9)
	assert.InDelta(t, -110.8, loc.Longitude, 1e-9)
	assert.Equal(t, "Rocky Mountains, United States, North America", loc.LocationString)
	assert.Equal(t, "Rocky Mountains, United States, North America (AI typical habitat)", loc.PlaceGuess)
	assert.Equal(t, "groq", loc.Source)
}

func TestTypicalHabitatUnknownAnimal(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("POST", "https://api.groq.com/openai/v1/chat/completions",
		httpmock.NewStringResponder(200, completion(`{"error": "unknown"}`)))

	_, err := c.TypicalHabitat(context.Background(), resolver.Query{Subject: "Jackalope"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestTypicalHabitatProseAnswer(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("POST", "https://api.groq.com/openai/v1/chat/completions",
		httpmock.NewStringResponder(200, completion(
			"The bobcat typically lives in North America.")))

	_, err := c.TypicalHabitat(context.Background(), resolver.Query{Subject: "Bobcat"})
	require.Error(t, err)
	assert.True(t, errors.IsMalformed(err))
}

func TestTypicalHabitatInvalidCoordinates(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("POST", "https://api.groq.com/openai/v1/chat/completions",
		httpmock.NewStringResponder(200, completion(
			`{"region": "Nowhere", "coordinates": {"lat": 312.0, "lng": 5.0}}`)))

	_, err := c.TypicalHabitat(context.Background(), resolver.Query{Subject: "Bobcat"})
	require.Error(t, err)
	assert.True(t, errors.IsMalformed(err))
}

func TestTypicalHabitatAPIFailureNotRetried(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("POST", "https://api.groq.com/openai/v1/chat/completions",
		httpmock.NewStringResponder(500, `{"error": {"message": "internal"}}`))

	_, err := c.TypicalHabitat(context.Background(), resolver.Query{Subject: "Bobcat"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["POST https://api.groq.com/openai/v1/chat/completions"])
}
