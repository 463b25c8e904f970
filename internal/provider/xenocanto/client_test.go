package xenocanto

import (
	"context"
	"net/http"
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

const recordingsJSON = `{
	"numRecordings": "2",
	"recordings": [
		{"id": "777", "en": "Bald Eagle", "file": "//xeno-canto.org/777/download", "length": "0:12", "q": "A", "type": "call"},
		{"id": "778", "en": "Bald Eagle", "file": "https://xeno-canto.org/778/download", "length": "0:33", "q": "B", "type": "song"}
	]
}`

func TestSearchSound(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", "https://xeno-canto.org/api/2/recordings",
		httpmock.NewStringResponder(200, recordingsJSON))

	media, err := c.SearchSound(context.Background(), resolver.Query{Subject: "Bald Eagle"})
	require.NoError(t, err)
	assert.Equal(t, "https://xeno-canto.org/777/download", media.URL, "scheme-relative URLs gain https")
	assert.Equal(t, "xeno-canto", media.Source)
	assert.Equal(t, "A", media.Metadata["quality"])

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["GET https://xeno-canto.org/api/2/recordings"])
}

func TestSearchSoundQueryIsPlusJoined(t *testing.T) {
	c := newTestClient(t)

	var gotQuery string
	httpmock.RegisterResponder("GET", "https://xeno-canto.org/api/2/recordings",
		func(req *http.Request) (*http.Response, error) {
			gotQuery = req.URL.RawQuery
			return httpmock.NewStringResponse(200, recordingsJSON), nil
		})

	_, err := c.SearchSound(context.Background(), resolver.Query{Subject: "Bald Eagle"})
	require.NoError(t, err)
	assert.Equal(t, "query=Bald+Eagle", gotQuery)
}

func TestSearchSoundQueryEscapesReservedCharacters(t *testing.T) {
	c := newTestClient(t)

	var gotQuery, gotRaw string
	httpmock.RegisterResponder("GET", "https://xeno-canto.org/api/2/recordings",
		func(req *http.Request) (*http.Response, error) {
			gotQuery = req.URL.Query().Get("query")
			gotRaw = req.URL.RawQuery
			return httpmock.NewStringResponse(200, `{"numRecordings": "0", "recordings": []}`), nil
		})

	_, err := c.SearchSound(context.Background(), resolver.Query{Subject: "Will-o'-wisp & Friends?"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, "Will-o'-wisp & Friends?", gotQuery, "subject survives the round trip intact")
	assert.NotContains(t, gotRaw, "&query", "reserved characters must not split the query string")
}

func TestSearchSoundNoRecordings(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", "https://xeno-canto.org/api/2/recordings",
		httpmock.NewStringResponder(200, `{"numRecordings": "0", "recordings": []}`))

	_, err := c.SearchSound(context.Background(), resolver.Query{Subject: "Bobcat"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSearchSoundNameMismatch(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", "https://xeno-canto.org/api/2/recordings",
		httpmock.NewStringResponder(200, recordingsJSON))

	_, err := c.SearchSound(context.Background(), resolver.Query{Subject: "Common Loon"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSearchSoundServerError(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", "https://xeno-canto.org/api/2/recordings",
		httpmock.NewStringResponder(500, "internal error"))

	_, err := c.SearchSound(context.Background(), resolver.Query{Subject: "Bald Eagle"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestSearchSoundMalformedJSON(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder("GET", "https://xeno-canto.org/api/2/recordings",
		httpmock.NewStringResponder(200, "not json at all"))

	_, err := c.SearchSound(context.Background(), resolver.Query{Subject: "Bald Eagle"})
	require.Error(t, err)
	assert.True(t, errors.IsMalformed(err))
}
