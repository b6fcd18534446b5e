package youtube

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/poiesic/gist/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func cannedClient(status int, body string, hits *int) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		*hits++
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	})}
}

const segmentsBody = `{"actions":[{"elementsCommand":{"transformEntityCommand":{"arguments":{"transformTranscriptSegmentListArguments":{"overwrite":{"initialSegments":[
 {"transcriptSegmentRenderer":{"startMs":"0","endMs":"1000","snippet":{"elementsAttributedString":{"content":"welcome to"}}}},
 {"transcriptSegmentRenderer":{"startMs":"1000","endMs":"2000","snippet":{"elementsAttributedString":{"content":" the lecture "}}}}
]}}}}}}]}`

func TestVideoID(t *testing.T) {
	id, err := VideoID("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	id, err = VideoID("https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	_, err = VideoID("short")
	assert.ErrorIs(t, err, ErrInvalidVideoRef)
}

func TestFetch_Segments(t *testing.T) {
	hits := 0
	f := New(WithHTTPClient(cannedClient(http.StatusOK, segmentsBody, &hits)))

	text, err := f.Fetch(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "welcome to the lecture", text)
	assert.Equal(t, 1, hits)
}

func TestFetch_Disabled(t *testing.T) {
	hits := 0
	f := New(WithHTTPClient(cannedClient(http.StatusOK, `{"actions":[]}`, &hits)))

	_, err := f.Fetch(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, transcript.ErrTranscriptDisabled)
}

func TestFetch_HTTPError(t *testing.T) {
	hits := 0
	f := New(WithHTTPClient(cannedClient(http.StatusServiceUnavailable, "", &hits)))

	_, err := f.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.NotErrorIs(t, err, transcript.ErrTranscriptDisabled)
	assert.Equal(t, 1, hits)
}

func TestFetch_InvalidRef(t *testing.T) {
	hits := 0
	f := New(WithHTTPClient(cannedClient(http.StatusOK, "{}", &hits)))

	_, err := f.Fetch(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidVideoRef)
	assert.Equal(t, 0, hits)
}

func TestResolverWithYouTube(t *testing.T) {
	hits := 0
	r, err := transcript.NewResolver(New(WithHTTPClient(cannedClient(http.StatusOK, `{"actions":[]}`, &hits))))
	require.NoError(t, err)

	_ = r.Resolve(context.Background(), "dQw4w9WgXcQ", "")
	outcome := r.Resolve(context.Background(), "dQw4w9WgXcQ", "")
	assert.Equal(t, "disabled", outcome.State.String())
	assert.Equal(t, 1, hits)
}
