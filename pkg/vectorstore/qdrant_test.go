package vectorstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointIDIsStableUUID(t *testing.T) {
	a := pointID("https://example.com#chunk-0")
	b := pointID("https://example.com#chunk-0")
	c := pointID("https://example.com#chunk-1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestMatchFromPoint(t *testing.T) {
	p := &qdrant.ScoredPoint{
		Id:    qdrant.NewIDUUID(pointID("https://example.com#chunk-3")),
		Score: 0.87,
		Payload: qdrant.NewValueMap(map[string]any{
			payloadChunkID: "https://example.com#chunk-3",
			"url":          "https://example.com",
			"text":         "We ship worldwide.",
		}),
	}

	m := matchFromPoint(p)

	assert.Equal(t, "https://example.com#chunk-3", m.ID)
	assert.InDelta(t, 0.87, m.Score, 1e-6)
	assert.Equal(t, Metadata{URL: "https://example.com", Text: "We ship worldwide."}, m.Metadata)
}

func TestMatchFromPointWithoutPayload(t *testing.T) {
	id := pointID("x")
	m := matchFromPoint(&qdrant.ScoredPoint{Id: qdrant.NewIDUUID(id)})
	assert.Equal(t, id, m.ID)
	assert.Empty(t, m.Metadata.URL)
}
