package extraction

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleEmptyInput(t *testing.T) {
	record := Assemble(nil, nil)

	assert.NotNil(t, record.Fields)
	assert.NotNil(t, record.Blocks)
	assert.Empty(t, record.Fields)
	assert.Empty(t, record.Blocks)
	assert.Equal(t, "", record.RawText)
	assert.Equal(t, 0.0, record.MeanConfidence)

	_, err := time.Parse(time.RFC3339, record.Timestamp)
	assert.NoError(t, err)
}

func TestAssembleMeanConfidence(t *testing.T) {
	blocks := []TextBlock{
		{Text: "a", Confidence: 0.6},
		{Text: "b", Confidence: 0.9},
	}
	record := Assemble(blocks, FieldMap{})

	assert.InDelta(t, 0.75, record.MeanConfidence, 1e-9)
	assert.Equal(t, "a b", record.RawText)
}

func TestRecordJSONShape(t *testing.T) {
	record := Assemble(
		[]TextBlock{{
			Text:       "Name: Ada",
			Confidence: 0.9,
			BBox:       Quad{{X: 1, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 4}, {X: 1, Y: 4}},
		}},
		FieldMap{"full_name": "Ada"},
	)

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{"extracted_fields", "raw_text", "text_blocks", "timestamp", "total_confidence"} {
		assert.Contains(t, decoded, key)
	}

	blocks := decoded["text_blocks"].([]any)
	require.Len(t, blocks, 1)
	bbox := blocks[0].(map[string]any)["bbox"].([]any)
	require.Len(t, bbox, 4)
	corner := bbox[0].([]any)
	require.Len(t, corner, 2)
	assert.Equal(t, 1.0, corner[0])
	assert.Equal(t, 2.0, corner[1])
}

func TestQuadJSONRoundTrip(t *testing.T) {
	q := Quad{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}}

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, `[[0,0],[10,0],[10,5],[0,5]]`, string(raw))

	var back Quad
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, q, back)
}
