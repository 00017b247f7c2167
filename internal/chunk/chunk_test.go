package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_ArrayAutoTimestamps(t *testing.T) {
	data := []byte(`[{"text":"first chunk"},{"text":"second chunk"}]`)
	chunks, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, int64(0), chunks[0].TimestampMs)
	assert.Equal(t, int64(DefaultIntervalMs), chunks[1].TimestampMs)
	assert.Equal(t, "user", chunks[0].Speaker)
	assert.True(t, chunks[0].IsFinal)
}

func TestParseJSON_ObjectWithChunksKey(t *testing.T) {
	data := []byte(`{"chunks":[{"timestamp_ms":900,"text":"hello","speaker":"alice"}]}`)
	chunks, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, int64(900), chunks[0].TimestampMs)
	assert.Equal(t, "alice", chunks[0].Speaker)
}

func TestParseJSON_EmptyTextRejected(t *testing.T) {
	data := []byte(`[{"text":"  "},{"text":"kept"}]`)
	chunks, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "kept", chunks[0].Text)
}

func TestParseJSON_SortedByTimestamp(t *testing.T) {
	data := []byte(`[{"timestamp_ms":500,"text":"later"},{"timestamp_ms":100,"text":"earlier"}]`)
	chunks, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "earlier", chunks[0].Text)
	assert.Equal(t, "later", chunks[1].Text)
}

func TestParseJSONL(t *testing.T) {
	data := []byte("{\"text\":\"a\"}\n{\"text\":\"b\",\"timestamp_ms\":10}\n\n")
	chunks, err := ParseJSONL(data)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
}

func TestParseFreeText_AllLineFormats(t *testing.T) {
	text := "plain text line\nbob|with speaker\ncarol|with expected|sequential"
	chunks := ParseFreeText(text)
	require.Len(t, chunks, 3)

	assert.Equal(t, "user", chunks[0].Speaker)
	assert.Equal(t, "plain text line", chunks[0].Text)
	assert.Nil(t, chunks[0].ExpectedIntent)

	assert.Equal(t, "bob", chunks[1].Speaker)
	assert.Equal(t, "with speaker", chunks[1].Text)

	assert.Equal(t, "carol", chunks[2].Speaker)
	require.NotNil(t, chunks[2].ExpectedIntent)
	assert.Equal(t, "sequential", *chunks[2].ExpectedIntent)

	assert.Equal(t, int64(0), chunks[0].TimestampMs)
	assert.Equal(t, int64(DefaultIntervalMs), chunks[1].TimestampMs)
	assert.Equal(t, int64(2*DefaultIntervalMs), chunks[2].TimestampMs)
}

func TestParseFreeText_BlankLinesSkipped(t *testing.T) {
	chunks := ParseFreeText("\n\nfirst\n\nsecond\n")
	require.Len(t, chunks, 2)
}
