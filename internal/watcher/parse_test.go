package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborml/harbor/internal/shared/errors"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileJSONL(t *testing.T) {
	path := writeTemp(t, "batch.jsonl", `{"id": "a", "text": "one"}

{"id": "b", "text": "two", "embedding": [0.5, 1.5], "lang": "en"}
`)

	records, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "one", records[0].Text)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, []float32{0.5, 1.5}, records[1].Embedding)
	assert.Contains(t, records[1].Extra, "lang")
}

func TestParseFileNDJSONExtension(t *testing.T) {
	path := writeTemp(t, "batch.ndjson", `{"id": "x"}`)

	records, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseFileCSV(t *testing.T) {
	path := writeTemp(t, "batch.csv", "id,text,embedding,lang\n"+
		"a,hello,0.1;0.2;0.3,en\n"+
		"b,world,,fr\n")

	records, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "hello", records[0].Text)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, records[0].Embedding)
	assert.Equal(t, map[string]string{"lang": "en"}, records[0].Tags)

	assert.Nil(t, records[1].Embedding)
	assert.Equal(t, map[string]string{"lang": "fr"}, records[1].Tags)
}

func TestParseFileCSVHeaderOnly(t *testing.T) {
	path := writeTemp(t, "empty.csv", "id,text\n")

	records, err := ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseFileRejectsUnknownExtension(t *testing.T) {
	path := writeTemp(t, "data.parquet", "whatever")

	_, err := ParseFile(path)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFileType)
}

func TestParseFileRejectsMalformedJSONLine(t *testing.T) {
	path := writeTemp(t, "bad.jsonl", `{"id": "a"}
not json at all
`)

	_, err := ParseFile(path)
	assert.ErrorIs(t, err, errors.ErrParse)
}

func TestParseFileRejectsBadEmbedding(t *testing.T) {
	path := writeTemp(t, "bad.csv", "id,embedding\na,1;two;3\n")

	_, err := ParseFile(path)
	assert.ErrorIs(t, err, errors.ErrParse)
}

func TestParseFileRejectsOversizedLine(t *testing.T) {
	line := `{"text": "` + strings.Repeat("a", maxLineSize) + `"}`
	path := writeTemp(t, "huge.jsonl", line+"\n")

	_, err := ParseFile(path)
	assert.ErrorIs(t, err, errors.ErrParse)
}

func TestParseFileMissingFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}
