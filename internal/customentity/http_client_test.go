package customentity

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-analysis-go/internal/logger"
)

func packOutput(t *testing.T, entries map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return &buf
}

func TestUnpackOutput(t *testing.T) {
	archive := packOutput(t, map[string]string{
		"output": `{"file":"document-0.txt","line":0,"entities":[{"text":"Acme","type":"ORG","score":0.9,"beginOffset":0,"endOffset":4}]}
{"file":"document-1.txt","line":4,"entities":[]}
not json at all
{"file":"document-2.txt","line":7,"entities":[{"text":"Gold Plan","type":"PLAN","score":0.8,"beginOffset":10,"endOffset":19}]}
`,
	})

	records, err := unpackOutput(archive, logger.New().WithStage("test", "uuid"))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "document-0.txt", records[0].File)
	assert.Equal(t, "Acme", records[0].Entities[0].Text)
	assert.Equal(t, 4, records[1].Line)
	assert.Empty(t, records[1].Entities)
	assert.Equal(t, 7, records[2].Line)
}

func TestUnpackOutputNotGzip(t *testing.T) {
	_, err := unpackOutput(strings.NewReader("plain text"), logger.New().WithStage("test", "uuid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open output archive")
}
