package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s := NewFSStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "assets/abc/metadata/entity/output.json", []byte(`[{"text":"x"}]`)))
	body, err := s.Get(ctx, "assets/abc/metadata/entity/output.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":"x"}]`, string(body))
}

func TestFSStoreMissingKey(t *testing.T) {
	s := NewFSStore(t.TempDir())
	_, err := s.Get(context.Background(), "nope/output.json")
	require.Error(t, err)
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s := NewFSStore(t.TempDir())
	ctx := context.Background()
	assert.Error(t, s.Put(ctx, "../outside.txt", []byte("x")))
	assert.Error(t, s.Put(ctx, "/etc/passwd", []byte("x")))
	_, err := s.Get(ctx, "../../secret")
	assert.Error(t, err)
}

func TestFSIndexRoundTrip(t *testing.T) {
	x := NewFSIndex(t.TempDir())
	ctx := context.Background()

	doc := IndexedDocument{Type: "metadata", Data: json.RawMessage(`{"records":3}`)}
	require.NoError(t, x.IndexDocument(ctx, "entity", "uuid-1", doc))

	got, err := x.GetDocument(ctx, "entity", "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, "metadata", got.Type)
	assert.JSONEq(t, `{"records":3}`, string(got.Data))
}

func TestFSIndexMissingDocument(t *testing.T) {
	x := NewFSIndex(t.TempDir())
	_, err := x.GetDocument(context.Background(), "entity", "uuid-1")
	require.Error(t, err)
}
