package batch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-analysis-go/internal/types"
)

func makeCues(n int) []types.Cue {
	cues := make([]types.Cue, n)
	for i := range cues {
		cues[i] = types.Cue{
			ID:      i,
			StartMs: int64(i) * 1000,
			EndMs:   int64(i)*1000 + 900,
			Lines:   []string{fmt.Sprintf("cue number %d", i)},
		}
	}
	return cues
}

func TestMakeBatchesSizeBound(t *testing.T) {
	cues := makeCues(60)
	windows := MakeBatches(cues, DefaultMaxItems, DefaultMinChars)
	require.Len(t, windows, 3)
	assert.Len(t, windows[0], 25)
	assert.Len(t, windows[1], 25)
	assert.Len(t, windows[2], 10)
}

func TestMakeBatchesFiltersShortText(t *testing.T) {
	cues := []types.Cue{
		{Lines: []string{"keep this one"}},
		{Lines: []string{"a"}},
		{Lines: []string{""}},
		{Lines: []string{"and this"}},
	}
	windows := MakeBatches(cues, 25, DefaultMinChars)
	require.Len(t, windows, 1)
	require.Len(t, windows[0], 2)
	assert.Equal(t, 0, windows[0][0].OriginalIndex)
	assert.Equal(t, 3, windows[0][1].OriginalIndex)
}

func TestMakeBatchesEmptyInput(t *testing.T) {
	assert.Empty(t, MakeBatches(nil, 25, 2))
	assert.Empty(t, MakeBatches([]types.Cue{{Lines: []string{"x"}}}, 25, 2))
}

func TestWindowResolve(t *testing.T) {
	cues := makeCues(30)
	cues[5].Lines = []string{"a"} // filtered out
	windows := MakeBatches(cues, 25, DefaultMinChars)
	require.Len(t, windows, 2)

	// position 5 in the first window skips the filtered cue
	got, ok := windows[0].Resolve(5, cues)
	require.True(t, ok)
	assert.Equal(t, 6, got.ID)

	_, ok = windows[0].Resolve(25, cues)
	assert.False(t, ok)
	_, ok = windows[0].Resolve(-1, cues)
	assert.False(t, ok)
}
