package chapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidatesMissingLeadingBrace(t *testing.T) {
	// the assistant pre-fill consumes the opening brace
	raw := `"chapters":[{"start":"00:00:00.000","end":"00:01:00.000","reason":"greeting"}]}`
	out := ParseCandidates(raw)
	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].StartMs)
	assert.Equal(t, int64(60000), out[0].EndMs)
	assert.Equal(t, "greeting", out[0].Reason)
}

func TestParseCandidatesCompleteDocument(t *testing.T) {
	raw := `{"chapters":[
		{"start":"00:00:10.000","end":"00:02:00.000","reason":"billing"},
		{"start":"00:02:00.000","end":"00:04:30.500","reason":"upgrade offer"}
	]}`
	out := ParseCandidates(raw)
	require.Len(t, out, 2)
	assert.Equal(t, int64(10000), out[0].StartMs)
	assert.Equal(t, int64(270500), out[1].EndMs)
}

func TestParseCandidatesSurroundingProse(t *testing.T) {
	raw := `Sure! Here are the chapters you asked for:
{"chapters":[{"start":"00:00:00.000","end":"00:01:00.000","reason":"intro"}]}
Let me know if you need anything else.`
	out := ParseCandidates(raw)
	require.Len(t, out, 1)
	assert.Equal(t, "intro", out[0].Reason)
}

func TestParseCandidatesDropsBadTimestamps(t *testing.T) {
	raw := `{"chapters":[
		{"start":"00:00:00.000","end":"00:01:00.000","reason":"good"},
		{"start":"0:00:00.000","end":"00:01:00.000","reason":"short start"},
		{"start":"00:02:00.000","end":"00:01:00.000","reason":"end before start"},
		{"start":"00:03:00.000","end":"00:03:00.000","reason":"zero length"}
	]}`
	out := ParseCandidates(raw)
	require.Len(t, out, 1)
	assert.Equal(t, "good", out[0].Reason)
}

func TestParseCandidatesUnusableText(t *testing.T) {
	assert.Empty(t, ParseCandidates("the model refused to answer"))
	assert.Empty(t, ParseCandidates(""))
	assert.Empty(t, ParseCandidates(`{"chapters":`))
}
