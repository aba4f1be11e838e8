package chapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-analysis-go/internal/llm"
	"media-analysis-go/internal/logger"
	"media-analysis-go/internal/types"
)

func testLog() *logrus.Entry {
	return logger.New().WithStage("test", "00000000-0000-0000-0000-000000000000")
}

// fakeLLM replays canned responses in call order. A nil error with an
// empty response means "fail this call".
type fakeLLM struct {
	responses []llm.Result
	errs      []error
	calls     [][]llm.Message
}

func (f *fakeLLM) Invoke(_ context.Context, messages []llm.Message) (llm.Result, error) {
	i := len(f.calls)
	f.calls = append(f.calls, messages)
	if i < len(f.errs) && f.errs[i] != nil {
		return llm.Result{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return llm.Result{}, errors.New("unexpected call")
}

func uniformCues(n int, stepMs int64) []types.Cue {
	cues := make([]types.Cue, n)
	for i := range cues {
		cues[i] = types.Cue{
			ID:      i,
			StartMs: int64(i) * stepMs,
			EndMs:   int64(i+1) * stepMs,
			Lines:   []string{fmt.Sprintf("line %d", i)},
		}
	}
	return cues
}

func chapterJSON(start, end, reason string) string {
	return fmt.Sprintf(`{"chapters":[{"start":%q,"end":%q,"reason":%q}]}`, start, end, reason)
}

func TestRunShortTranscriptSkipped(t *testing.T) {
	fake := &fakeLLM{}
	engine := New(fake, testLog())

	out, err := engine.Run(context.Background(), uniformCues(30, 1000)) // 30s
	require.NoError(t, err)
	assert.Empty(t, out.Chapters)
	assert.Empty(t, fake.calls)
}

func TestRunEmptyCues(t *testing.T) {
	engine := New(&fakeLLM{}, testLog())
	out, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out.Chapters)
}

func TestRunSingleChunk(t *testing.T) {
	fake := &fakeLLM{responses: []llm.Result{
		{
			Text:  chapterJSON("00:00:00.000", "00:01:00.000", "opening"),
			Usage: types.Usage{InputTokens: 100, OutputTokens: 20},
		},
	}}
	engine := New(fake, testLog())

	cues := uniformCues(120, 1000) // 2 minutes of 1s cues
	out, err := engine.Run(context.Background(), cues)
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	require.Len(t, out.Chapters, 1)

	assert.Equal(t, "00:00:00.000", out.Chapters[0].Start)
	assert.Equal(t, "00:01:00.000", out.Chapters[0].End)
	assert.Equal(t, int64(60000), out.Chapters[0].EndMs)
	assert.Equal(t, "opening", out.Chapters[0].Reason)
	assert.Equal(t, types.Usage{InputTokens: 100, OutputTokens: 20}, out.Usage)

	// the request carries the system prompt, the transcript, and the
	// assistant JSON pre-fill
	msgs := fake.calls[0]
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "00:00:00.000 --> 00:00:01.000")
	assert.Contains(t, msgs[1].Content, "line 0")
	assert.Equal(t, "{", msgs[2].Content)
}

func TestRunLongTranscriptChunked(t *testing.T) {
	// 25 minutes of uniform 1s cues splits into two chunks, the first
	// trailed by the opening cues of the second.
	cues := uniformCues(1500, 1000)
	fake := &fakeLLM{responses: []llm.Result{
		{Text: chapterJSON("00:00:00.000", "00:10:00.000", "first half"), Usage: types.Usage{InputTokens: 10}},
		{Text: chapterJSON("00:15:00.000", "00:25:00.000", "second half"), Usage: types.Usage{InputTokens: 12}},
	}}
	engine := New(fake, testLog())

	out, err := engine.Run(context.Background(), cues)
	require.NoError(t, err)
	require.Len(t, fake.calls, 2)

	first := fake.calls[0][1].Content
	second := fake.calls[1][1].Content
	// overlap: the first call also sees the second chunk's opening cue
	assert.Contains(t, first, "line 750")
	assert.Contains(t, first, "line 759")
	assert.NotContains(t, first, "line 760\n")
	assert.True(t, strings.HasPrefix(second, userInstruction+"00:12:30.000"))

	require.Len(t, out.Chapters, 2)
	assert.Equal(t, types.Usage{InputTokens: 22}, out.Usage)
}

func TestRunFailedChunkDegrades(t *testing.T) {
	cues := uniformCues(1500, 1000)
	fake := &fakeLLM{
		responses: []llm.Result{
			{},
			{Text: chapterJSON("00:15:00.000", "00:25:00.000", "survivor")},
		},
		errs: []error{errors.New("gateway timeout"), nil},
	}
	engine := New(fake, testLog())

	out, err := engine.Run(context.Background(), cues)
	require.NoError(t, err)
	require.Len(t, out.Chapters, 1)
	assert.Equal(t, "survivor", out.Chapters[0].Reason)
}

func TestRunUnparsableResponseYieldsNoChapters(t *testing.T) {
	fake := &fakeLLM{responses: []llm.Result{{Text: "I cannot do that"}}}
	engine := New(fake, testLog())

	out, err := engine.Run(context.Background(), uniformCues(120, 1000))
	require.NoError(t, err)
	assert.Empty(t, out.Chapters)
}

func TestChunkCuesBoundaries(t *testing.T) {
	// exactly 20 minutes stays in one chunk
	cues := uniformCues(1200, 1000)
	chunks := chunkCues(cues, 1200*1000)
	require.Len(t, chunks, 1)

	// 25 minutes yields two chunks of 750 plus a 10-cue overlap
	cues = uniformCues(1500, 1000)
	chunks = chunkCues(cues, 1500*1000)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 760)
	assert.Len(t, chunks[1], 750)
	assert.Equal(t, 750, chunks[1][0].ID)
	assert.Equal(t, 759, chunks[0][759].ID)
}
