package batch

import (
	"strings"

	"media-analysis-go/internal/types"
)

// sentimentWindowMs is the target span of one merged sentiment window.
// Classification is unreliable on single short fragments, so fragments
// are coalesced into roughly one-minute spans before submission.
const sentimentWindowMs = 60_000

// MergeSentimentWindows coalesces consecutive cues into windows no
// longer than a minute plus the cue that triggered the flush. Each
// returned cue carries the space-joined text and the min/max timecodes
// of its fragments; the trailing partial window is always flushed.
func MergeSentimentWindows(cues []types.Cue) []types.Cue {
	var out []types.Cue
	var stack []types.Cue

	flush := func() {
		if len(stack) == 0 {
			return
		}
		parts := make([]string, 0, len(stack))
		for _, c := range stack {
			parts = append(parts, c.Text())
		}
		out = append(out, types.Cue{
			ID:      len(out),
			StartMs: stack[0].StartMs,
			EndMs:   stack[len(stack)-1].EndMs,
			Lines:   []string{strings.Join(parts, " ")},
		})
		stack = stack[:0]
	}

	for _, c := range cues {
		if len(stack) > 0 && c.EndMs-stack[0].StartMs > sentimentWindowMs {
			flush()
		}
		stack = append(stack, c)
	}
	flush()
	return out
}
