package batch

import "media-analysis-go/internal/types"

// DefaultMaxItems matches the external detection service's per-call
// limit.
const DefaultMaxItems = 25

// DefaultMinChars filters out noise fragments such as lone punctuation.
const DefaultMinChars = 2

// Item is one batched text with its position in the source cue list.
// OriginalIndex survives the round trip so result position i in the
// service response re-associates to the i-th input's timecodes.
type Item struct {
	Text          string
	OriginalIndex int
}

// Window is an ordered, size-bounded group of items submitted together
// to a batch-oriented service.
type Window []Item

// MakeBatches walks cues in order, drops cues whose text is shorter
// than minChars bytes, and accumulates the rest into windows of at
// most maxItems. Empty windows are never emitted.
func MakeBatches(cues []types.Cue, maxItems, minChars int) []Window {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	var out []Window
	var cur Window
	for i, c := range cues {
		text := c.Text()
		if len(text) < minChars {
			continue
		}
		cur = append(cur, Item{Text: text, OriginalIndex: i})
		if len(cur) == maxItems {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// Resolve maps a result position back to the source cue it was built
// from. The boolean is false when the service returned more results
// than the window had inputs.
func (w Window) Resolve(i int, cues []types.Cue) (types.Cue, bool) {
	if i < 0 || i >= len(w) {
		return types.Cue{}, false
	}
	idx := w[i].OriginalIndex
	if idx < 0 || idx >= len(cues) {
		return types.Cue{}, false
	}
	return cues[idx], true
}
