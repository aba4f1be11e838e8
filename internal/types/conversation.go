package types

// ChapterCandidate is one chapter boundary proposed by a single model
// call. Unvalidated: timestamps may be unparsable or out of range and
// must be filtered before use.
type ChapterCandidate struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Reason  string `json:"reason"`
}

// Chapter is a candidate that survived interval merge and boundary
// snapping. Chapters in a final set are pairwise non-overlapping and,
// where any source cue intersected them, start and end on real cue
// boundaries.
type Chapter struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Reason  string `json:"reason"`
}

// Usage accumulates token counts across model calls.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add folds another usage sample into the running totals.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Conversation is the chapter artifact written next to the captions.
type Conversation struct {
	Usage    Usage     `json:"usage"`
	Chapters []Chapter `json:"chapters"`
}
