package chapters

import (
	"encoding/json"
	"strings"

	"media-analysis-go/internal/cue"
	"media-analysis-go/internal/types"
)

// rawChapter mirrors the JSON shape the model is instructed to emit.
// Timestamps arrive as HH:MM:SS.mmm strings and are not trusted.
type rawChapter struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

type chapterDocument struct {
	Chapters []rawChapter `json:"chapters"`
}

// parseStrategy attempts one way of recovering the chapter document
// from raw model text. Strategies are tried in order; the first
// success wins.
type parseStrategy func(string) ([]rawChapter, bool)

var parseStrategies = []parseStrategy{
	parseVerbatim,
	parseBraceBounds,
}

// parseVerbatim tries the text as-is, prefixing the opening brace the
// assistant pre-fill consumed when it is missing.
func parseVerbatim(raw string) ([]rawChapter, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}
	if !strings.HasPrefix(trimmed, "{") {
		trimmed = "{" + trimmed
	}
	return unmarshalChapters(trimmed)
}

// parseBraceBounds rescans for the outermost brace pair, discarding
// leading prose and trailing noise around the JSON object.
func parseBraceBounds(raw string) ([]rawChapter, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return unmarshalChapters(raw[start : end+1])
}

func unmarshalChapters(text string) ([]rawChapter, bool) {
	var doc chapterDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}
	return doc.Chapters, true
}

// ParseCandidates recovers chapter candidates from one model response.
// Malformed output never fails the run: unparsable text yields no
// candidates, and candidates with timestamps not matching the
// fixed-width pattern are dropped individually.
func ParseCandidates(raw string) []types.ChapterCandidate {
	var parsed []rawChapter
	for _, strategy := range parseStrategies {
		if chapters, ok := strategy(raw); ok {
			parsed = chapters
			break
		}
	}

	var out []types.ChapterCandidate
	for _, ch := range parsed {
		start := cue.ParseTimecode(ch.Start)
		end := cue.ParseTimecode(ch.End)
		if start < 0 || end < 0 || end <= start {
			continue
		}
		out = append(out, types.ChapterCandidate{
			StartMs: start,
			EndMs:   end,
			Reason:  ch.Reason,
		})
	}
	return out
}
