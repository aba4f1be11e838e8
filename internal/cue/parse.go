package cue

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"media-analysis-go/internal/types"
)

// ParseWebVTT reads a WebVTT caption stream into cues. Identifier lines
// are tolerated and discarded; cue timing lines use the
// "HH:MM:SS.mmm --> HH:MM:SS.mmm" form. Cues with malformed timing are
// skipped rather than failing the whole document.
func ParseWebVTT(r io.Reader) ([]types.Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []types.Cue
	var cur *types.Cue
	first := true

	flush := func() {
		if cur != nil && len(cur.Lines) > 0 {
			cues = append(cues, *cur)
		}
		cur = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if first {
			first = false
			if strings.HasPrefix(line, "WEBVTT") {
				continue
			}
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if start, end, ok := parseTimingLine(trimmed); ok {
			flush()
			cur = &types.Cue{StartMs: start, EndMs: end}
			continue
		}
		if cur != nil {
			cur.Lines = append(cur.Lines, trimmed)
		}
		// anything before the first timing line (identifiers, NOTE
		// blocks) is dropped
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	return Normalize(cues), nil
}

func parseTimingLine(line string) (int64, int64, bool) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start := ParseTimecode(padTimecode(strings.TrimSpace(parts[0])))
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, false
	}
	end := ParseTimecode(padTimecode(endField[0]))
	if start < 0 || end < 0 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// padTimecode accepts the short MM:SS.mmm form WebVTT allows and pads
// it to the fixed-width shape ParseTimecode expects.
func padTimecode(s string) string {
	if len(s) == 9 && s[2] == ':' && s[5] == '.' {
		return "00:" + s
	}
	return s
}

// Normalize sorts cues by start time, merges adjacent overlapping cues
// into one, and reassigns sequential ids. The result is strictly
// non-overlapping and monotonically increasing.
func Normalize(cues []types.Cue) []types.Cue {
	if len(cues) == 0 {
		return nil
	}
	sorted := make([]types.Cue, len(cues))
	copy(sorted, cues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartMs < sorted[j].StartMs
	})

	out := make([]types.Cue, 0, len(sorted))
	for _, c := range sorted {
		if len(out) > 0 && c.StartMs < out[len(out)-1].EndMs {
			prev := &out[len(out)-1]
			if c.EndMs > prev.EndMs {
				prev.EndMs = c.EndMs
			}
			prev.Lines = append(prev.Lines, c.Lines...)
			continue
		}
		out = append(out, c)
	}
	for i := range out {
		out[i].ID = i
	}
	return out
}
