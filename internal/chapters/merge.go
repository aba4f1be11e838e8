package chapters

import (
	"sort"

	"media-analysis-go/internal/types"
)

// mergedInterval keeps, next to the working bounds, the original span
// of the candidate whose reason currently wins, so unions can prefer
// the longer source interval's reason.
type mergedInterval struct {
	start      int64
	end        int64
	reason     string
	reasonSpan int64
}

// MergeCandidates coalesces overlapping candidates with a stack sweep.
// Candidates are sorted by start ascending, longer interval first on
// ties. A candidate past the stack top starts a new interval; one
// strictly contained in the top is dropped; a partial overlap widens
// the top to the union, keeping the reason of whichever candidate had
// the longer original duration. Idempotent: the output is pairwise
// non-overlapping and sorted, so a re-run is a no-op.
func MergeCandidates(candidates []types.ChapterCandidate) []types.ChapterCandidate {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]types.ChapterCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartMs != sorted[j].StartMs {
			return sorted[i].StartMs < sorted[j].StartMs
		}
		return sorted[i].EndMs > sorted[j].EndMs
	})

	stack := []mergedInterval{{
		start:      sorted[0].StartMs,
		end:        sorted[0].EndMs,
		reason:     sorted[0].Reason,
		reasonSpan: sorted[0].EndMs - sorted[0].StartMs,
	}}
	for _, cur := range sorted[1:] {
		top := &stack[len(stack)-1]
		switch {
		case cur.StartMs >= top.end:
			stack = append(stack, mergedInterval{
				start:      cur.StartMs,
				end:        cur.EndMs,
				reason:     cur.Reason,
				reasonSpan: cur.EndMs - cur.StartMs,
			})
		case cur.StartMs > top.start && cur.EndMs < top.end:
			// fully contained, redundant
		default:
			if cur.StartMs < top.start {
				top.start = cur.StartMs
			}
			if cur.EndMs > top.end {
				top.end = cur.EndMs
			}
			if span := cur.EndMs - cur.StartMs; span > top.reasonSpan {
				top.reason = cur.Reason
				top.reasonSpan = span
			}
		}
	}

	out := make([]types.ChapterCandidate, len(stack))
	for i, iv := range stack {
		out[i] = types.ChapterCandidate{StartMs: iv.start, EndMs: iv.end, Reason: iv.reason}
	}
	return out
}

// SnapToBoundaries replaces each chapter's approximate bounds with the
// first and last boundaries of the cues it actually covers. Walking
// the non-overlapping cue list, a cue straddling the chapter's claimed
// end is kept only when its end is the closer side; a chapter
// intersecting no cue is left unmodified.
func SnapToBoundaries(chapters []types.ChapterCandidate, cues []types.Cue) []types.ChapterCandidate {
	out := make([]types.ChapterCandidate, len(chapters))
	for i, ch := range chapters {
		out[i] = ch
		var first, last *types.Cue
		for j := range cues {
			c := &cues[j]
			if c.EndMs <= ch.StartMs {
				continue
			}
			if c.StartMs >= ch.EndMs {
				break
			}
			if overhang := c.EndMs - ch.EndMs; overhang > 0 && overhang > ch.EndMs-c.StartMs {
				// the cue reaches farther past the claimed end than it
				// overlaps it; snap before the cue
				break
			}
			if first == nil {
				first = c
			}
			last = c
		}
		if first != nil && last != nil {
			out[i].StartMs = first.StartMs
			out[i].EndMs = last.EndMs
		}
	}
	return out
}
