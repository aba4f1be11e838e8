package chapters

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"media-analysis-go/internal/cue"
	"media-analysis-go/internal/llm"
	"media-analysis-go/internal/types"
)

const (
	// minSpanMs is the shortest transcript worth segmenting.
	minSpanMs = 40_000
	// singleChunkMs is the span below which one model call sees the
	// whole transcript.
	singleChunkMs = 20 * 60 * 1000
	// chunkSeconds sizes the equal chunks of a long transcript.
	chunkSeconds = 900
	// overlapCues trail each chunk into the next so topic changes
	// spanning a chunk boundary stay visible to at least one call.
	overlapCues = 10
)

const systemInstruction = "You segment long conversation transcripts into topic chapters."

const userInstruction = `Read the transcript below and identify where the conversation changes topic.
Respond with JSON only, in this exact shape:
{"chapters":[{"start":"HH:MM:SS.mmm","end":"HH:MM:SS.mmm","reason":"short description of the topic"}]}
Timestamps must be copied from the transcript cue timings. Do not add commentary.

TRANSCRIPT:
`

// Engine turns a normalized cue stream into merged, boundary-snapped
// conversation chapters via chunked model calls. Construct one per run
// with New; whether conversation analysis runs at all is the caller's
// decision, threaded through configuration rather than global state.
type Engine struct {
	llm llm.Client
	log *logrus.Entry
}

func New(client llm.Client, log *logrus.Entry) *Engine {
	return &Engine{
		llm: client,
		log: log.WithField("component", "chapters"),
	}
}

// Run executes the full segmentation pass. Per-chunk failures are
// absorbed: a failed call only costs that chunk's candidates, and a
// run with no usable candidates yields an empty chapter list, never an
// error.
func (e *Engine) Run(ctx context.Context, cues []types.Cue) (types.Conversation, error) {
	if len(cues) == 0 {
		return types.Conversation{}, nil
	}
	span := cues[len(cues)-1].EndMs - cues[0].StartMs
	if span < minSpanMs {
		e.log.WithField("span_ms", span).Debug("transcript too short to segment")
		return types.Conversation{}, nil
	}

	var usage types.Usage
	var candidates []types.ChapterCandidate
	chunks := chunkCues(cues, span)
	for i, chunk := range chunks {
		log := e.log.WithFields(logrus.Fields{"chunk": i, "chunks": len(chunks), "cues": len(chunk)})
		result, err := e.llm.Invoke(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: systemInstruction},
			{Role: llm.RoleUser, Content: userInstruction + serializeChunk(chunk)},
			// pre-fill nudges the model to open valid JSON
			{Role: llm.RoleAssistant, Content: "{"},
		})
		if err != nil {
			log.WithError(err).Warn("chunk invocation failed, contribution dropped")
			continue
		}
		usage.Add(result.Usage)
		parsed := ParseCandidates(result.Text)
		log.WithField("candidates", len(parsed)).Debug("chunk parsed")
		candidates = append(candidates, parsed...)
	}

	merged := SnapToBoundaries(MergeCandidates(candidates), cues)
	for i := 1; i < len(merged); i++ {
		if merged[i].StartMs < merged[i-1].EndMs {
			// known edge case: reconciliation may leave adjacent
			// chapters overlapping; surfaced, not auto-corrected
			e.log.WithFields(logrus.Fields{
				"previous": cue.FormatTimecode(merged[i-1].EndMs),
				"current":  cue.FormatTimecode(merged[i].StartMs),
			}).Warn("chapter collision after boundary reconciliation")
		}
	}

	out := types.Conversation{Usage: usage, Chapters: make([]types.Chapter, 0, len(merged))}
	for _, ch := range merged {
		out.Chapters = append(out.Chapters, types.Chapter{
			Start:   cue.FormatTimecode(ch.StartMs),
			End:     cue.FormatTimecode(ch.EndMs),
			StartMs: ch.StartMs,
			EndMs:   ch.EndMs,
			Reason:  ch.Reason,
		})
	}
	return out, nil
}

// chunkCues splits the cue list into equal chunks of roughly fifteen
// minutes, each trailed by the first cues of the following chunk.
// Short transcripts stay in one chunk.
func chunkCues(cues []types.Cue, spanMs int64) [][]types.Cue {
	if spanMs <= singleChunkMs {
		return [][]types.Cue{cues}
	}
	iterations := int((spanMs/1000 + chunkSeconds - 1) / chunkSeconds)
	if iterations < 2 {
		iterations = 2
	}
	size := (len(cues) + iterations - 1) / iterations
	if size == 0 {
		size = 1
	}
	var chunks [][]types.Cue
	for start := 0; start < len(cues); start += size {
		end := start + size
		if end > len(cues) {
			end = len(cues)
		}
		overlapEnd := end + overlapCues
		if overlapEnd > len(cues) {
			overlapEnd = len(cues)
		}
		chunks = append(chunks, cues[start:overlapEnd])
	}
	return chunks
}

// serializeChunk renders cues as a caption-like block the model can
// quote timestamps from.
func serializeChunk(cues []types.Cue) string {
	var b strings.Builder
	for _, c := range cues {
		b.WriteString(cue.FormatTimecode(c.StartMs))
		b.WriteString(" --> ")
		b.WriteString(cue.FormatTimecode(c.EndMs))
		b.WriteByte('\n')
		b.WriteString(c.Text())
		b.WriteString("\n\n")
	}
	return b.String()
}
