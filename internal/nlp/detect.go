package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"media-analysis-go/internal/batch"
	"media-analysis-go/internal/store"
	"media-analysis-go/internal/types"
)

// Category under which all detection results are filed.
const Category = "nlp"

// Subcategory names for the synchronous detection tasks.
const (
	SubEntity    = "entity"
	SubKeyphrase = "keyphrase"
	SubSentiment = "sentiment"
)

var operations = map[string]string{
	SubEntity:    OpEntities,
	SubKeyphrase: OpKeyPhrases,
	SubSentiment: OpSentiment,
}

// Task runs one synchronous detection pass: window the cues, call the
// batch service, re-associate results with timecodes, persist the raw
// manifest and the annotation metadata, and index the records.
type Task struct {
	Store  store.ObjectStore
	Index  store.DocumentIndex
	Client Client
	Log    *logrus.Entry
}

// Result reports one completed detection pass.
type Result struct {
	Status  types.StageStatus
	Records []types.AnnotationRecord
}

// Run executes the detection task for one subcategory. An unmapped
// language resolves to NO_DATA; so does an empty annotation set.
func (t *Task) Run(ctx context.Context, req types.Request, cues []types.Cue, sub, detectedLanguage string) (Result, error) {
	log := t.Log.WithFields(logrus.Fields{"sub": sub, "uuid": req.UUID})

	operation, ok := operations[sub]
	if !ok {
		return Result{}, fmt.Errorf("unsupported detection subcategory %q", sub)
	}
	language, ok := SupportedLanguage(detectedLanguage)
	if !ok {
		log.WithField("language", detectedLanguage).Warn("language not supported by detection service")
		return Result{Status: types.StatusNoData}, nil
	}

	// sentiment runs on coalesced windows, the other tasks on raw cues
	source := cues
	if sub == SubSentiment {
		source = batch.MergeSentimentWindows(cues)
	}
	windows := batch.MakeBatches(source, batch.DefaultMaxItems, batch.DefaultMinChars)
	if len(windows) == 0 {
		return Result{Status: types.StatusNoData}, nil
	}

	var records []types.AnnotationRecord
	var manifest bytes.Buffer
	for _, w := range windows {
		texts := make([]string, len(w))
		for i, item := range w {
			texts[i] = item.Text
		}
		resultList, err := t.Client.Detect(ctx, operation, language, texts)
		if err != nil {
			return Result{Status: types.StatusFailed}, fmt.Errorf("detect %s: %w", sub, err)
		}
		raw, _ := json.Marshal(resultList)
		manifest.Write(raw)
		manifest.WriteByte('\n')

		for i, detections := range resultList {
			anchor, ok := w.Resolve(i, source)
			if !ok {
				log.WithField("result_index", i).Warn("result index outside batch, dropped")
				continue
			}
			for _, d := range detections {
				records = append(records, types.AnnotationRecord{
					Category:    Category,
					SubCategory: sub,
					Text:        d.Text,
					Confidence:  clampConfidence(d.Score * 100),
					BeginMs:     anchor.StartMs,
					EndMs:       anchor.EndMs,
				})
			}
		}
	}

	ts := time.Now().UTC().Format("20060102T150405")
	manifestKey := path.Join(req.Destination.Prefix, "raw", ts, Category, sub, "output.manifest")
	if err := t.Store.Put(ctx, manifestKey, manifest.Bytes()); err != nil {
		return Result{Status: types.StatusFailed}, err
	}

	if len(records) == 0 {
		return Result{Status: types.StatusNoData}, nil
	}

	metadata, err := json.Marshal(records)
	if err != nil {
		return Result{Status: types.StatusFailed}, fmt.Errorf("encode %s metadata: %w", sub, err)
	}
	metadataKey := path.Join(req.Destination.Prefix, "metadata", sub, "output.json")
	if err := t.Store.Put(ctx, metadataKey, metadata); err != nil {
		return Result{Status: types.StatusFailed}, err
	}
	if err := t.Index.IndexDocument(ctx, sub, req.UUID, store.IndexedDocument{Type: "metadata", Data: metadata}); err != nil {
		return Result{Status: types.StatusFailed}, err
	}

	log.WithField("records", len(records)).Info("detection pass complete")
	return Result{Status: types.StatusCompleted, Records: records}, nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
