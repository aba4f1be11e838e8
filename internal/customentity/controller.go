package customentity

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"media-analysis-go/internal/backlog"
	"media-analysis-go/internal/nlp"
	"media-analysis-go/internal/store"
	"media-analysis-go/internal/types"
)

// SubCategory under which custom entity results are filed.
const SubCategory = "customentity"

// DocumentsPerBatch caps the lines of one corpus document, matching
// the detection service's batch limit.
const DocumentsPerBatch = 25

// fillerLine substitutes for corpus lines shorter than 3 bytes. The
// service requires a non-empty line per input position so index
// alignment survives the round trip.
const fillerLine = "   "

var documentPattern = regexp.MustCompile(`document-(\d+)\.txt$`)

// Controller drives the one NLP task that needs an asynchronous batch
// job: CheckCriteria -> Prepare -> Submit -> Poll -> CreateTrack ->
// IndexResults. Each step is a single-shot call; the workflow engine
// re-invokes Poll until the job is terminal.
type Controller struct {
	Store  store.ObjectStore
	Index  store.DocumentIndex
	Client Client
	Slots  *backlog.Slots
	Log    *logrus.Entry
}

// CheckCriteria decides whether the job should run at all: the feature
// must be enabled, a recognizer configured, and the recognizer's
// trained language must exactly match the transcript's detected
// language. Anything else short-circuits to NO_DATA, not an error.
func (c *Controller) CheckCriteria(ctx context.Context, req types.Request, detectedLanguage string) (bool, error) {
	log := c.Log.WithField("uuid", req.UUID)
	if !req.AIOptions.CustomEntity || req.AIOptions.CustomEntityRecognizer == "" {
		return false, nil
	}
	recognizer, err := c.Client.DescribeRecognizer(ctx, req.AIOptions.CustomEntityRecognizer)
	if err != nil {
		return false, fmt.Errorf("describe recognizer: %w", err)
	}
	if !recognizer.Trained {
		log.WithField("recognizer", recognizer.Name).Warn("recognizer not trained, skipping")
		return false, nil
	}
	language, ok := nlp.SupportedLanguage(detectedLanguage)
	if !ok || recognizer.LanguageCode != language {
		log.WithFields(logrus.Fields{
			"recognizer_language": recognizer.LanguageCode,
			"detected_language":   detectedLanguage,
		}).Warn("recognizer language mismatch, skipping")
		return false, nil
	}
	return true, nil
}

// Prepare uploads the one-document-per-line corpora the job consumes:
// at most DocumentsPerBatch lines each, short lines replaced by the
// filler so line positions stay aligned with cue indexes.
func (c *Controller) Prepare(ctx context.Context, req types.Request, cues []types.Cue) (string, error) {
	ts := time.Now().UTC().Format("20060102T150405")
	inputLocation := path.Join(req.Destination.Prefix, "raw", ts, nlp.Category, SubCategory, "input")

	var lines []string
	docID := 0
	flush := func() error {
		if len(lines) == 0 {
			return nil
		}
		key := path.Join(inputLocation, fmt.Sprintf("document-%d.txt", docID))
		body := strings.Join(lines, "\n") + "\n"
		if err := c.Store.Put(ctx, key, []byte(body)); err != nil {
			return fmt.Errorf("upload corpus document %d: %w", docID, err)
		}
		docID++
		lines = lines[:0]
		return nil
	}

	for _, cueItem := range cues {
		line := strings.ReplaceAll(cueItem.Text(), "\n", " ")
		if len(line) < 3 {
			line = fillerLine
		}
		lines = append(lines, line)
		if len(lines) == DocumentsPerBatch {
			if err := flush(); err != nil {
				return "", err
			}
		}
	}
	if err := flush(); err != nil {
		return "", err
	}
	c.Log.WithFields(logrus.Fields{"uuid": req.UUID, "documents": docID}).Info("corpus prepared")
	return inputLocation, nil
}

// Submit starts the recognition job under a deterministic id and claims
// a backlog slot. Idempotent re-submission maps to the same job id.
func (c *Controller) Submit(ctx context.Context, req types.Request, detectedLanguage, inputLocation string) (types.AsyncJob, error) {
	if err := c.Slots.Acquire(); err != nil {
		return types.AsyncJob{}, err
	}
	language, _ := nlp.SupportedLanguage(detectedLanguage)
	jobID := backlog.DeterministicJobID(req.UUID, SubCategory)
	outputLocation := path.Join(req.Destination.Prefix, "raw", nlp.Category, SubCategory, "output", jobID)
	err := c.Client.StartJob(ctx, StartJobParams{
		JobID:          jobID,
		RecognizerName: req.AIOptions.CustomEntityRecognizer,
		LanguageCode:   language,
		InputLocation:  inputLocation,
		OutputLocation: outputLocation,
	})
	if err != nil {
		c.Slots.Release()
		return types.AsyncJob{}, fmt.Errorf("start recognition job: %w", err)
	}
	c.Log.WithFields(logrus.Fields{"uuid": req.UUID, "job_id": jobID}).Info("recognition job submitted")
	return backlog.NewJob(jobID, nlp.Category, SubCategory), nil
}

// Poll folds one status observation into the job record and translates
// it to the pipeline vocabulary, releasing the backlog slot once the
// job is terminal.
func (c *Controller) Poll(ctx context.Context, job types.AsyncJob) (types.AsyncJob, types.StageStatus, error) {
	ext, err := c.Client.DescribeJob(ctx, job.JobID)
	if err != nil {
		return job, types.StatusProgressing, fmt.Errorf("describe job %s: %w", job.JobID, err)
	}
	next := backlog.Advance(job, ext)
	if next.Status.Terminal() && !job.Status.Terminal() {
		c.Slots.Release()
	}
	return next, backlog.Translate(next.Status), nil
}

// CreateTrack downloads the job's per-line detection output and
// time-anchors each detected span by recovering the absolute cue index
// from the (documentId, lineIndex) pair. Lines with zero detections
// are dropped; an empty overall result resolves to NO_DATA.
func (c *Controller) CreateTrack(ctx context.Context, req types.Request, job types.AsyncJob, cues []types.Cue) (nlp.Result, error) {
	log := c.Log.WithFields(logrus.Fields{"uuid": req.UUID, "job_id": job.JobID})

	outputs, err := c.Client.FetchOutput(ctx, job.OutputLocation)
	if err != nil {
		return nlp.Result{Status: types.StatusFailed}, fmt.Errorf("fetch job output: %w", err)
	}

	var records []types.AnnotationRecord
	for _, rec := range outputs {
		if len(rec.Entities) == 0 {
			continue
		}
		m := documentPattern.FindStringSubmatch(rec.File)
		if m == nil {
			log.WithField("file", rec.File).Warn("unrecognized output filename, dropped")
			continue
		}
		docID, _ := strconv.Atoi(m[1])
		absolute := rec.Line + docID*DocumentsPerBatch
		if absolute < 0 || absolute >= len(cues) {
			log.WithField("index", absolute).Warn("output index outside cue list, dropped")
			continue
		}
		anchor := cues[absolute]
		for _, e := range rec.Entities {
			records = append(records, types.AnnotationRecord{
				Category:    nlp.Category,
				SubCategory: SubCategory,
				Text:        e.Text,
				Confidence:  clamp(e.Score * 100),
				BeginMs:     anchor.StartMs,
				EndMs:       anchor.EndMs,
			})
		}
	}

	if len(records) == 0 {
		log.Info("no custom entities detected")
		return nlp.Result{Status: types.StatusNoData}, nil
	}
	return nlp.Result{Status: types.StatusCompleted, Records: records}, nil
}

// IndexResults persists the annotation metadata and writes the index
// document for the category.
func (c *Controller) IndexResults(ctx context.Context, req types.Request, records []types.AnnotationRecord) error {
	metadata, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode custom entity metadata: %w", err)
	}
	metadataKey := path.Join(req.Destination.Prefix, "metadata", SubCategory, "output.json")
	if err := c.Store.Put(ctx, metadataKey, metadata); err != nil {
		return err
	}
	return c.Index.IndexDocument(ctx, SubCategory, req.UUID, store.IndexedDocument{Type: "metadata", Data: metadata})
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
