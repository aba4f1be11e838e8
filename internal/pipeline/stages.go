package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/sirupsen/logrus"

	"media-analysis-go/internal/backlog"
	"media-analysis-go/internal/chapters"
	"media-analysis-go/internal/customentity"
	"media-analysis-go/internal/llm"
	"media-analysis-go/internal/nlp"
	"media-analysis-go/internal/store"
	"media-analysis-go/internal/transcribe"
	"media-analysis-go/internal/types"
)

// Stage names routed by the orchestrator.
const (
	StageTranscribeSubmit    = "transcribe-submit"
	StageTranscribeStatus    = "transcribe-status"
	StageDetect              = "detect"
	StageCustomEntitySubmit  = "custom-entity-submit"
	StageCustomEntityStatus  = "custom-entity-status"
	StageCustomEntityTrack   = "custom-entity-track"
	StageAnalyseConversation = "analyse-conversation"
	StageReport              = "report"
)

// Branch payload keys within PipelineState.Data.
const (
	dataSpeechToText = "speechToText"
	dataNLP          = "nlp"
	dataCustomJob    = "customEntityJob"
	dataConversation = "conversation"
)

// transcriptCategory files the normalized cue stream in the document
// index for every downstream stage to read.
const transcriptCategory = "transcript"

// Stages owns the collaborators and registers one handler per stage.
type Stages struct {
	Request       types.Request
	Store         store.ObjectStore
	Index         store.DocumentIndex
	Speech        transcribe.Client
	NLP           nlp.Client
	CustomEntity  customentity.Client
	LLM           llm.Client
	Slots         *backlog.Slots
	UploadWorkers int
	Log           *logrus.Entry
}

// Register binds every stage handler onto the orchestrator.
func (s *Stages) Register(o *Orchestrator) {
	o.Register(StageTranscribeSubmit, s.transcribeSubmit)
	o.Register(StageTranscribeStatus, s.transcribeStatus)
	o.Register(StageDetect, s.detect)
	o.Register(StageCustomEntitySubmit, s.customEntitySubmit)
	o.Register(StageCustomEntityStatus, s.customEntityStatus)
	o.Register(StageCustomEntityTrack, s.customEntityTrack)
	o.Register(StageAnalyseConversation, s.analyseConversation)
	o.Register(StageReport, s.report)
}

func (s *Stages) transcribeSubmit(ctx context.Context, state *types.PipelineState) error {
	if !s.Request.AIOptions.Transcribe {
		state.Status = types.StatusNoData
		return nil
	}
	jobID := backlog.DeterministicJobID(s.Request.UUID, StageTranscribeSubmit)
	if err := s.Speech.Submit(ctx, jobID, s.Request.Audio.Key, s.Request.AIOptions.LanguageCode); err != nil {
		return err
	}
	job := backlog.NewJob(jobID, transcriptCategory, "")
	state.SetData(dataSpeechToText, map[string]any{"job": job})
	state.Status = types.StatusProgressing
	state.Progress = 10
	return nil
}

func (s *Stages) transcribeStatus(ctx context.Context, state *types.PipelineState) error {
	branch, err := s.speechBranch(state)
	if err != nil {
		return err
	}
	var job types.AsyncJob
	if err := decode(branch["job"], &job); err != nil {
		return &ConfigError{Msg: "transcribe status invoked without a submitted job"}
	}

	ext, err := s.Speech.Status(ctx, job.JobID)
	if err != nil {
		return err
	}
	job = backlog.Advance(job, ext)
	branch["job"] = job

	switch backlog.Translate(job.Status) {
	case types.StatusProgressing:
		state.Status = types.StatusProgressing
		if state.Progress < 80 {
			state.Progress += 10
		}
		return nil
	case types.StatusFailed:
		return &ExternalJobError{Category: transcriptCategory, Message: job.ErrorMessage}
	}

	cues, language, err := s.Speech.FetchCaptions(ctx, job.OutputLocation)
	if err != nil {
		return err
	}
	if language == "" {
		language = s.Request.AIOptions.LanguageCode
	}

	body, err := json.Marshal(cues)
	if err != nil {
		return fmt.Errorf("encode cues: %w", err)
	}
	captionsKey := path.Join(s.Request.Destination.Prefix, "captions", "cues.json")
	if err := s.Store.Put(ctx, captionsKey, body); err != nil {
		return err
	}
	if err := s.Index.IndexDocument(ctx, transcriptCategory, s.Request.UUID, store.IndexedDocument{Type: "cues", Data: body}); err != nil {
		return err
	}

	branch["languageCode"] = language
	branch["captionsKey"] = captionsKey
	state.Status = types.StatusCompleted
	state.Progress = 100
	return nil
}

// detect runs the enabled synchronous detection subcategories with
// bounded fan-out. Each pass owns disjoint output keys, so concurrent
// writes never collide. A failed category keeps its message in the
// branch payload without blocking the others.
func (s *Stages) detect(ctx context.Context, state *types.PipelineState) error {
	var subs []string
	if s.Request.AIOptions.Entity {
		subs = append(subs, nlp.SubEntity)
	}
	if s.Request.AIOptions.Keyphrase {
		subs = append(subs, nlp.SubKeyphrase)
	}
	if s.Request.AIOptions.Sentiment {
		subs = append(subs, nlp.SubSentiment)
	}
	if len(subs) == 0 {
		state.Status = types.StatusNoData
		return nil
	}

	cues, err := s.loadCues(ctx)
	if err != nil {
		return err
	}
	language := s.detectedLanguage(state)

	task := &nlp.Task{Store: s.Store, Index: s.Index, Client: s.NLP, Log: s.Log}
	var mu sync.Mutex
	statuses := map[string]any{}
	perr := ParallelMap(ctx, s.workers(), subs, func(ctx context.Context, sub string) error {
		result, err := task.Run(ctx, s.Request, cues, sub, language)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			statuses[sub] = map[string]any{"status": string(types.StatusFailed), "errorMessage": err.Error()}
			// a failed category must not block the others
			s.Log.WithError(err).WithField("sub", sub).Error("detection category failed")
			return nil
		}
		statuses[sub] = map[string]any{"status": string(result.Status)}
		return nil
	})
	if perr != nil {
		return perr
	}

	state.SetData(dataNLP, statuses)
	state.Status = branchStatus(statuses)
	state.Progress = 100
	return nil
}

func (s *Stages) customEntitySubmit(ctx context.Context, state *types.PipelineState) error {
	ctrl := s.customEntityController()
	ok, err := ctrl.CheckCriteria(ctx, s.Request, s.detectedLanguage(state))
	if err != nil {
		return err
	}
	if !ok {
		state.Status = types.StatusNoData
		return nil
	}
	cues, err := s.loadCues(ctx)
	if err != nil {
		return err
	}
	inputLocation, err := ctrl.Prepare(ctx, s.Request, cues)
	if err != nil {
		return err
	}
	job, err := ctrl.Submit(ctx, s.Request, s.detectedLanguage(state), inputLocation)
	if err != nil {
		return err
	}
	state.SetData(dataCustomJob, job)
	state.Status = types.StatusProgressing
	state.Progress = 10
	return nil
}

func (s *Stages) customEntityStatus(ctx context.Context, state *types.PipelineState) error {
	var job types.AsyncJob
	if err := decode(state.Data[dataCustomJob], &job); err != nil || job.JobID == "" {
		return &ConfigError{Msg: "custom entity status invoked without a submitted job"}
	}
	ctrl := s.customEntityController()
	job, status, err := ctrl.Poll(ctx, job)
	if err != nil {
		return err
	}
	state.SetData(dataCustomJob, job)
	switch status {
	case types.StatusFailed:
		return &ExternalJobError{Category: customentity.SubCategory, Message: job.ErrorMessage}
	case types.StatusProgressing:
		state.Status = types.StatusProgressing
		if state.Progress < 80 {
			state.Progress += 10
		}
	default:
		state.Status = types.StatusCompleted
		state.Progress = 100
	}
	return nil
}

func (s *Stages) customEntityTrack(ctx context.Context, state *types.PipelineState) error {
	var job types.AsyncJob
	if err := decode(state.Data[dataCustomJob], &job); err != nil || job.JobID == "" {
		return &ConfigError{Msg: "custom entity track invoked without a completed job"}
	}
	cues, err := s.loadCues(ctx)
	if err != nil {
		return err
	}
	ctrl := s.customEntityController()
	result, err := ctrl.CreateTrack(ctx, s.Request, job, cues)
	if err != nil {
		return err
	}
	if result.Status == types.StatusCompleted {
		if err := ctrl.IndexResults(ctx, s.Request, result.Records); err != nil {
			return err
		}
	}
	state.Status = result.Status
	state.Progress = 100
	return nil
}

func (s *Stages) analyseConversation(ctx context.Context, state *types.PipelineState) error {
	if !s.Request.AIOptions.Filters.AnalyseConversation {
		state.Status = types.StatusNoData
		return nil
	}
	cues, err := s.loadCues(ctx)
	if err != nil {
		return err
	}

	engine := chapters.New(s.LLM, s.Log)
	conversation, err := engine.Run(ctx, cues)
	if err != nil {
		return err
	}

	body, err := json.Marshal(conversation)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	key := path.Join(s.captionDir(state), "conversations.json")
	if err := s.Store.Put(ctx, key, body); err != nil {
		return err
	}
	if err := s.Index.IndexDocument(ctx, dataConversation, s.Request.UUID, store.IndexedDocument{Type: dataConversation, Data: body}); err != nil {
		return err
	}

	state.SetData(dataConversation, map[string]any{"key": key, "chapters": len(conversation.Chapters)})
	if len(conversation.Chapters) == 0 {
		state.Status = types.StatusNoData
	} else {
		state.Status = types.StatusCompleted
	}
	state.Progress = 100
	return nil
}

func (s *Stages) customEntityController() *customentity.Controller {
	return &customentity.Controller{
		Store:  s.Store,
		Index:  s.Index,
		Client: s.CustomEntity,
		Slots:  s.Slots,
		Log:    s.Log,
	}
}

func (s *Stages) loadCues(ctx context.Context) ([]types.Cue, error) {
	doc, err := s.Index.GetDocument(ctx, transcriptCategory, s.Request.UUID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	var cues []types.Cue
	if err := json.Unmarshal(doc.Data, &cues); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return cues, nil
}

func (s *Stages) speechBranch(state *types.PipelineState) (map[string]any, error) {
	raw, ok := state.Data[dataSpeechToText]
	if !ok {
		return nil, &ConfigError{Msg: "speech branch data missing"}
	}
	branch, ok := raw.(map[string]any)
	if !ok {
		// state round-tripped through JSON; rebuild the concrete map
		branch = map[string]any{}
		if err := decode(raw, &branch); err != nil {
			return nil, fmt.Errorf("decode speech branch: %w", err)
		}
		state.Data[dataSpeechToText] = branch
	}
	return branch, nil
}

func (s *Stages) detectedLanguage(state *types.PipelineState) string {
	if branch, err := s.speechBranch(state); err == nil {
		if v, ok := branch["languageCode"].(string); ok && v != "" {
			return v
		}
	}
	return s.Request.AIOptions.LanguageCode
}

func (s *Stages) captionDir(state *types.PipelineState) string {
	if branch, err := s.speechBranch(state); err == nil {
		if v, ok := branch["captionsKey"].(string); ok && v != "" {
			return path.Dir(v)
		}
	}
	return path.Join(s.Request.Destination.Prefix, "captions")
}

func (s *Stages) workers() int {
	if s.UploadWorkers > 0 {
		return s.UploadWorkers
	}
	return 4
}

// branchStatus folds per-category outcomes into one stage status: all
// NO_DATA stays NO_DATA, any COMPLETED wins, all-failed fails.
func branchStatus(statuses map[string]any) types.StageStatus {
	completed, failed := 0, 0
	for _, v := range statuses {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		switch m["status"] {
		case string(types.StatusCompleted):
			completed++
		case string(types.StatusFailed):
			failed++
		}
	}
	switch {
	case completed > 0:
		return types.StatusCompleted
	case failed > 0:
		return types.StatusFailed
	default:
		return types.StatusNoData
	}
}

// decode round-trips a loosely typed payload value into a concrete
// struct. State data arrives either as live structs or as generic maps
// after a JSON round trip; this handles both.
func decode(v any, target any) error {
	if v == nil {
		return fmt.Errorf("missing payload")
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, target)
}
