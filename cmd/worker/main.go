package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"media-analysis-go/internal/backlog"
	"media-analysis-go/internal/config"
	"media-analysis-go/internal/customentity"
	"media-analysis-go/internal/llm"
	"media-analysis-go/internal/logger"
	"media-analysis-go/internal/nlp"
	"media-analysis-go/internal/pipeline"
	"media-analysis-go/internal/store"
	"media-analysis-go/internal/transcribe"
	"media-analysis-go/internal/types"
)

// envelope is the worker's input/output document: the pipeline input
// record, the stage to run, and the state carried between invocations.
// Branches carries the partial data payloads of concurrently run
// branches when the stage is the join step.
type envelope struct {
	Request  types.Request        `json:"request"`
	Stage    string               `json:"stage"`
	State    *types.PipelineState `json:"state,omitempty"`
	Branches []map[string]any     `json:"branches,omitempty"`
}

func main() {
	_ = godotenv.Load() // loads .env

	inputPath := flag.String("input", "", "path to the stage envelope JSON")
	outputPath := flag.String("output", "", "where to write the updated envelope (defaults to input)")
	flag.Parse()

	log := logger.New()
	log.WithField("service", "media-analysis-go").Info("starting worker")

	if *inputPath == "" {
		log.Fatal("missing -input")
	}
	if *outputPath == "" {
		*outputPath = *inputPath
	}

	body, err := os.ReadFile(*inputPath)
	if err != nil {
		log.WithError(err).Fatal("failed to read envelope")
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.WithError(err).Fatal("failed to decode envelope")
	}
	if err := config.ValidateRequest(&env.Request); err != nil {
		log.WithError(err).Fatal("invalid pipeline input")
	}
	if env.State == nil {
		env.State = &types.PipelineState{UUID: env.Request.UUID, Status: types.StatusNotStarted}
	}

	cfg := config.Load()
	stageLog := log.WithStage(env.Stage, env.Request.UUID)

	objects := store.NewFSStore(cfg.StoreRoot)
	index := store.NewCachedIndex(store.NewFSIndex(cfg.IndexRoot), 5*time.Minute)

	var llmClient llm.Client = llm.NewHTTPClient(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.LLMModel, stageLog)
	if cfg.UseMockLLM {
		llmClient = llm.NewMockClient(stageLog)
	}

	stages := &pipeline.Stages{
		Request:       env.Request,
		Store:         objects,
		Index:         index,
		Speech:        transcribe.NewHTTPClient(cfg.TranscribeURL, stageLog),
		NLP:           nlp.NewHTTPClient(cfg.NLPEndpointURL, stageLog),
		CustomEntity:  customentity.NewHTTPClient(cfg.CustomEntityURL, stageLog),
		LLM:           llmClient,
		Slots:         backlog.NewSlots(cfg.MaxBacklogSlots),
		UploadWorkers: cfg.UploadWorkers,
		Log:           stageLog,
	}
	orchestrator := pipeline.NewOrchestrator(objects, stageLog)
	stages.Register(orchestrator)

	start := time.Now()
	var state *types.PipelineState
	if env.Stage == "join" {
		state, err = orchestrator.Join(context.Background(), env.State, env.Branches...)
	} else {
		state, err = orchestrator.Run(context.Background(), env.Stage, env.State)
	}
	stageLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("stage finished")
	if err != nil {
		stageLog.WithError(err).Error("stage returned error")
	}

	env.State = state
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		log.WithError(err).Fatal("failed to encode envelope")
	}
	if err := os.WriteFile(*outputPath, out, 0o644); err != nil {
		log.WithError(err).Fatal("failed to write envelope")
	}
	if state.Status == types.StatusFailed {
		os.Exit(1)
	}
}
