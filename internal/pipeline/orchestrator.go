package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/sirupsen/logrus"

	"media-analysis-go/internal/store"
	"media-analysis-go/internal/types"
)

// Handler executes one named stage against the current state. Handlers
// are stateless and single-shot: they either complete synchronously or
// leave the state PROGRESSING for the external scheduler to re-invoke.
type Handler func(ctx context.Context, state *types.PipelineState) error

// Orchestrator routes a named stage to its handler and persists the
// returned state. It never loops or blocks; driving the pipeline to
// completion is the external workflow engine's job.
type Orchestrator struct {
	handlers map[string]Handler
	store    store.ObjectStore
	log      *logrus.Entry
}

func NewOrchestrator(objects store.ObjectStore, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		handlers: map[string]Handler{},
		store:    objects,
		log:      log.WithField("component", "orchestrator"),
	}
}

// Register binds a stage name to its handler.
func (o *Orchestrator) Register(stage string, h Handler) {
	o.handlers[stage] = h
}

// Run invokes exactly one stage handler, persists the resulting state,
// and returns it for the next external invocation. An unknown stage
// name is a fatal configuration error.
func (o *Orchestrator) Run(ctx context.Context, stage string, state *types.PipelineState) (*types.PipelineState, error) {
	h, ok := o.handlers[stage]
	if !ok {
		return state, &ConfigError{Msg: fmt.Sprintf("unknown stage %q", stage)}
	}

	log := o.log.WithFields(logrus.Fields{"stage": stage, "uuid": state.UUID})
	state.Stage = stage
	if state.Status == "" || state.Status == types.StatusNotStarted {
		state.Status = types.StatusStarted
	}

	if err := h(ctx, state); err != nil {
		state.Status = types.StatusFailed
		if perr := o.persist(ctx, state); perr != nil {
			log.WithError(perr).Error("failed to persist failed state")
		}
		return state, err
	}
	if err := o.persist(ctx, state); err != nil {
		return state, err
	}
	log.WithField("status", state.Status).Info("stage complete")
	return state, nil
}

// Join merges the partial data payloads of branches that ran
// concurrently into the parent state. The merge is a shallow
// dictionary union; within one branch's list of parallel outputs,
// duplicate keys resolve left-to-right in return order.
func (o *Orchestrator) Join(ctx context.Context, state *types.PipelineState, branchData ...map[string]any) (*types.PipelineState, error) {
	state.Data = MergeData(append([]map[string]any{state.Data}, branchData...)...)
	state.Stage = "join"
	state.Status = types.StatusCompleted
	state.Progress = 100
	if err := o.persist(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}

// MergeData unions payload maps left-to-right: later payloads win on
// duplicate keys.
func MergeData(payloads ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, p := range payloads {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}

func (o *Orchestrator) persist(ctx context.Context, state *types.PipelineState) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	key := path.Join("state", state.UUID+".json")
	if err := o.store.Put(ctx, key, body); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}
