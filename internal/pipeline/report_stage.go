package pipeline

import (
	"context"
	"encoding/json"
	"path"

	"media-analysis-go/internal/customentity"
	"media-analysis-go/internal/nlp"
	"media-analysis-go/internal/report"
	"media-analysis-go/internal/types"
)

// report collects whatever the detection and conversation stages left
// in the document index and renders the summary workbook. Categories
// that resolved to NO_DATA simply do not appear.
func (s *Stages) report(ctx context.Context, state *types.PipelineState) error {
	var records []types.AnnotationRecord
	for _, sub := range []string{nlp.SubEntity, nlp.SubKeyphrase, nlp.SubSentiment, customentity.SubCategory} {
		doc, err := s.Index.GetDocument(ctx, sub, s.Request.UUID)
		if err != nil {
			continue
		}
		var subRecords []types.AnnotationRecord
		if err := json.Unmarshal(doc.Data, &subRecords); err != nil {
			s.Log.WithError(err).WithField("sub", sub).Warn("skipping malformed metadata document")
			continue
		}
		records = append(records, subRecords...)
	}

	var conversation types.Conversation
	if doc, err := s.Index.GetDocument(ctx, dataConversation, s.Request.UUID); err == nil {
		if err := json.Unmarshal(doc.Data, &conversation); err != nil {
			s.Log.WithError(err).Warn("skipping malformed conversation document")
		}
	}

	if len(records) == 0 && len(conversation.Chapters) == 0 {
		state.Status = types.StatusNoData
		return nil
	}

	body, err := report.Workbook(records, conversation)
	if err != nil {
		return err
	}
	key := path.Join(s.Request.Destination.Prefix, "metadata", "summary.xlsx")
	if err := s.Store.Put(ctx, key, body); err != nil {
		return err
	}
	state.Status = types.StatusCompleted
	state.Progress = 100
	return nil
}
