package customentity

import (
	"context"

	"media-analysis-go/internal/backlog"
)

// Recognizer describes a domain-trained entity extraction model.
type Recognizer struct {
	Name         string `json:"name"`
	LanguageCode string `json:"languageCode"`
	Trained      bool   `json:"trained"`
}

// Entity is one detected span within a corpus line.
type Entity struct {
	Text        string  `json:"text"`
	Type        string  `json:"type"`
	Score       float64 `json:"score"`
	BeginOffset int     `json:"beginOffset"`
	EndOffset   int     `json:"endOffset"`
}

// OutputRecord is one line of the job's tar-packaged detection output,
// already unpacked by the client. File carries the source document
// name; Line is the zero-based position within that document.
type OutputRecord struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Entities []Entity `json:"entities"`
}

// StartJobParams is the submit contract of the recognition service.
type StartJobParams struct {
	JobID          string `json:"jobId"`
	RecognizerName string `json:"recognizerName"`
	LanguageCode   string `json:"languageCode"`
	InputLocation  string `json:"inputLocation"`
	OutputLocation string `json:"outputLocation"`
}

// Client is the asynchronous custom entity recognition contract:
// submit, single-shot status check, output fetch.
type Client interface {
	DescribeRecognizer(ctx context.Context, name string) (Recognizer, error)
	StartJob(ctx context.Context, params StartJobParams) error
	DescribeJob(ctx context.Context, jobID string) (backlog.ExternalStatus, error)
	FetchOutput(ctx context.Context, outputLocation string) ([]OutputRecord, error)
}
