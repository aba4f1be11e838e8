package types

// Request is the pipeline input record consumed by the orchestrator.
type Request struct {
	UUID        string      `json:"uuid" validate:"required,uuid"`
	Destination Destination `json:"destination" validate:"required"`
	Audio       AudioInput  `json:"audio" validate:"required"`
	AIOptions   AIOptions   `json:"aiOptions"`
}

// Destination addresses the object store holding per-stage artifacts.
type Destination struct {
	Store  string `json:"store" validate:"required"`
	Prefix string `json:"prefix"`
}

// AudioInput locates the source media within the destination store.
type AudioInput struct {
	Key string `json:"key" validate:"required"`
}

// AIOptions selects which detection categories run for the asset.
type AIOptions struct {
	Transcribe             bool    `json:"transcribe"`
	Entity                 bool    `json:"entity"`
	Keyphrase              bool    `json:"keyphrase"`
	Sentiment              bool    `json:"sentiment"`
	CustomEntity           bool    `json:"customentity"`
	CustomEntityRecognizer string  `json:"customEntityRecognizer,omitempty"`
	LanguageCode           string  `json:"languageCode,omitempty"`
	Filters                Filters `json:"filters"`
}

// Filters carries per-run feature toggles.
type Filters struct {
	AnalyseConversation bool `json:"analyseConversation"`
}
