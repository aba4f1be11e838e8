package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"media-analysis-go/internal/types"
)

// Config carries every knob the stage handlers need, resolved once at
// startup. Feature toggles ride on the request record, not here.
type Config struct {
	Environment string

	// collaborator endpoints
	TranscribeURL    string
	NLPEndpointURL   string
	CustomEntityURL  string
	LLMGatewayURL    string
	LLMAPIKey        string
	LLMModel         string

	// local object store / document index roots
	StoreRoot string
	IndexRoot string

	MaxBacklogSlots int
	UploadWorkers   int

	// offline mode for the inference gateway
	UseMockLLM bool
}

// Load resolves configuration from the environment, falling back to
// local-run defaults. Call godotenv.Load beforehand when a .env file is
// in play.
func Load() Config {
	return Config{
		Environment:     envOr("ENVIRONMENT", "local"),
		TranscribeURL:   os.Getenv("TRANSCRIBE_URL"),
		NLPEndpointURL:  os.Getenv("NLP_ENDPOINT_URL"),
		CustomEntityURL: os.Getenv("CUSTOM_ENTITY_URL"),
		LLMGatewayURL:   os.Getenv("LLM_GATEWAY_URL"),
		LLMAPIKey:       os.Getenv("LLM_API_KEY"),
		LLMModel:        envOr("LLM_MODEL", "default"),
		StoreRoot:       envOr("STORE_ROOT", "data/store"),
		IndexRoot:       envOr("INDEX_ROOT", "data/index"),
		MaxBacklogSlots: envIntOr("MAX_BACKLOG_SLOTS", 10),
		UploadWorkers:   envIntOr("UPLOAD_WORKERS", 4),
		UseMockLLM:      os.Getenv("USE_MOCK_LLM") == "true",
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envIntOr(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

var validate = validator.New()

// ValidateRequest rejects pipeline input records missing required
// fields before any stage runs. A failure here is a configuration
// error: fatal, never retried.
func ValidateRequest(req *types.Request) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid pipeline input: %w", err)
	}
	return nil
}
