package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Detection is one item of a batch response. The service returns one
// result list per input position, index-aligned to the submitted
// textList.
type Detection struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// Client is the synchronous batch detection contract: at most 25 texts
// per call, results index-aligned to the input.
type Client interface {
	Detect(ctx context.Context, operation, languageCode string, textList []string) ([][]Detection, error)
}

// Batch operation names understood by the detection service.
const (
	OpEntities   = "entities"
	OpKeyPhrases = "keyphrases"
	OpSentiment  = "sentiment"
)

// HTTPClient implements Client against the detection service's JSON
// API, one POST per batch.
type HTTPClient struct {
	BaseURL string
	Log     *logrus.Entry

	client *http.Client
}

func NewHTTPClient(baseURL string, log *logrus.Entry) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Log:     log.WithField("component", "nlp"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type detectRequest struct {
	LanguageCode string   `json:"languageCode"`
	TextList     []string `json:"textList"`
}

type detectResponse struct {
	ResultList [][]Detection `json:"resultList"`
}

func (c *HTTPClient) Detect(ctx context.Context, operation, languageCode string, textList []string) ([][]Detection, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("nlp service not configured")
	}
	if len(textList) == 0 {
		return nil, nil
	}
	payload, _ := json.Marshal(detectRequest{LanguageCode: languageCode, TextList: textList})

	var out detectResponse
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+operation, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("detect %s: status %d", operation, resp.StatusCode)
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("detect %s rejected: status %d body %s", operation, resp.StatusCode, body)
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			lastErr = fmt.Errorf("detect %s decode: %w", operation, err)
			return lastErr
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		c.Log.WithError(lastErr).WithField("operation", operation).Error("batch detection failed")
		return nil, lastErr
	}
	return out.ResultList, nil
}
