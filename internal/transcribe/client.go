package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"media-analysis-go/internal/backlog"
	"media-analysis-go/internal/cue"
	"media-analysis-go/internal/types"
)

// Client is the narrow contract to the speech-to-text collaborator:
// async submit, single-shot status check, caption fetch on completion.
// There is no polling loop here; the workflow engine re-invokes the
// status stage until the job is terminal.
type Client interface {
	Submit(ctx context.Context, jobID, audioKey, languageCode string) error
	Status(ctx context.Context, jobID string) (backlog.ExternalStatus, error)
	FetchCaptions(ctx context.Context, location string) ([]types.Cue, string, error)
}

// HTTPClient implements Client against the transcription service's
// JSON API.
type HTTPClient struct {
	BaseURL string
	Log     *logrus.Entry

	client *http.Client
}

func NewHTTPClient(baseURL string, log *logrus.Entry) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Log:     log.WithField("component", "transcribe"),
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

type submitRequest struct {
	JobID        string `json:"jobId"`
	AudioKey     string `json:"audioKey"`
	LanguageCode string `json:"languageCode,omitempty"`
}

type statusResponse struct {
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	LanguageCode     string `json:"languageCode,omitempty"`
	CaptionsLocation string `json:"captionsLocation,omitempty"`
}

func (c *HTTPClient) Submit(ctx context.Context, jobID, audioKey, languageCode string) error {
	if c.BaseURL == "" {
		return fmt.Errorf("transcribe service not configured")
	}
	body, _ := json.Marshal(submitRequest{JobID: jobID, AudioKey: audioKey, LanguageCode: languageCode})

	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodPost, c.BaseURL+"/transcribe", body, &resp); err != nil {
		c.Log.WithError(err).Error("transcribe submit failed")
		return fmt.Errorf("transcribe submit: %w", err)
	}
	c.Log.WithFields(logrus.Fields{"job_id": jobID, "status": resp.Status}).Info("transcription submitted")
	return nil
}

func (c *HTTPClient) Status(ctx context.Context, jobID string) (backlog.ExternalStatus, error) {
	u, err := url.Parse(c.BaseURL + "/status")
	if err != nil {
		return backlog.ExternalStatus{}, err
	}
	q := u.Query()
	q.Set("jobId", jobID)
	u.RawQuery = q.Encode()

	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodGet, u.String(), nil, &resp); err != nil {
		return backlog.ExternalStatus{}, fmt.Errorf("transcribe status: %w", err)
	}
	return backlog.ExternalStatus{
		State:          types.JobStatus(resp.Status),
		Message:        resp.Reason,
		OutputLocation: resp.CaptionsLocation,
	}, nil
}

// FetchCaptions downloads the completed job's caption file, parses it
// into a normalized cue stream, and returns the detected language.
func (c *HTTPClient) FetchCaptions(ctx context.Context, location string) ([]types.Cue, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch captions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch captions: status %d", resp.StatusCode)
	}
	cues, err := cue.ParseWebVTT(resp.Body)
	if err != nil {
		return nil, "", err
	}
	language := resp.Header.Get("X-Detected-Language")
	return cues, language, nil
}

// doJSON executes one request with exponential backoff on transport
// and server errors, decoding the body into target. The request is
// rebuilt per attempt so the body survives retries.
func (c *HTTPClient) doJSON(ctx context.Context, method, url string, body []byte, target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 12 * time.Second

	var lastErr error
	operation := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("request rejected: status %d body %s", resp.StatusCode, body)
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode: %w", err)
			return lastErr
		}
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}
