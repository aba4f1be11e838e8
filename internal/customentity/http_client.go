package customentity

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"media-analysis-go/internal/backlog"
	"media-analysis-go/internal/types"
)

// HTTPClient implements Client against the recognition service's JSON
// API. Job output arrives as a gzipped tar of newline-delimited JSON
// records, one per corpus line with detections.
type HTTPClient struct {
	BaseURL string
	Log     *logrus.Entry

	client *http.Client
}

func NewHTTPClient(baseURL string, log *logrus.Entry) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Log:     log.WithField("component", "customentity"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) DescribeRecognizer(ctx context.Context, name string) (Recognizer, error) {
	var out Recognizer
	if err := c.doJSON(ctx, http.MethodGet, c.BaseURL+"/recognizers/"+name, nil, &out); err != nil {
		return Recognizer{}, err
	}
	return out, nil
}

func (c *HTTPClient) StartJob(ctx context.Context, params StartJobParams) error {
	body, _ := json.Marshal(params)
	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.BaseURL+"/jobs", body, &out); err != nil {
		return err
	}
	c.Log.WithFields(logrus.Fields{"job_id": params.JobID, "status": out.Status}).Info("job started")
	return nil
}

func (c *HTTPClient) DescribeJob(ctx context.Context, jobID string) (backlog.ExternalStatus, error) {
	var out struct {
		Status         string `json:"status"`
		Message        string `json:"message,omitempty"`
		OutputLocation string `json:"outputLocation,omitempty"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.BaseURL+"/jobs/"+jobID, nil, &out); err != nil {
		return backlog.ExternalStatus{}, err
	}
	return backlog.ExternalStatus{
		State:          types.JobStatus(out.Status),
		Message:        out.Message,
		OutputLocation: out.OutputLocation,
	}, nil
}

// FetchOutput downloads and unpacks the job's tar-packaged line
// output. Every regular tar entry is treated as newline-delimited JSON
// records; unreadable lines are skipped, not fatal.
func (c *HTTPClient) FetchOutput(ctx context.Context, outputLocation string) ([]OutputRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/output?location="+outputLocation, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch output: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch output: status %d", resp.StatusCode)
	}
	return unpackOutput(resp.Body, c.Log)
}

func unpackOutput(r io.Reader, log *logrus.Entry) ([]OutputRecord, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open output archive: %w", err)
	}
	defer gz.Close()

	var records []OutputRecord
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read output archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		scanner := bufio.NewScanner(tr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var rec OutputRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				log.WithError(err).WithField("entry", hdr.Name).Warn("skipping malformed output line")
				continue
			}
			records = append(records, rec)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan output entry %s: %w", hdr.Name, err)
		}
	}
	return records, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, url string, body []byte, target any) error {
	if c.BaseURL == "" {
		return fmt.Errorf("custom entity service not configured")
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 20 * time.Second

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
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("request rejected: status %d body %s", resp.StatusCode, raw)
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(raw, target); err != nil {
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
