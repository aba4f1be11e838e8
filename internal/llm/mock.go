package llm

import (
	"context"

	"github.com/sirupsen/logrus"
)

// MockClient satisfies Client without a gateway, for offline runs.
// Every invocation returns the same canned chapter document.
type MockClient struct {
	Log *logrus.Entry
}

func NewMockClient(log *logrus.Entry) *MockClient {
	return &MockClient{Log: log.WithField("component", "llm-mock")}
}

const mockResponse = `{"chapters":[{"start":"00:00:00.000","end":"00:01:00.000","reason":"mock chapter"}]}`

func (c *MockClient) Invoke(_ context.Context, messages []Message) (Result, error) {
	c.Log.WithField("messages", len(messages)).Debug("mock llm invoked")
	return Result{Text: mockResponse}, nil
}
