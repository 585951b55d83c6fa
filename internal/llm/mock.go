package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// MockResponse is one scripted reply of a MockProvider. A non-nil Err is
// returned instead of the content.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

var errScriptExhausted = errors.New("mock script exhausted")

// MockProvider replays a script of responses in order and records every
// request it receives. Replies go through the same schema checks as a real
// backend, so a scripted reply that violates the request schema fails.
type MockProvider struct {
	mu     sync.Mutex
	script []MockResponse
	next   int

	// Calls holds the received requests in arrival order.
	Calls []Request
}

// NewMockProvider scripts the given responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{script: responses}
}

// Generate replays the next scripted response. Once the script runs out it
// reports the provider as unavailable.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	if m.next >= len(m.script) {
		m.mu.Unlock()
		return nil, &ErrProviderUnavailable{Err: errScriptExhausted}
	}
	r := m.script[m.next]
	m.next++
	m.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	return finish(req, &Response{Content: r.Content, Usage: r.Usage, Model: m.ModelID(), StopReason: "end"})
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse extends the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	m.script = append(m.script, resp)
	m.mu.Unlock()
}

// CallCount returns how many requests were received.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
