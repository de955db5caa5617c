package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface. Responses, when
// set, are returned in order (the last one repeats); otherwise Response is.
type MockClient struct {
	Response  *Response
	Responses []*Response
	Err       error

	mu    sync.Mutex
	Calls []string // records prompts sent
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) > 0 {
		i := len(m.Calls) - 1
		if i >= len(m.Responses) {
			i = len(m.Responses) - 1
		}
		return m.Responses[i], nil
	}
	return m.Response, nil
}
