package adapter

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter returns deterministic responses for local runs and tests.
// It is safe for concurrent use.
type MockAdapter struct {
	name            string
	responses       map[string]string
	defaultResponse string
	err             error
	fn              func(Request) (string, error)
	usage           *Usage

	mu       sync.Mutex
	requests []Request
}

// MockOption configures a MockAdapter.
type MockOption func(*MockAdapter)

// WithMockName overrides the adapter name ("mock").
func WithMockName(name string) MockOption {
	return func(a *MockAdapter) {
		a.name = name
	}
}

// WithMockResponses maps exact prompts to canned replies.
func WithMockResponses(responses map[string]string) MockOption {
	return func(a *MockAdapter) {
		a.responses = responses
	}
}

// WithMockDefault sets the reply for prompts with no canned response.
func WithMockDefault(response string) MockOption {
	return func(a *MockAdapter) {
		a.defaultResponse = response
	}
}

// WithMockError makes every call fail with err.
func WithMockError(err error) MockOption {
	return func(a *MockAdapter) {
		a.err = err
	}
}

// WithMockFunc routes every call through fn.
func WithMockFunc(fn func(Request) (string, error)) MockOption {
	return func(a *MockAdapter) {
		a.fn = fn
	}
}

// WithMockUsage attaches usage data to every response.
func WithMockUsage(usage *Usage) MockOption {
	return func(a *MockAdapter) {
		a.usage = usage
	}
}

// NewMockAdapter creates a mock adapter.
func NewMockAdapter(opts ...MockOption) *MockAdapter {
	a := &MockAdapter{
		name:            string(KindMock),
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return a.name
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Generate records the request and returns the configured reply.
func (a *MockAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.err != nil {
		return nil, a.err
	}

	model := req.Model
	if model == "" {
		model = "mock-1"
	}

	var text string
	switch {
	case a.fn != nil:
		out, err := a.fn(req)
		if err != nil {
			return nil, err
		}
		text = out
	default:
		if response, ok := a.responses[req.Prompt]; ok {
			text = response
		} else {
			text = fmt.Sprintf("%s\n%s", a.defaultResponse, req.Prompt)
		}
	}

	return &Response{Text: text, Provider: a.name, Model: model, Usage: a.usage}, nil
}

// Calls returns how many times Generate has been invoked.
func (a *MockAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

// Requests returns a copy of every request seen so far.
func (a *MockAdapter) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Request, len(a.requests))
	copy(out, a.requests)
	return out
}
