package adapter

import "context"

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Generate sends a request to the model and returns its text output.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Request is a single provider call.
type Request struct {
	Model        string
	Prompt       string
	Instructions string

	// Temperature is left to the provider default when nil.
	Temperature *float64
	MaxTokens   int

	// ReasoningEffort and Verbosity are hints; adapters that have no such
	// knob ignore them.
	ReasoningEffort string
	Verbosity       string
}

// Float returns a pointer to f, for Request.Temperature.
func Float(f float64) *float64 {
	return &f
}

// Kind identifies a concrete provider implementation.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindDeepSeek  Kind = "deepseek"
	KindAnthropic Kind = "anthropic"
	KindGoogle    Kind = "google"
	KindMock      Kind = "mock"
)

// Valid reports whether k names a known provider.
func (k Kind) Valid() bool {
	switch k {
	case KindOpenAI, KindDeepSeek, KindAnthropic, KindGoogle, KindMock:
		return true
	}
	return false
}

const defaultMaxTokens = 4000

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}
